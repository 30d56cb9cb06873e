// Package catalog serves the static reference list of known Java version
// identifiers packaged with the binary.
package catalog

import (
	"bufio"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
)

//go:embed versions.txt
var resourceFS embed.FS

const resourceName = "versions.txt"

// Catalog loads the packaged identifier list exactly once per process and
// exposes it read-only afterwards. A failed load is retained and reported on
// every subsequent call, it is never retried.
type Catalog struct {
	fsys     fs.FS
	name     string
	logger   *slog.Logger
	once     sync.Once
	loadErr  error
	versions []string
}

// New returns a catalog backed by the packaged resource.
func New(logger *slog.Logger) *Catalog {
	if logger != nil {
		logger = logger.With("component", "version_catalog")
	}
	return &Catalog{fsys: resourceFS, name: resourceName, logger: logger}
}

// Load reads and validates the resource. Concurrent first callers share a
// single load attempt.
func (c *Catalog) Load() error {
	c.once.Do(func() {
		c.versions, c.loadErr = c.read()
	})
	return c.loadErr
}

// All returns the loaded identifiers in resource order. The result is a copy
// and safe to retain.
func (c *Catalog) All() []string {
	if err := c.Load(); err != nil {
		return nil
	}
	out := make([]string, len(c.versions))
	copy(out, c.versions)
	return out
}

func (c *Catalog) read() ([]string, error) {
	file, err := c.fsys.Open(c.name)
	if err != nil {
		return nil, fmt.Errorf("open catalog resource %s: %w", c.name, err)
	}
	defer file.Close()

	versions := make([]string, 0, 32)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.ContainsAny(line, " \t") && c.logger != nil {
			c.logger.Warn("catalog identifier contains whitespace", "identifier", line)
		}
		versions = append(versions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog resource %s: %w", c.name, err)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("catalog resource %s contains no identifiers", c.name)
	}
	return versions, nil
}
