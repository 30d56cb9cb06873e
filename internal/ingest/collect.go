package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CollectDir walks root and bundles every recognized runtime configuration
// file into an in-memory ZIP archive ready for upload. Entry names are the
// slash-separated paths relative to root, so the origin of each runtime stays
// visible in the analysis report. The second return is the number of files
// collected; zero means nothing under root looked like runtime configuration.
func CollectDir(root string) ([]byte, int, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, 0, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, 0, fmt.Errorf("%s is not a directory", root)
	}

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	count := 0
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", p, err)
		}
		name := filepath.ToSlash(rel)
		if !recognizedEntry(name) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		if fi.Size() > maxEntryBytes {
			return fmt.Errorf("file %s exceeds %d bytes", p, maxEntryBytes)
		}
		if err := addFile(writer, name, p); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if err := writer.Close(); err != nil {
		return nil, 0, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), count, nil
}

func addFile(writer *zip.Writer, name, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	entry, err := writer.Create(name)
	if err != nil {
		return fmt.Errorf("create archive entry %s: %w", name, err)
	}
	if _, err := io.Copy(entry, file); err != nil {
		return fmt.Errorf("copy %s into archive: %w", path, err)
	}
	return nil
}
