package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/asm0dey/java-version-checker-sub002/internal/jdk"
)

const (
	maxArchiveEntries   = 4096
	maxEntryBytes       = 8 << 20
	maxExtractedBytes   = 256 << 20
	maxCompressionRatio = 100
)

var zipSignature = []byte{'P', 'K', 0x03, 0x04}

// Entry is one parsed configuration entry from an upload.
type Entry struct {
	Source string
	Record jdk.RawRecord
}

// Extract parses an uploaded payload into configuration entries. ZIP archives
// are walked entry by entry, any other payload is treated as a single flat
// configuration file.
func Extract(name string, data []byte) ([]Entry, error) {
	if bytes.HasPrefix(data, zipSignature) {
		return ExtractArchive(data)
	}
	return ParseSingle(name, data)
}

// ExtractArchive walks a ZIP payload and parses every release or property
// file it contains. Limit violations abort the whole upload, entries that do
// not look like runtime configuration are skipped.
func ExtractArchive(data []byte) ([]Entry, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if len(reader.File) > maxArchiveEntries {
		return nil, fmt.Errorf("archive holds %d entries, limit is %d", len(reader.File), maxArchiveEntries)
	}
	var total int64
	var entries []Entry
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if err := checkEntryLimits(file); err != nil {
			return nil, err
		}
		total += int64(file.UncompressedSize64)
		if total > maxExtractedBytes {
			return nil, fmt.Errorf("archive expands past %d bytes", maxExtractedBytes)
		}
		if !recognizedEntry(file.Name) {
			continue
		}
		record, err := parseArchiveEntry(file)
		if err != nil {
			return nil, err
		}
		if record == nil {
			continue
		}
		entries = append(entries, Entry{Source: file.Name, Record: record})
	}
	return entries, nil
}

// ParseSingle parses one flat configuration file payload.
func ParseSingle(name string, data []byte) ([]Entry, error) {
	if int64(len(data)) > maxEntryBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", name, maxEntryBytes)
	}
	record, err := ParseRelease(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return []Entry{{Source: name, Record: record}}, nil
}

func checkEntryLimits(file *zip.File) error {
	size := int64(file.UncompressedSize64)
	if size > maxEntryBytes {
		return fmt.Errorf("archive entry %s claims %d uncompressed bytes, limit is %d", file.Name, size, maxEntryBytes)
	}
	compressed := int64(file.CompressedSize64)
	if compressed > 0 && size/compressed > maxCompressionRatio {
		return fmt.Errorf("archive entry %s exceeds compression ratio %d", file.Name, maxCompressionRatio)
	}
	return nil
}

// recognizedEntry reports whether an archive member looks like a runtime
// release file or a property dump worth parsing.
func recognizedEntry(name string) bool {
	base := strings.ToLower(path.Base(name))
	return base == "release" || strings.HasSuffix(base, ".properties")
}

func parseArchiveEntry(file *zip.File) (jdk.RawRecord, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open archive entry %s: %w", file.Name, err)
	}
	defer rc.Close()

	// The size recorded in the directory header is untrusted, so the limit
	// is enforced again on the actual bytes.
	data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read archive entry %s: %w", file.Name, err)
	}
	if int64(len(data)) > maxEntryBytes {
		return nil, fmt.Errorf("archive entry %s exceeds %d bytes", file.Name, maxEntryBytes)
	}
	record, err := ParseRelease(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse archive entry %s: %w", file.Name, err)
	}
	if len(record) == 0 {
		return nil, nil
	}
	return record, nil
}
