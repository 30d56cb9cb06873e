// Package ingest turns uploaded archives and configuration files into raw
// identification records for classification.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/asm0dey/java-version-checker-sub002/internal/jdk"
)

// keyAliases maps the identifier keys found in JDK release files and Java
// system property dumps onto the canonical record keys.
var keyAliases = map[string]string{
	"JAVA_VERSION":         jdk.KeyVersion,
	"java.version":         jdk.KeyVersion,
	"JAVA_RUNTIME_VERSION": jdk.KeyRuntimeVersion,
	"java.runtime.version": jdk.KeyRuntimeVersion,
	"JAVA_VM_VERSION":      jdk.KeyVMVersion,
	"java.vm.version":      jdk.KeyVMVersion,
	"IMPLEMENTOR":          jdk.KeyVendor,
	"java.vendor":          jdk.KeyVendor,
	"JAVA_VM_VENDOR":       jdk.KeyVMVendor,
	"java.vm.vendor":       jdk.KeyVMVendor,
	"IMPLEMENTOR_VERSION":  jdk.KeyVendorVersion,
	"java.vendor.version":  jdk.KeyVendorVersion,
	"JAVA_VERSION_DATE":    jdk.KeyBuildDate,
	"java.version.date":    jdk.KeyBuildDate,
	"BUILD_DATE":           jdk.KeyBuildDate,
	"build.date":           jdk.KeyBuildDate,
}

// ParseRelease extracts a raw identification record from release or property
// file content. Unrecognized keys are ignored and the first value wins when a
// canonical key appears under several aliases.
func ParseRelease(r io.Reader) (jdk.RawRecord, error) {
	record := make(jdk.RawRecord, 8)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		key, value, ok := splitProperty(line)
		if !ok {
			continue
		}
		canonical, ok := keyAliases[key]
		if !ok {
			continue
		}
		if _, exists := record[canonical]; exists {
			continue
		}
		record[canonical] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan configuration content: %w", err)
	}
	return record, nil
}

func splitProperty(line string) (key, value string, ok bool) {
	idx := strings.IndexAny(line, "=:")
	if idx <= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	value = strings.Trim(value, `"`)
	return key, value, true
}
