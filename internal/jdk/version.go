// Package jdk classifies Java runtime identification data: version parsing,
// license requirement under Oracle's historical policy regimes, age tiers,
// and deduplication of repeated observations.
package jdk

import (
	"fmt"
	"strconv"
	"strings"
)

// Major parses the normalized major version from a version identifier.
// Legacy identifiers ("1.8.0_271") carry the major in the second dot
// segment, modern JEP 223 identifiers ("11.0.1", "21") in the first.
func Major(version string) (int, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return 0, fmt.Errorf("empty version identifier")
	}
	parts := strings.SplitN(version, ".", 3)
	first, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("parse major segment %q: %w", parts[0], err)
	}
	if first == 1 && len(parts) > 1 {
		second, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("parse legacy major segment %q: %w", parts[1], err)
		}
		return second, nil
	}
	return first, nil
}

// UpdateNumber extracts the update component of a legacy "1.<n>.0_<u>"
// identifier. The second return is false when no numeric update is present.
func UpdateNumber(version string) (int, bool) {
	idx := strings.IndexByte(version, '_')
	if idx < 0 || idx == len(version)-1 {
		return 0, false
	}
	update, err := strconv.Atoi(version[idx+1:])
	if err != nil {
		return 0, false
	}
	return update, true
}

// PatchNumber extracts the third dot segment of a modern
// "<major>.<minor>.<patch>" identifier. The second return is false when the
// identifier has fewer than three segments or the third is not numeric.
func PatchNumber(version string) (int, bool) {
	parts := strings.Split(version, ".")
	if len(parts) < 3 {
		return 0, false
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, false
	}
	return patch, true
}
