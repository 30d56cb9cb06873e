package jdk

import (
	"strings"

	"github.com/asm0dey/java-version-checker-sub002/internal/domain"
)

// Canonical record keys recognized by the classifiers.
const (
	KeyVersion        = "version"
	KeyRuntimeVersion = "runtimeVersion"
	KeyVMVersion      = "vmVersion"
	KeyVendor         = "vendor"
	KeyVMVendor       = "vmVendor"
	KeyVendorVersion  = "vendorVersion"
	KeyBuildDate      = "buildDate"
)

// RawRecord holds one configuration entry's identification fields keyed by
// the canonical key constants above. Unrecognized keys are ignored and
// missing optional keys degrade per the classification fallbacks.
type RawRecord map[string]string

// BuildObservation validates a raw record and assembles a classified
// observation. It returns nil when the record carries no version identifier
// after trimming; callers skip such entries, they are not failures.
func BuildObservation(record RawRecord, sourceName string) *domain.RuntimeObservation {
	version := strings.TrimSpace(record[KeyVersion])
	if version == "" {
		return nil
	}
	decision := Classify(record)
	return &domain.RuntimeObservation{
		Version:            version,
		RuntimeVersion:     strings.TrimSpace(record[KeyRuntimeVersion]),
		VMVersion:          strings.TrimSpace(record[KeyVMVersion]),
		Vendor:             strings.TrimSpace(record[KeyVendor]),
		VMVendor:           strings.TrimSpace(record[KeyVMVendor]),
		SourceName:         sourceName,
		IsLegacyTier:       IsLegacyTier(version),
		RequiresLicense:    decision.Required,
		LicenseRule:        decision.Rule,
		LicenseExplanation: decision.Explanation,
		AgeTier:            AgeTier(version),
	}
}
