package jdk

import "github.com/asm0dey/java-version-checker-sub002/internal/domain"

// AgeTier maps a version identifier to a coarse age tier. Unparseable
// identifiers fall back to the most alarming tier.
func AgeTier(version string) string {
	major, err := Major(version)
	if err != nil {
		return domain.AgeTierVeryOld
	}
	switch {
	case major < 11:
		return domain.AgeTierVeryOld
	case major <= 20:
		return domain.AgeTierOld
	default:
		return domain.AgeTierOK
	}
}

// IsLegacyTier reports whether the identifier predates the modern release
// scheme (major below 8). Unparseable identifiers report false, not legacy.
func IsLegacyTier(version string) bool {
	major, err := Major(version)
	if err != nil {
		return false
	}
	return major < 8
}
