package domain

// Age tier constants for classified runtimes.
const (
	AgeTierVeryOld = "VERY_OLD"
	AgeTierOld     = "OLD"
	AgeTierOK      = "OK"
)

// RuntimeObservation is one Java runtime discovered in an uploaded archive,
// carrying the raw identification fields plus both classification results.
// Instances are built once and never mutated afterwards.
type RuntimeObservation struct {
	Version            string
	RuntimeVersion     string
	VMVersion          string
	Vendor             string
	VMVendor           string
	SourceName         string
	IsLegacyTier       bool
	RequiresLicense    bool
	LicenseRule        string
	LicenseExplanation string
	AgeTier            string
}

// DistinctSet is the deduplicated, version-sorted result of one analysis run.
type DistinctSet struct {
	Observations  []RuntimeObservation
	TotalFiles    int
	DistinctCount int
	LegacyCount   int
	LicensedCount int
}
