package domain

import "time"

// Status constants for analysis runs.
const (
	AnalysisStatusRunning  = "running"
	AnalysisStatusComplete = "complete"
	AnalysisStatusFailed   = "failed"
)

// AnalysisRun records one processed upload and its summary counters.
type AnalysisRun struct {
	ID            string
	FileName      string
	Status        string
	TotalFiles    int
	DistinctCount int
	LegacyCount   int
	LicensedCount int
	Error         string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// AnalysisRunUpdate carries the terminal state written when a run finishes,
// successfully or not.
type AnalysisRunUpdate struct {
	ID            string
	Status        string
	TotalFiles    int
	DistinctCount int
	LegacyCount   int
	LicensedCount int
	Error         string
	CompletedAt   time.Time
}

// AnalysisReport couples a run with its distinct observation set for reporting.
type AnalysisReport struct {
	Run          AnalysisRun
	Observations []RuntimeObservation
}
