package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/asm0dey/java-version-checker-sub002/internal/domain"
)

func sampleReport() domain.AnalysisReport {
	completed := time.Date(2025, 3, 10, 12, 5, 0, 0, time.UTC)
	return domain.AnalysisReport{
		Run: domain.AnalysisRun{
			ID:            "run-42",
			FileName:      "fleet.zip",
			Status:        domain.AnalysisStatusComplete,
			TotalFiles:    3,
			DistinctCount: 2,
			LegacyCount:   1,
			LicensedCount: 1,
			CreatedAt:     time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
			CompletedAt:   &completed,
		},
		Observations: []domain.RuntimeObservation{
			{
				Version:            "1.6.0_45",
				RuntimeVersion:     "1.6.0_45-b06",
				Vendor:             "Sun Microsystems Inc.",
				SourceName:         "hosts/old/release",
				IsLegacyTier:       true,
				LicenseRule:        "pre_java8",
				LicenseExplanation: "Java 6 predates the commercial licensing scheme",
				AgeTier:            domain.AgeTierVeryOld,
			},
			{
				Version:            "11.0.3",
				Vendor:             "Oracle Corporation",
				SourceName:         "hosts/new/release",
				RequiresLicense:    true,
				LicenseRule:        "java11",
				LicenseExplanation: "Oracle Java 11 always requires a commercial license",
				AgeTier:            domain.AgeTierOld,
			},
		},
	}
}

func TestRenderReportContainsRunAndObservations(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer returned error: %v", err)
	}
	var buf bytes.Buffer
	if err := renderer.Render(&buf, sampleReport()); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	html := buf.String()
	for _, want := range []string{
		"fleet.zip",
		"run-42",
		"1.6.0_45",
		"11.0.3",
		"VERY_OLD",
		"commercial",
		"Oracle Java 11 always requires a commercial license",
		"2025-03-10 12:05:00 UTC",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered report missing %q", want)
		}
	}
}

func TestRenderReportEscapesUntrustedFields(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer returned error: %v", err)
	}
	rpt := sampleReport()
	rpt.Observations[0].Vendor = `Evil <script>alert("x")</script>`
	var buf bytes.Buffer
	if err := renderer.Render(&buf, rpt); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if strings.Contains(buf.String(), "<script>alert") {
		t.Fatal("vendor field was not escaped")
	}
}

func TestRenderReportWithoutObservations(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer returned error: %v", err)
	}
	rpt := domain.AnalysisReport{
		Run: domain.AnalysisRun{
			ID:        "run-7",
			FileName:  "empty.zip",
			Status:    domain.AnalysisStatusComplete,
			CreatedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		},
	}
	var buf bytes.Buffer
	if err := renderer.Render(&buf, rpt); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "No Java runtimes were identified") {
		t.Fatal("expected empty-state message")
	}
}
