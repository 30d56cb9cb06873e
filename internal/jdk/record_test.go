package jdk

import (
	"testing"

	"github.com/asm0dey/java-version-checker-sub002/internal/domain"
)

func TestBuildObservationAssemblesAllFields(t *testing.T) {
	record := RawRecord{
		KeyVersion:        "1.8.0_181",
		KeyRuntimeVersion: "1.8.0_181-b13",
		KeyVMVersion:      "25.181-b13",
		KeyVendor:         "Oracle Corporation",
		KeyVMVendor:       "Oracle Corporation",
	}
	obs := BuildObservation(record, "jdk8/release")
	if obs == nil {
		t.Fatal("expected observation for record with version")
	}
	if obs.Version != "1.8.0_181" {
		t.Fatalf("unexpected version %q", obs.Version)
	}
	if obs.RuntimeVersion != "1.8.0_181-b13" {
		t.Fatalf("unexpected runtime version %q", obs.RuntimeVersion)
	}
	if obs.VMVersion != "25.181-b13" {
		t.Fatalf("unexpected vm version %q", obs.VMVersion)
	}
	if obs.SourceName != "jdk8/release" {
		t.Fatalf("unexpected source name %q", obs.SourceName)
	}
	if obs.RequiresLicense {
		t.Fatalf("update 181 must not require a license: %s", obs.LicenseExplanation)
	}
	if obs.LicenseRule != "java8_update" {
		t.Fatalf("unexpected license rule %q", obs.LicenseRule)
	}
	if obs.IsLegacyTier {
		t.Fatal("Java 8 is not legacy tier")
	}
	if obs.AgeTier != domain.AgeTierVeryOld {
		t.Fatalf("unexpected age tier %s", obs.AgeTier)
	}
	if obs.LicenseExplanation == "" {
		t.Fatal("expected license explanation")
	}
}

func TestBuildObservationSkipsVersionlessRecords(t *testing.T) {
	if obs := BuildObservation(RawRecord{KeyVendor: "Oracle Corporation"}, "conf/app.properties"); obs != nil {
		t.Fatalf("expected nil for record without version, got %+v", obs)
	}
	if obs := BuildObservation(RawRecord{KeyVersion: "   "}, "conf/app.properties"); obs != nil {
		t.Fatalf("expected nil for blank version, got %+v", obs)
	}
}

func TestBuildObservationModernOracleRelease(t *testing.T) {
	obs := BuildObservation(RawRecord{
		KeyVersion: "11.0.3",
		KeyVendor:  "Oracle Corporation",
	}, "jdk11/release")
	if obs == nil {
		t.Fatal("expected observation")
	}
	if !obs.RequiresLicense {
		t.Fatalf("Java 11 must require a license: %s", obs.LicenseExplanation)
	}
	if obs.LicenseRule != "java11" {
		t.Fatalf("unexpected license rule %q", obs.LicenseRule)
	}
	if obs.AgeTier != domain.AgeTierOld {
		t.Fatalf("unexpected age tier %s", obs.AgeTier)
	}
}

func TestBuildObservationLegacySunRelease(t *testing.T) {
	obs := BuildObservation(RawRecord{
		KeyVersion: "1.6.0_45",
		KeyVendor:  "Sun Microsystems Inc.",
	}, "jdk6/release")
	if obs == nil {
		t.Fatal("expected observation")
	}
	if !obs.IsLegacyTier {
		t.Fatal("Java 6 must report legacy tier")
	}
	if obs.RequiresLicense {
		t.Fatalf("Java 6 must not require a license: %s", obs.LicenseExplanation)
	}
	if obs.AgeTier != domain.AgeTierVeryOld {
		t.Fatalf("unexpected age tier %s", obs.AgeTier)
	}
}
