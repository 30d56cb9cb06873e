package jdk

import (
	"reflect"
	"testing"

	"github.com/asm0dey/java-version-checker-sub002/internal/domain"
)

func TestAggregateCollapsesEqualIdentity(t *testing.T) {
	observations := []domain.RuntimeObservation{
		{Version: "1.8.0_181", RuntimeVersion: "1.8.0_181-b13", Vendor: "Oracle Corporation", SourceName: "host-a/release"},
		{Version: "1.8.0_181", RuntimeVersion: "1.8.0_181-b13", Vendor: "Oracle Corporation", SourceName: "host-b/release"},
		{Version: "11.0.3", Vendor: "Oracle Corporation", RequiresLicense: true, SourceName: "host-c/release"},
	}
	set := Aggregate(observations)
	if set.TotalFiles != 3 {
		t.Fatalf("expected total 3, got %d", set.TotalFiles)
	}
	if set.DistinctCount != 2 {
		t.Fatalf("expected 2 distinct, got %d", set.DistinctCount)
	}
	if len(set.Observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(set.Observations))
	}
	if set.Observations[0].SourceName != "host-a/release" {
		t.Fatalf("first-seen observation must win, got %q", set.Observations[0].SourceName)
	}
	if set.LicensedCount != 1 {
		t.Fatalf("expected 1 licensed, got %d", set.LicensedCount)
	}
}

func TestAggregateSortsVersionsLexicographically(t *testing.T) {
	observations := []domain.RuntimeObservation{
		{Version: "9", Vendor: "Oracle Corporation"},
		{Version: "10.0.2", Vendor: "Oracle Corporation"},
		{Version: "1.8.0_271", Vendor: "Oracle Corporation"},
	}
	set := Aggregate(observations)
	got := make([]string, 0, len(set.Observations))
	for _, obs := range set.Observations {
		got = append(got, obs.Version)
	}
	// Byte ordering puts "10.0.2" ahead of "9".
	want := []string{"1.8.0_271", "10.0.2", "9"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order %v, want %v", got, want)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	observations := []domain.RuntimeObservation{
		{Version: "11.0.3", Vendor: "Oracle Corporation", RequiresLicense: true},
		{Version: "1.6.0_45", Vendor: "Sun Microsystems Inc.", IsLegacyTier: true},
	}
	first := Aggregate(observations)
	second := Aggregate(first.Observations)
	if !reflect.DeepEqual(first.Observations, second.Observations) {
		t.Fatalf("aggregate not idempotent: %v vs %v", first.Observations, second.Observations)
	}
	if second.DistinctCount != first.DistinctCount {
		t.Fatalf("distinct count changed: %d vs %d", first.DistinctCount, second.DistinctCount)
	}
	if second.LegacyCount != 1 || second.LicensedCount != 1 {
		t.Fatalf("unexpected counters: legacy=%d licensed=%d", second.LegacyCount, second.LicensedCount)
	}
}

func TestAggregateDistinguishesVendors(t *testing.T) {
	observations := []domain.RuntimeObservation{
		{Version: "11.0.3", Vendor: "Oracle Corporation"},
		{Version: "11.0.3", Vendor: "Eclipse Adoptium"},
	}
	set := Aggregate(observations)
	if set.DistinctCount != 2 {
		t.Fatalf("different vendors must stay distinct, got %d", set.DistinctCount)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	set := Aggregate(nil)
	if set.TotalFiles != 0 || set.DistinctCount != 0 {
		t.Fatalf("unexpected counters for empty input: %+v", set)
	}
	if len(set.Observations) != 0 {
		t.Fatalf("expected no observations, got %d", len(set.Observations))
	}
}
