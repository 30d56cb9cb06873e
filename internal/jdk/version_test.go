package jdk

import "testing"

func TestMajorLegacyIdentifiers(t *testing.T) {
	cases := map[string]int{
		"1.8.0_271": 8,
		"1.8.0_131": 8,
		"1.8":       8,
		"1.6.0_45":  6,
		"1.7.0_80":  7,
	}
	for version, want := range cases {
		got, err := Major(version)
		if err != nil {
			t.Fatalf("Major(%q) returned error: %v", version, err)
		}
		if got != want {
			t.Fatalf("Major(%q) = %d, want %d", version, got, want)
		}
	}
}

func TestMajorModernIdentifiers(t *testing.T) {
	cases := map[string]int{
		"11.0.1":  11,
		"17.0.13": 17,
		"21":      21,
		"9":       9,
		"10.0.2":  10,
		"1":       1,
	}
	for version, want := range cases {
		got, err := Major(version)
		if err != nil {
			t.Fatalf("Major(%q) returned error: %v", version, err)
		}
		if got != want {
			t.Fatalf("Major(%q) = %d, want %d", version, got, want)
		}
	}
}

func TestMajorRejectsUnparseableIdentifiers(t *testing.T) {
	for _, version := range []string{"", "   ", "java8", "1.x.0", "x.8.0", "11+28"} {
		if _, err := Major(version); err == nil {
			t.Fatalf("Major(%q) succeeded, want error", version)
		}
	}
}

func TestUpdateNumber(t *testing.T) {
	if update, ok := UpdateNumber("1.8.0_271"); !ok || update != 271 {
		t.Fatalf("UpdateNumber(1.8.0_271) = %d,%v, want 271,true", update, ok)
	}
	if update, ok := UpdateNumber("1.8.0_0"); !ok || update != 0 {
		t.Fatalf("UpdateNumber(1.8.0_0) = %d,%v, want 0,true", update, ok)
	}
	for _, version := range []string{"1.8.0", "11.0.1", "1.8.0_", "1.8.0_b09"} {
		if _, ok := UpdateNumber(version); ok {
			t.Fatalf("UpdateNumber(%q) reported a value, want absent", version)
		}
	}
}

func TestPatchNumber(t *testing.T) {
	if patch, ok := PatchNumber("17.0.13"); !ok || patch != 13 {
		t.Fatalf("PatchNumber(17.0.13) = %d,%v, want 13,true", patch, ok)
	}
	if patch, ok := PatchNumber("17.0.0"); !ok || patch != 0 {
		t.Fatalf("PatchNumber(17.0.0) = %d,%v, want 0,true", patch, ok)
	}
	for _, version := range []string{"17", "17.0", "1.8.0_271", "17.0.x"} {
		if _, ok := PatchNumber(version); ok {
			t.Fatalf("PatchNumber(%q) reported a value, want absent", version)
		}
	}
}
