package jdk

import (
	"fmt"
	"strings"
	"time"
)

const buildDateLayout = "2006-01-02"

// Thresholds at which Oracle's historical policy regimes switch from free to
// commercial terms.
const (
	java8CommercialUpdate = 211
	java17CommercialPatch = 13
)

var (
	java8LicenseCutover  = time.Date(2019, time.April, 16, 0, 0, 0, 0, time.UTC)
	java17LicenseCutover = time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC)
	nftcLicenseCutover   = time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
)

// Decision is the outcome of a license classification.
type Decision struct {
	Required    bool
	Rule        string
	Explanation string
}

type licenseRule struct {
	name string
	eval func(ruleInput) (Decision, bool)
}

// licenseRules encodes the policy table in evaluation order. The first rule
// whose eval reports a match decides.
var licenseRules = []licenseRule{
	{name: "third_party_vendor", eval: ruleThirdPartyVendor},
	{name: "openjdk_build", eval: ruleOpenJDKBuild},
	{name: "unparseable_version", eval: ruleUnparseableVersion},
	{name: "pre_java8", eval: rulePreJava8},
	{name: "java8_update", eval: ruleJava8},
	{name: "java9_10", eval: ruleShortSupport(9, 10)},
	{name: "java11", eval: ruleJava11},
	{name: "java12_16", eval: ruleShortSupport(12, 16)},
	{name: "java17_patch", eval: ruleJava17},
	{name: "java18_20", eval: ruleJava18Through20},
	{name: "nftc", eval: ruleNFTC},
}

// Classify applies the licensing policy table to one raw record. It is total
// and deterministic: every input yields a decision with a non-empty
// explanation, and parse failures inside a rule degrade to that rule's
// fallback instead of propagating.
func Classify(record RawRecord) Decision {
	in := newRuleInput(record)
	for _, rule := range licenseRules {
		if decision, ok := rule.eval(in); ok {
			decision.Rule = rule.name
			return decision
		}
	}
	return Decision{
		Rule:        "unmatched",
		Explanation: "no licensing rule matched, defaulting to no license required",
	}
}

type ruleInput struct {
	version       string
	vendor        string
	vendorVersion string
	major         int
	majorErr      error
	buildDate     *time.Time
}

func newRuleInput(record RawRecord) ruleInput {
	in := ruleInput{
		version:       strings.TrimSpace(record[KeyVersion]),
		vendor:        strings.TrimSpace(record[KeyVendor]),
		vendorVersion: strings.TrimSpace(record[KeyVendorVersion]),
	}
	in.major, in.majorErr = Major(in.version)
	if raw := strings.TrimSpace(record[KeyBuildDate]); raw != "" {
		if parsed, err := time.Parse(buildDateLayout, raw); err == nil {
			in.buildDate = &parsed
		}
	}
	return in
}

func ruleThirdPartyVendor(in ruleInput) (Decision, bool) {
	vendor := strings.ToLower(in.vendor)
	if strings.Contains(vendor, "oracle") || strings.Contains(vendor, "sun") {
		return Decision{}, false
	}
	return Decision{
		Explanation: fmt.Sprintf("vendor %q is not an Oracle distribution, no commercial license required", in.vendor),
	}, true
}

func ruleOpenJDKBuild(in ruleInput) (Decision, bool) {
	if !strings.Contains(strings.ToLower(in.vendorVersion), "openjdk") {
		return Decision{}, false
	}
	return Decision{
		Explanation: fmt.Sprintf("vendor version %q is an OpenJDK build without long-term vendor support, no commercial license required", in.vendorVersion),
	}, true
}

func ruleUnparseableVersion(in ruleInput) (Decision, bool) {
	if in.majorErr == nil {
		return Decision{}, false
	}
	return Decision{
		Explanation: fmt.Sprintf("version %q could not be parsed, licensing data unavailable, defaulting to no license required", in.version),
	}, true
}

func rulePreJava8(in ruleInput) (Decision, bool) {
	if in.major >= 8 {
		return Decision{}, false
	}
	return Decision{
		Explanation: fmt.Sprintf("Java %d predates Java 8 and is end of life, no commercial license required", in.major),
	}, true
}

func ruleJava8(in ruleInput) (Decision, bool) {
	if in.major != 8 {
		return Decision{}, false
	}
	if update, ok := UpdateNumber(in.version); ok {
		if update >= java8CommercialUpdate {
			return Decision{
				Required:    true,
				Explanation: fmt.Sprintf("Java 8 update %d is at or past update %d, commercial license required", update, java8CommercialUpdate),
			}, true
		}
		return Decision{
			Explanation: fmt.Sprintf("Java 8 update %d predates update %d, no commercial license required", update, java8CommercialUpdate),
		}, true
	}
	if in.buildDate != nil {
		if in.buildDate.Before(java8LicenseCutover) {
			return Decision{
				Explanation: fmt.Sprintf("Java 8 build dated %s predates %s, no commercial license required", in.buildDate.Format(buildDateLayout), java8LicenseCutover.Format(buildDateLayout)),
			}, true
		}
		return Decision{
			Required:    true,
			Explanation: fmt.Sprintf("Java 8 build dated %s is on or after %s, commercial license required", in.buildDate.Format(buildDateLayout), java8LicenseCutover.Format(buildDateLayout)),
		}, true
	}
	return Decision{
		Explanation: "Java 8 without update number or build date, licensing data unavailable, defaulting to no license required",
	}, true
}

// ruleShortSupport covers the end-of-life short-support windows, which are
// commercial regardless of update level.
func ruleShortSupport(low, high int) func(ruleInput) (Decision, bool) {
	return func(in ruleInput) (Decision, bool) {
		if in.major < low || in.major > high {
			return Decision{}, false
		}
		return Decision{
			Required:    true,
			Explanation: fmt.Sprintf("Java %d is an end-of-life short-support release, commercial license required", in.major),
		}, true
	}
}

func ruleJava11(in ruleInput) (Decision, bool) {
	if in.major != 11 {
		return Decision{}, false
	}
	return Decision{
		Required:    true,
		Explanation: "Java 11 always requires a commercial license",
	}, true
}

func ruleJava17(in ruleInput) (Decision, bool) {
	if in.major != 17 {
		return Decision{}, false
	}
	if patch, ok := PatchNumber(in.version); ok {
		if patch >= java17CommercialPatch {
			return Decision{
				Required:    true,
				Explanation: fmt.Sprintf("Java 17 patch %d is at or past 17.0.%d, commercial license required", patch, java17CommercialPatch),
			}, true
		}
		return Decision{
			Explanation: fmt.Sprintf("Java 17 patch %d predates 17.0.%d, no commercial license required", patch, java17CommercialPatch),
		}, true
	}
	if in.buildDate != nil {
		if in.buildDate.Before(java17LicenseCutover) {
			return Decision{
				Explanation: fmt.Sprintf("Java 17 build dated %s predates %s, no commercial license required", in.buildDate.Format(buildDateLayout), java17LicenseCutover.Format(buildDateLayout)),
			}, true
		}
		return Decision{
			Required:    true,
			Explanation: fmt.Sprintf("Java 17 build dated %s is on or after %s, commercial license required", in.buildDate.Format(buildDateLayout), java17LicenseCutover.Format(buildDateLayout)),
		}, true
	}
	return Decision{
		Explanation: "Java 17 without patch number or build date, licensing data unavailable, defaulting to no license required",
	}, true
}

func ruleJava18Through20(in ruleInput) (Decision, bool) {
	if in.major < 18 || in.major > 20 {
		return Decision{}, false
	}
	return Decision{
		Explanation: fmt.Sprintf("Java %d falls inside the no-fee licensing window, no commercial license required", in.major),
	}, true
}

func ruleNFTC(in ruleInput) (Decision, bool) {
	if in.major < 21 {
		return Decision{}, false
	}
	if in.buildDate == nil {
		return Decision{
			Explanation: fmt.Sprintf("Java %d without build date assumed inside the no-fee licensing term, no commercial license required", in.major),
		}, true
	}
	if in.buildDate.Before(nftcLicenseCutover) {
		return Decision{
			Explanation: fmt.Sprintf("Java %d build dated %s is inside the no-fee licensing term, no commercial license required", in.major, in.buildDate.Format(buildDateLayout)),
		}, true
	}
	return Decision{
		Required:    true,
		Explanation: fmt.Sprintf("Java %d build dated %s is past the no-fee licensing term, commercial license required", in.major, in.buildDate.Format(buildDateLayout)),
	}, true
}
