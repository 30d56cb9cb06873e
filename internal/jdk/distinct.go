package jdk

import (
	"sort"

	"github.com/asm0dey/java-version-checker-sub002/internal/domain"
)

type identityKey struct {
	version        string
	runtimeVersion string
	vendor         string
}

// Aggregate collapses observations with equal (version, runtimeVersion,
// vendor) identity into a distinct set, keeping the first-seen observation on
// collision, then sorts survivors by raw version string in byte order. The
// legacy and licensed counters are computed over the distinct set.
func Aggregate(observations []domain.RuntimeObservation) domain.DistinctSet {
	seen := make(map[identityKey]struct{}, len(observations))
	distinct := make([]domain.RuntimeObservation, 0, len(observations))
	for _, obs := range observations {
		key := identityKey{
			version:        obs.Version,
			runtimeVersion: obs.RuntimeVersion,
			vendor:         obs.Vendor,
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		distinct = append(distinct, obs)
	}
	sort.SliceStable(distinct, func(i, j int) bool {
		return distinct[i].Version < distinct[j].Version
	})

	set := domain.DistinctSet{
		Observations:  distinct,
		TotalFiles:    len(observations),
		DistinctCount: len(distinct),
	}
	for _, obs := range distinct {
		if obs.IsLegacyTier {
			set.LegacyCount++
		}
		if obs.RequiresLicense {
			set.LicensedCount++
		}
	}
	return set
}
