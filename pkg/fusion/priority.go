package fusion

import (
	"sort"

	"github.com/sbomtools/vulnrank/pkg/model"
	"gonum.org/v1/gonum/stat"
)

// Static floors on the 0-10 band scale. Even if the top decile of an
// inventory's risks is uniformly weak, it is not promoted to CRITICAL.
const (
	criticalFloor = 7.0
	highFloor     = 4.0
)

// assignPriorities maps composite scores onto remediation bands using
// quantile thresholds over the nonzero-composite population, floored by
// the static minimums. Bands are presentation metadata; the total order
// is fixed by Rank before this runs.
func assignPriorities(records []model.ScoreRecord) {
	var risky []float64
	for _, r := range records {
		if r.Composite > 0 {
			risky = append(risky, r.Composite*10)
		}
	}

	tauCritical := criticalFloor
	tauHigh := highFloor
	if len(risky) > 0 {
		sort.Float64s(risky)
		if p90 := stat.Quantile(0.9, stat.Empirical, risky, nil); p90 > tauCritical {
			tauCritical = p90
		}
		if p70 := stat.Quantile(0.7, stat.Empirical, risky, nil); p70 > tauHigh {
			tauHigh = p70
		}
	}

	for i := range records {
		banded := records[i].Composite * 10
		switch {
		case banded <= 0:
			records[i].Priority = model.PriorityLow
		case banded >= tauCritical:
			records[i].Priority = model.PriorityCritical
		case banded >= tauHigh:
			records[i].Priority = model.PriorityHigh
		default:
			records[i].Priority = model.PriorityMedium
		}
	}
}

// mergeSorted merges two sorted id lists, dropping duplicates.
func mergeSorted(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	for _, id := range a {
		seen[id] = true
	}
	for _, id := range b {
		seen[id] = true
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
