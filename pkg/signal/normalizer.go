// Package signal maps raw per-advisory threat feed values into bounded,
// comparable per-component aggregates.
package signal

import (
	"sort"

	"github.com/sbomtools/vulnrank/pkg/model"
)

// Aggregate is the normalized threat signal of one component across all
// of its advisories.
type Aggregate struct {
	// ExploitProbability is the maximum exploit probability across the
	// component's advisories: a component is as dangerous as its most
	// exploitable flaw. Advisories with no probability contribute 0.
	ExploitProbability float64

	// Exploited is the OR across the component's advisories.
	Exploited bool
}

// Aggregates folds per-advisory threat signals into per-component values.
// The second return value lists advisory ids whose exploit probability was
// absent from the feed data; those advisories were aggregated with the
// probability fallback of 0 and the caller surfaces them as incomplete
// rather than treating them as errors.
func Aggregates(vulns []model.Vulnerability, signals map[string]model.ThreatSignal) (map[string]Aggregate, []string) {
	aggregates := make(map[string]Aggregate)
	incomplete := make(map[string]bool)

	for _, v := range vulns {
		sig, ok := signals[v.ID]
		if !ok || !sig.ExploitProbability.Known {
			incomplete[v.ID] = true
		}

		prob := sig.ExploitProbability.Or(0)
		for _, purl := range v.Components {
			agg := aggregates[purl]
			if prob > agg.ExploitProbability {
				agg.ExploitProbability = prob
			}
			agg.Exploited = agg.Exploited || sig.Exploited
			aggregates[purl] = agg
		}
	}

	ids := make([]string, 0, len(incomplete))
	for id := range incomplete {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return aggregates, ids
}
