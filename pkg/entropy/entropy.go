// Package entropy derives fusion weights from the information content of
// each signal category's distribution across the current inventory. A
// signal that barely varies carries little discriminating information and
// is down-weighted automatically; a fixed weighting scheme cannot do this.
package entropy

import (
	"fmt"
	"math"

	"github.com/sbomtools/vulnrank/pkg/model"
	"gonum.org/v1/gonum/stat"
)

// DefaultBins is the default number of equal-width histogram bins used to
// discretize continuous signals. It is a tunable, not a hidden constant.
const DefaultBins = 10

// Signals holds the full per-component vectors of the four signal
// categories for one inventory. All slices have one entry per component,
// in the same order.
type Signals struct {
	Topology           []float64 // TCS per component, [0,1]
	ExploitProbability []float64 // Aggregated exploit probability per component, [0,1]
	Exploited          []bool    // Aggregated exploited flag per component
	Severity           []float64 // Normalized severity per component, [0,1]
}

// Weights computes one WeightSet from the signal distributions. Each
// category's Shannon entropy is normalized by the maximum entropy for its
// bin count and the normalized entropies are scaled to sum to 1. When
// every category is degenerate (constant signals, or a single-component
// inventory) the uniform fallback applies; the second return value
// reports that the fallback was taken.
func Weights(s Signals, bins int) (model.WeightSet, bool, error) {
	if bins < 2 {
		return model.WeightSet{}, false, fmt.Errorf("entropy bin count %d below minimum of 2", bins)
	}

	topology := normalizedEntropy(s.Topology, bins)
	probability := normalizedEntropy(s.ExploitProbability, bins)
	exploited := normalizedEntropy(boolsToFloats(s.Exploited), 2)
	severity := normalizedEntropy(s.Severity, bins)

	total := topology + probability + exploited + severity
	if total == 0 {
		return model.EqualWeights(), true, nil
	}

	return model.WeightSet{
		Topology:           topology / total,
		ExploitProbability: probability / total,
		ExploitedFlag:      exploited / total,
		Severity:           severity / total,
	}, false, nil
}

// normalizedEntropy discretizes values into equal-width bins over [0,1]
// and returns the Shannon entropy of the empirical bin distribution,
// normalized by the maximum entropy achievable with that bin count. A
// constant signal has entropy 0; a perfectly uniform one has entropy 1.
func normalizedEntropy(values []float64, bins int) float64 {
	if len(values) == 0 {
		return 0
	}

	counts := make([]float64, bins)
	for _, v := range values {
		counts[binIndex(v, bins)]++
	}

	p := make([]float64, bins)
	n := float64(len(values))
	for i, c := range counts {
		p[i] = c / n
	}

	// stat.Entropy uses the natural log; the base cancels against the
	// max-entropy normalizer as long as both use the same one.
	return stat.Entropy(p) / math.Log(float64(bins))
}

// binIndex maps a value in [0,1] to its equal-width bin. Out-of-range
// values clamp to the edge bins so dirty inputs cannot panic the engine.
func binIndex(v float64, bins int) int {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return bins - 1
	}
	return int(v * float64(bins))
}

func boolsToFloats(values []bool) []float64 {
	out := make([]float64, len(values))
	for i, b := range values {
		if b {
			out[i] = 1
		}
	}
	return out
}
