// Package fusion combines topological, threat and severity signals into
// one composite priority score per (component, vulnerability) pair and
// produces the run's total order.
package fusion

import (
	"fmt"
	"sort"
	"time"

	"github.com/sbomtools/vulnrank/pkg/entropy"
	"github.com/sbomtools/vulnrank/pkg/graph"
	"github.com/sbomtools/vulnrank/pkg/model"
	"github.com/sbomtools/vulnrank/pkg/signal"
)

// Config holds the per-run scoring policy. Every field is explicit so
// runs with different policies can execute side by side.
type Config struct {
	DepthWeight   float64 // Convex weight of inverted depth in the TCS
	EntropyBins   int     // Equal-width bins for continuous-signal entropy
	SeverityScale float64 // Known maximum of the severity scale (CVSS: 10)
	HubThreshold  float64 // TCS above which a component counts as a hub
}

// DefaultConfig returns the standard scoring policy.
func DefaultConfig() Config {
	return Config{
		DepthWeight:   0.5,
		EntropyBins:   entropy.DefaultBins,
		SeverityScale: 10,
		HubThreshold:  0.7,
	}
}

// Analyze executes one full scoring run over an assembled inventory:
// graph construction and topological scoring, threat-signal aggregation,
// entropy-driven weighting, and rank fusion. The returned report carries
// the ordered records together with the weight set and the raw topology
// scores, so a caller can explain why an item ranked where it did.
//
// An inventory whose vulnerabilities or edges reference unknown
// components fails the whole run with an IntegrityError; nothing is
// partially scored.
func Analyze(inv *model.Inventory, cfg Config) (*model.Report, error) {
	cg, err := graph.Build(inv.Components, inv.Edges)
	if err != nil {
		return nil, err
	}

	for _, v := range inv.Vulnerabilities {
		for _, purl := range v.Components {
			if !cg.Contains(purl) {
				return nil, &model.IntegrityError{Kind: "vulnerability", Reference: v.ID, Missing: purl}
			}
		}
	}

	topology, maxDepth, err := cg.Scores(inv.Roots, graph.Options{DepthWeight: cfg.DepthWeight})
	if err != nil {
		return nil, fmt.Errorf("topology scoring: %w", err)
	}

	report := &model.Report{
		GeneratedAt:          time.Now().UTC(),
		Topology:             topology,
		TotalComponents:      len(inv.Components),
		TotalVulnerabilities: len(inv.Vulnerabilities),
		MaxDepth:             maxDepth,
	}
	for _, s := range topology {
		if s.TCS > cfg.HubThreshold {
			report.HubComponents++
		}
	}

	if len(inv.Vulnerabilities) == 0 {
		report.Records = []model.ScoreRecord{}
		report.Notices = append(report.Notices, "inventory carries no vulnerabilities; ranking is empty and weighting was skipped")
		return report, nil
	}

	aggregates, probIncomplete := signal.Aggregates(inv.Vulnerabilities, inv.Signals)
	severities, sevIncomplete := resolveSeverities(inv.Vulnerabilities, cfg.SeverityScale)
	report.IncompleteAdvisories = mergeSorted(probIncomplete, sevIncomplete)

	weights, fellBack, err := entropy.Weights(categoryVectors(inv, topology, aggregates, severities, cfg), cfg.EntropyBins)
	if err != nil {
		return nil, fmt.Errorf("entropy weighting: %w", err)
	}
	if fellBack {
		report.Notices = append(report.Notices, "all signal categories are degenerate; equal weighting applied")
	}
	report.Weights = weights

	report.Records = buildRecords(inv, topology, severities, weights, cfg)
	Rank(report.Records)
	assignPriorities(report.Records)

	for _, r := range report.Records {
		if r.Priority == model.PriorityCritical {
			report.CriticalFindings++
		}
	}

	return report, nil
}

// Composite fuses the four weighted category values for one record. The
// exploited flag contributes 1/0; severityNorm is the raw severity
// divided by its scale. The result is clamped to [0,1].
func Composite(tcs, exploitProbability float64, exploited bool, severityNorm float64, w model.WeightSet) float64 {
	flag := 0.0
	if exploited {
		flag = 1
	}

	score := w.Topology*tcs +
		w.ExploitProbability*exploitProbability +
		w.ExploitedFlag*flag +
		w.Severity*severityNorm

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// resolveSeverities normalizes each advisory's severity to [0,1]. An
// advisory without a numeric severity falls back to the base score
// derived from its CVSS vector when one parses; advisories with neither
// score as 0 and are reported as incomplete.
func resolveSeverities(vulns []model.Vulnerability, scale float64) (map[string]model.Score, []string) {
	severities := make(map[string]model.Score, len(vulns))
	var incomplete []string

	for _, v := range vulns {
		sev := v.Severity
		if !sev.Known {
			sev = signal.BaseScore(v.Vector)
		}
		severities[v.ID] = sev
		if !sev.Known {
			incomplete = append(incomplete, v.ID)
		}
	}

	sort.Strings(incomplete)
	return severities, incomplete
}

// categoryVectors assembles the per-component vectors the entropy engine
// consumes, in inventory component order. A component's severity entry is
// the maximum normalized severity across its advisories.
func categoryVectors(inv *model.Inventory, topology map[string]model.TopologyScore, aggregates map[string]signal.Aggregate, severities map[string]model.Score, cfg Config) entropy.Signals {
	maxSeverity := make(map[string]float64, len(inv.Components))
	for _, v := range inv.Vulnerabilities {
		norm := severities[v.ID].Or(0) / cfg.SeverityScale
		for _, purl := range v.Components {
			if norm > maxSeverity[purl] {
				maxSeverity[purl] = norm
			}
		}
	}

	s := entropy.Signals{
		Topology:           make([]float64, len(inv.Components)),
		ExploitProbability: make([]float64, len(inv.Components)),
		Exploited:          make([]bool, len(inv.Components)),
		Severity:           make([]float64, len(inv.Components)),
	}
	for i, c := range inv.Components {
		s.Topology[i] = topology[c.PURL].TCS
		s.ExploitProbability[i] = aggregates[c.PURL].ExploitProbability
		s.Exploited[i] = aggregates[c.PURL].Exploited
		s.Severity[i] = maxSeverity[c.PURL]
	}
	return s
}

// buildRecords produces one record per (component, vulnerability) pair
// that has at least one nonzero signal. Pair-level threat values come
// from the pair's own advisory; the topology term is the component's.
func buildRecords(inv *model.Inventory, topology map[string]model.TopologyScore, severities map[string]model.Score, weights model.WeightSet, cfg Config) []model.ScoreRecord {
	records := make([]model.ScoreRecord, 0, len(inv.Vulnerabilities))

	for _, v := range inv.Vulnerabilities {
		sig := inv.Signals[v.ID]
		prob := sig.ExploitProbability.Or(0)
		sev := severities[v.ID]
		sevNorm := sev.Or(0) / cfg.SeverityScale

		for _, purl := range v.Components {
			tcs := topology[purl].TCS
			if tcs == 0 && prob == 0 && !sig.Exploited && sevNorm == 0 {
				continue
			}

			records = append(records, model.ScoreRecord{
				Component:          purl,
				Vulnerability:      v.ID,
				Composite:          Composite(tcs, prob, sig.Exploited, sevNorm, weights),
				TCS:                tcs,
				ExploitProbability: prob,
				Exploited:          sig.Exploited,
				Severity:           sev,
				Exposure:           signal.ExposureIndex(v.Vector),
			})
		}
	}

	return records
}

// Rank sorts records into the run's total order and assigns 1-based
// ranks. Primary key is the composite score, descending. Ties break on
// the exploited flag (active exploitation is an operational emergency
// the composite may underweight), then raw severity, then advisory id,
// then component id for full determinism when one advisory spans
// multiple components.
func Rank(records []model.ScoreRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		if a.Exploited != b.Exploited {
			return a.Exploited
		}
		if as, bs := a.Severity.Or(0), b.Severity.Or(0); as != bs {
			return as > bs
		}
		if a.Vulnerability != b.Vulnerability {
			return a.Vulnerability < b.Vulnerability
		}
		return a.Component < b.Component
	})

	for i := range records {
		records[i].Rank = i + 1
	}
}
