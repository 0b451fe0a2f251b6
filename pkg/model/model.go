package model

// Component represents a single entry of a software inventory.
// Components are immutable once loaded; identity is the package URL.
type Component struct {
	PURL      string `json:"purl"`      // Package URL, unique within an inventory
	Name      string `json:"name"`      // Package name (e.g., "log4j-core")
	Version   string `json:"version"`   // Package version
	Ecosystem string `json:"ecosystem"` // e.g., "maven", "npm", "pypi"
}

// DependencyEdge is a directed parent→child dependency between two components.
type DependencyEdge struct {
	Parent string `json:"parent"` // PURL of the depending component
	Child  string `json:"child"`  // PURL of the dependency
}

// Score is a float64 with an explicit absent state. External feeds and
// SBOM documents routinely omit values; an absent score must never leak
// into arithmetic as an implicit zero without the caller deciding so.
type Score struct {
	Value float64 `json:"value"`
	Known bool    `json:"known"`
}

// KnownScore returns a Score carrying v.
func KnownScore(v float64) Score {
	return Score{Value: v, Known: true}
}

// Or returns the score's value, or fallback if the score is absent.
func (s Score) Or(fallback float64) float64 {
	if !s.Known {
		return fallback
	}
	return s.Value
}

// Vulnerability represents one advisory attached to one or more components.
type Vulnerability struct {
	ID          string   `json:"id"`                    // Advisory id (e.g., "CVE-2021-44228")
	Components  []string `json:"components"`            // PURLs of affected components
	Severity    Score    `json:"severity"`              // CVSS base score on the 0-10 scale, may be absent
	Vector      string   `json:"vector,omitempty"`      // CVSS vector string, may be empty
	Description string   `json:"description,omitempty"` // Short advisory summary
}

// ThreatSignal holds the raw external threat feed values for one advisory.
type ThreatSignal struct {
	ExploitProbability Score `json:"exploitProbability"` // EPSS-style probability in [0,1], may be absent
	Exploited          bool  `json:"exploited"`          // Known-exploited (KEV) flag; false when the feed has no record
}

// TopologyScore holds the per-component structural metrics computed by the
// graph builder. All values are normalized to [0,1].
type TopologyScore struct {
	Depth      float64 `json:"depth"`      // Normalized shortest distance from the root set
	Centrality float64 `json:"centrality"` // Fraction of other components transitively depending on this one
	TCS        float64 `json:"tcs"`        // Topological Criticality Score
}

// WeightSet holds one fusion weight per signal category. Weights are
// non-negative and sum to 1 for a run; they are a function of the run's
// inventory and are never reused across runs.
type WeightSet struct {
	Topology           float64 `json:"topology"`
	ExploitProbability float64 `json:"exploitProbability"`
	ExploitedFlag      float64 `json:"exploitedFlag"`
	Severity           float64 `json:"severity"`
}

// Sum returns the total of all weights.
func (w WeightSet) Sum() float64 {
	return w.Topology + w.ExploitProbability + w.ExploitedFlag + w.Severity
}

// EqualWeights returns the uniform fallback weighting.
func EqualWeights() WeightSet {
	return WeightSet{
		Topology:           0.25,
		ExploitProbability: 0.25,
		ExploitedFlag:      0.25,
		Severity:           0.25,
	}
}

// Priority is the remediation band assigned to a score record.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// ScoreRecord is the scored (component, vulnerability) pair produced by a
// run. Records are immutable once the run completes.
type ScoreRecord struct {
	Component          string   `json:"component"`  // PURL
	Vulnerability      string   `json:"vulnerability"`
	Composite          float64  `json:"composite"` // Fused priority score in [0,1]
	Rank               int      `json:"rank"`      // 1-based position in the run's total order
	Priority           Priority `json:"priority"`
	TCS                float64  `json:"tcs"`
	ExploitProbability float64  `json:"exploitProbability"`
	Exploited          bool     `json:"exploited"`
	Severity           Score    `json:"severity"` // Raw 0-10 severity as supplied
	Exposure           float64  `json:"exposure"` // CVSS attack-vector exposure index, reporting only
}

// Inventory is the fully assembled input of one analysis run.
type Inventory struct {
	Components      []Component             `json:"components"`
	Edges           []DependencyEdge        `json:"edges"`
	Roots           []string                `json:"roots,omitempty"` // PURLs of top-level components; empty = derive from in-degree
	Vulnerabilities []Vulnerability         `json:"vulnerabilities"`
	Signals         map[string]ThreatSignal `json:"signals,omitempty"` // Keyed by advisory id
}
