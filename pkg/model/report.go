package model

import "time"

// Report is the durable output of one analysis run: the ranked records
// plus everything a caller needs to explain the ranking.
type Report struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generatedAt"`

	Records  []ScoreRecord            `json:"records"`  // Ordered by rank
	Weights  WeightSet                `json:"weights"`  // Fusion weights used for this run
	Topology map[string]TopologyScore `json:"topology"` // Raw per-component scores, keyed by PURL

	// IncompleteAdvisories lists advisory ids that lacked an exploit
	// probability or a severity score; they were scored with the
	// documented fallbacks rather than dropped.
	IncompleteAdvisories []string `json:"incompleteAdvisories,omitempty"`

	// Notices describe degenerate inputs that were handled via fallbacks
	// (zero vulnerabilities, constant signals). They are informational.
	Notices []string `json:"notices,omitempty"`

	// Summary counters, exposed for reporting.
	TotalComponents      int `json:"totalComponents"`
	TotalVulnerabilities int `json:"totalVulnerabilities"`
	CriticalFindings     int `json:"criticalFindings"`
	HubComponents        int `json:"hubComponents"` // Components with TCS above the hub threshold
	MaxDepth             int `json:"maxDepth"`      // Maximum observed dependency depth, in edges
}

// Summary is the condensed view of a report used by list endpoints.
type Summary struct {
	ID                   string    `json:"id"`
	GeneratedAt          time.Time `json:"generatedAt"`
	TotalComponents      int       `json:"totalComponents"`
	TotalVulnerabilities int       `json:"totalVulnerabilities"`
	CriticalFindings     int       `json:"criticalFindings"`
}

// Summarize returns the condensed view of the report.
func (r *Report) Summarize() Summary {
	return Summary{
		ID:                   r.ID,
		GeneratedAt:          r.GeneratedAt,
		TotalComponents:      r.TotalComponents,
		TotalVulnerabilities: r.TotalVulnerabilities,
		CriticalFindings:     r.CriticalFindings,
	}
}
