package output

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/sbomtools/vulnrank/pkg/model"
)

func TestFprintReport(t *testing.T) {
	color.NoColor = true

	report := &model.Report{
		Records: []model.ScoreRecord{
			{
				Component:     "pkg:npm/lib@2.1.0",
				Vulnerability: "CVE-2024-2222",
				Composite:     0.7265,
				Rank:          1,
				Priority:      model.PriorityCritical,
				Exploited:     true,
			},
			{
				Component:     "pkg:npm/other@1.0.0",
				Vulnerability: "CVE-2024-3333",
				Composite:     0.3077,
				Rank:          2,
				Priority:      model.PriorityLow,
			},
		},
		Weights:              model.EqualWeights(),
		IncompleteAdvisories: []string{"CVE-2024-3333"},
		Notices:              []string{"all signal categories degenerate, using equal weights"},
		TotalComponents:      3,
		TotalVulnerabilities: 2,
		CriticalFindings:     1,
		HubComponents:        1,
		MaxDepth:             2,
	}

	var sb strings.Builder
	FprintReport(&sb, report)
	out := sb.String()

	for _, want := range []string{
		"Vulnerability Priority Report",
		"Components: 3",
		"Critical findings: 1",
		"CVE-2024-2222",
		"CRITICAL",
		"0.7265",
		"known-exploited",
		"FUSION WEIGHTS:",
		"Incomplete threat data",
		"CVE-2024-3333",
		"equal weights",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Report output missing %q:\n%s", want, out)
		}
	}
}

func TestFprintReportEmpty(t *testing.T) {
	color.NoColor = true

	report := &model.Report{TotalComponents: 5}

	var sb strings.Builder
	FprintReport(&sb, report)
	out := sb.String()

	if !strings.Contains(out, "Nothing to remediate") {
		t.Errorf("Expected empty-report message, got:\n%s", out)
	}
	if !strings.Contains(out, "No critical findings") {
		t.Errorf("Expected no-critical message, got:\n%s", out)
	}
}
