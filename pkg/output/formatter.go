package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sbomtools/vulnrank/pkg/model"
)

// PrintReport prints a nicely formatted ranked report with colors
func PrintReport(report *model.Report) {
	FprintReport(os.Stdout, report)
}

// FprintReport writes the formatted report to w
func FprintReport(w io.Writer, report *model.Report) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "Vulnerability Priority Report")
	bold.Fprintln(w, "=============================")
	fmt.Fprintf(w, "Components: %d\n", report.TotalComponents)
	fmt.Fprintf(w, "Vulnerabilities: %d\n", report.TotalVulnerabilities)
	fmt.Fprintf(w, "Max dependency depth: %d\n", report.MaxDepth)
	if report.HubComponents > 0 {
		cyan.Fprintf(w, "Hub components: %d\n", report.HubComponents)
	}
	if report.CriticalFindings > 0 {
		red.Fprintf(w, "Critical findings: %d\n", report.CriticalFindings)
	} else {
		green.Fprintln(w, "No critical findings")
	}
	fmt.Fprintln(w)

	if len(report.Records) == 0 {
		green.Fprintln(w, "✓ Nothing to remediate")
	} else {
		bold.Fprintln(w, "RANKED FINDINGS:")
		fmt.Fprintf(w, "%5s  %-8s  %9s  %-18s  %s\n",
			"RANK", "PRIORITY", "COMPOSITE", "ADVISORY", "COMPONENT")
		for _, rec := range report.Records {
			pc := priorityColor(rec.Priority)
			marker := " "
			if rec.Exploited {
				marker = "!"
			}
			pc.Fprintf(w, "%4d%s  %-8s  %9.4f  %-18s  %s\n",
				rec.Rank, marker, rec.Priority, rec.Composite, rec.Vulnerability, rec.Component)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Findings marked ! are on the known-exploited list")
	}

	fmt.Fprintln(w)
	bold.Fprintln(w, "FUSION WEIGHTS:")
	fmt.Fprintf(w, "  topology:            %.4f\n", report.Weights.Topology)
	fmt.Fprintf(w, "  exploit probability: %.4f\n", report.Weights.ExploitProbability)
	fmt.Fprintf(w, "  exploited flag:      %.4f\n", report.Weights.ExploitedFlag)
	fmt.Fprintf(w, "  severity:            %.4f\n", report.Weights.Severity)

	if len(report.IncompleteAdvisories) > 0 {
		fmt.Fprintln(w)
		yellow.Fprintf(w, "Incomplete threat data for %d advisor(ies):\n", len(report.IncompleteAdvisories))
		for _, id := range report.IncompleteAdvisories {
			yellow.Fprintf(w, "  %s\n", id)
		}
	}

	for _, notice := range report.Notices {
		fmt.Fprintln(w)
		cyan.Fprintf(w, "Note: %s\n", notice)
	}
}

func priorityColor(p model.Priority) *color.Color {
	switch p {
	case model.PriorityCritical:
		return color.New(color.FgRed, color.Bold)
	case model.PriorityHigh:
		return color.New(color.FgRed)
	case model.PriorityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}
