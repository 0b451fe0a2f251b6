// Package inventory loads the assembled inventory document that feeds an
// analysis run. The document is plain JSON carrying components, dependency
// edges, optional designated roots, vulnerabilities, and optional inline
// threat signals.
package inventory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sbomtools/vulnrank/pkg/model"
)

// Load reads and validates an inventory document from a file.
func Load(path string) (model.Inventory, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Inventory{}, fmt.Errorf("failed to open inventory: %w", err)
	}
	defer f.Close()

	inv, err := Parse(f)
	if err != nil {
		return model.Inventory{}, fmt.Errorf("invalid inventory %s: %w", path, err)
	}
	return inv, nil
}

// Parse decodes and validates an inventory document.
func Parse(r io.Reader) (model.Inventory, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var inv model.Inventory
	if err := dec.Decode(&inv); err != nil {
		return model.Inventory{}, fmt.Errorf("failed to decode inventory: %w", err)
	}

	if err := Validate(inv); err != nil {
		return model.Inventory{}, err
	}
	return inv, nil
}

// Validate checks the structural invariants that can be verified before
// graph construction. Reference integrity of edges and vulnerability
// component lists is checked again during the run itself.
func Validate(inv model.Inventory) error {
	if len(inv.Components) == 0 {
		return fmt.Errorf("inventory has no components")
	}

	seen := make(map[string]bool, len(inv.Components))
	for i, c := range inv.Components {
		if c.PURL == "" {
			return fmt.Errorf("component %d has an empty purl", i)
		}
		if seen[c.PURL] {
			return fmt.Errorf("duplicate component %s", c.PURL)
		}
		seen[c.PURL] = true
	}

	for i, e := range inv.Edges {
		if e.Parent == "" || e.Child == "" {
			return fmt.Errorf("edge %d has an empty endpoint", i)
		}
		if !seen[e.Parent] {
			return fmt.Errorf("edge %d references unknown parent %s", i, e.Parent)
		}
		if !seen[e.Child] {
			return fmt.Errorf("edge %d references unknown child %s", i, e.Child)
		}
	}

	for _, root := range inv.Roots {
		if !seen[root] {
			return fmt.Errorf("root %s is not a component", root)
		}
	}

	vulnSeen := make(map[string]bool, len(inv.Vulnerabilities))
	for i, v := range inv.Vulnerabilities {
		if v.ID == "" {
			return fmt.Errorf("vulnerability %d has an empty id", i)
		}
		if vulnSeen[v.ID] {
			return fmt.Errorf("duplicate vulnerability %s", v.ID)
		}
		vulnSeen[v.ID] = true
		if len(v.Components) == 0 {
			return fmt.Errorf("vulnerability %s affects no components", v.ID)
		}
		for _, purl := range v.Components {
			if !seen[purl] {
				return fmt.Errorf("vulnerability %s references unknown component %s", v.ID, purl)
			}
		}
		if v.Severity.Known && (v.Severity.Value < 0 || v.Severity.Value > 10) {
			return fmt.Errorf("vulnerability %s has severity %g outside [0, 10]", v.ID, v.Severity.Value)
		}
	}

	for id, sig := range inv.Signals {
		if sig.ExploitProbability.Known {
			p := sig.ExploitProbability.Value
			if p < 0 || p > 1 {
				return fmt.Errorf("signal %s has exploit probability %g outside [0, 1]", id, p)
			}
		}
	}

	return nil
}
