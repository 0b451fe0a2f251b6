// Package feeds collects external threat signals (exploit probability,
// known-exploited flags) for advisories. The scoring core never calls
// the network; it consumes whatever this package managed to collect and
// treats missing entries as absent data.
package feeds

import (
	"context"

	"github.com/sbomtools/vulnrank/pkg/model"
)

// Provider looks up the threat signal of a single advisory. A lookup
// error means the signal could not be collected; it is reported per item
// and never aborts a batch.
type Provider interface {
	Lookup(ctx context.Context, advisoryID string) (model.ThreatSignal, error)
}

// Combined joins an exploit-probability source and a known-exploited
// catalog into one Provider. A probability failure still returns the
// exploited flag: partial data beats no data.
type Combined struct {
	EPSS *EPSSClient
	KEV  *KEVCatalog
}

// Lookup implements Provider.
func (c *Combined) Lookup(ctx context.Context, advisoryID string) (model.ThreatSignal, error) {
	sig := model.ThreatSignal{}
	if c.KEV != nil {
		sig.Exploited = c.KEV.Contains(advisoryID)
	}

	if c.EPSS == nil {
		return sig, nil
	}

	prob, err := c.EPSS.Probability(ctx, advisoryID)
	if err != nil {
		return sig, err
	}
	sig.ExploitProbability = prob
	return sig, nil
}
