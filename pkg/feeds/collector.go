package feeds

import (
	"context"
	"sync"
	"time"

	"github.com/sbomtools/vulnrank/pkg/logging"
	"github.com/sbomtools/vulnrank/pkg/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Collector fans per-advisory lookups out against a rate-limited
// provider with a cap on simultaneous outstanding requests. Individual
// failures and timeouts mark the advisory as data-incomplete; they never
// abort the batch or block the run indefinitely.
type Collector struct {
	provider    Provider
	limiter     *rate.Limiter
	concurrency int
	itemTimeout time.Duration
}

// CollectorOptions bounds the collector's footprint against rate-limited
// external services.
type CollectorOptions struct {
	Concurrency int           // Max simultaneous lookups; defaults to 4
	RatePerSec  float64       // Sustained request rate; 0 disables limiting
	ItemTimeout time.Duration // Per-advisory deadline; defaults to 5s
}

// NewCollector wraps a provider with bounded-concurrency batching.
func NewCollector(provider Provider, opts CollectorOptions) *Collector {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = 5 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}

	return &Collector{
		provider:    provider,
		limiter:     limiter,
		concurrency: opts.Concurrency,
		itemTimeout: opts.ItemTimeout,
	}
}

// Collect looks up every advisory and returns the signals that were
// successfully collected, plus the ids that failed. Missing ids are
// simply absent from the map; the scoring core treats them as unknown.
func (c *Collector) Collect(ctx context.Context, advisoryIDs []string) (map[string]model.ThreatSignal, []string) {
	var mu sync.Mutex
	signals := make(map[string]model.ThreatSignal, len(advisoryIDs))
	var failed []string

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, id := range advisoryIDs {
		id := id
		g.Go(func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				mu.Lock()
				failed = append(failed, id)
				mu.Unlock()
				return nil
			}

			itemCtx, cancel := context.WithTimeout(ctx, c.itemTimeout)
			defer cancel()

			sig, err := c.provider.Lookup(itemCtx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logging.Warn("threat signal lookup failed", "advisory", id, "error", err)
				failed = append(failed, id)
				// Keep whatever partial signal the provider salvaged
				// (e.g. the exploited flag when only EPSS failed).
				if sig.Exploited {
					signals[id] = sig
				}
				return nil
			}
			signals[id] = sig
			return nil
		})
	}

	// Workers only return nil; the group is used for its limit.
	_ = g.Wait()

	return signals, failed
}
