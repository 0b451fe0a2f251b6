package watcher

import (
	"context"
	"time"

	"github.com/sbomtools/vulnrank/pkg/logging"
)

// Debouncer batches rapid file system events so a burst of writes
// triggers a single re-analysis. An event is released after quietPeriod
// without new input, or after maxWait since the first buffered event.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	var (
		quiet    = time.NewTimer(d.quietPeriod)
		deadline = time.NewTimer(d.maxWait)
		pending  []string
		seen     = make(map[string]bool)
	)
	stopTimer(quiet)
	stopTimer(deadline)

	flush := func() {
		stopTimer(quiet)
		stopTimer(deadline)
		if len(pending) == 0 {
			return
		}

		logging.Debug("flushing accumulated changes", "count", len(pending))
		d.output <- ChangeEvent{
			Paths:     pending,
			Timestamp: time.Now(),
		}
		pending = nil
		seen = make(map[string]bool)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			close(d.output)
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				close(d.output)
				return
			}

			first := len(pending) == 0
			for _, path := range event.Paths {
				if !seen[path] {
					seen[path] = true
					pending = append(pending, path)
				}
			}

			resetTimer(quiet, d.quietPeriod)
			if first {
				resetTimer(deadline, d.maxWait)
			}

		case <-quiet.C:
			flush()

		case <-deadline.C:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, dur time.Duration) {
	stopTimer(t)
	t.Reset(dur)
}
