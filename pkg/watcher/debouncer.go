package watcher

import (
	"context"
	"time"

	"github.com/ritzau/promptgraph/pkg/logging"
)

// Debouncer merges bursts of change events. It emits once input has been
// quiet for quietPeriod, or once maxWait has passed since the first event of
// a burst, whichever comes first. Paths are deduplicated within a burst and
// keep first-seen order.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a debouncer reading from input.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start runs the debouncer until ctx is cancelled or input is closed. Any
// pending paths are flushed before Output is closed.
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		paths    []string
		seen     = make(map[string]bool)
		events   int
		quiet    <-chan time.Time
		deadline <-chan time.Time
	)

	flush := func() {
		quiet, deadline = nil, nil
		if len(paths) == 0 {
			return
		}
		logging.Debug("flushing accumulated events", "events", events, "paths", len(paths))
		d.output <- ChangeEvent{Paths: paths, Timestamp: time.Now()}
		paths = nil
		seen = make(map[string]bool)
		events = 0
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			events++
			for _, p := range event.Paths {
				if !seen[p] {
					seen[p] = true
					paths = append(paths, p)
				}
			}

			quiet = time.After(d.quietPeriod)
			if deadline == nil {
				deadline = time.After(d.maxWait)
			}

		case <-quiet:
			flush()

		case <-deadline:
			flush()
		}
	}
}

// Output returns the channel of debounced events.
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
