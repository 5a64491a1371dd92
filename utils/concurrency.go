package utils

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a fixed minimum spacing between consecutive operations.
// It is a constant throttle, not an adaptive backoff.
type Pacer struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewPacer creates a Pacer with the given minimum interval.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until at least the interval has passed since the previous
// operation finished, as marked by Done, or since the previous Wait
// returned when Done was not called. The first call never blocks.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if remaining := p.interval - time.Since(p.last); remaining > 0 {
			t := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	p.last = time.Now()
	return nil
}

// Done marks the end of the paced operation. The next Wait measures its
// gap from here.
func (p *Pacer) Done() {
	p.mu.Lock()
	p.last = time.Now()
	p.mu.Unlock()
}

// Interval returns the configured spacing.
func (p *Pacer) Interval() time.Duration { return p.interval }
