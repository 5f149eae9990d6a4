package ingest

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a fixed delay between the end of one external call and
// the start of the next.
type Pacer struct {
	Delay time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewPacer creates a pacer. A zero delay never waits.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{Delay: delay}
}

// Wait blocks until Delay has passed since the previous call finished, or
// ctx is done. The first call does not wait. A call that never reports
// Done is counted from its start.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.mu.Lock()
		var wait time.Duration
		if !p.last.IsZero() && p.Delay > 0 {
			wait = p.Delay - time.Since(p.last)
		}
		if wait <= 0 {
			p.last = time.Now()
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Done marks the end of the call admitted by the last Wait.
func (p *Pacer) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.last = time.Now()
	p.mu.Unlock()
}
