package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum interval between successive operations. It is
// independent of quota accounting: even an account with plenty of budget
// must not fetch in bursts that would themselves trigger throttling.
type Pacer struct {
	interval time.Duration
	last     time.Time
	mu       sync.Mutex
}

// NewPacer creates a Pacer with the given minimum interval
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until at least the configured interval has elapsed since the
// previous Wait returned, or until ctx is cancelled. The first call never
// blocks.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	var sleep time.Duration
	if !p.last.IsZero() {
		sleep = p.interval - time.Since(p.last)
	}
	p.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	p.last = time.Now()
	p.mu.Unlock()
	return nil
}
