// Package retry implements the transport-level retry budget used by the
// network client. Retry policy lives here, outside the pagination logic,
// so it can change without touching how pages are consumed.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/muskansindhu/xcraper/pkg/logger"
)

// Operation is a single attempt of the work being retried
type Operation func() error

// Config holds retry configuration
type Config struct {
	// MaxAttempts bounds the total number of attempts, including the first
	MaxAttempts int
	// Backoff yields the delay before each retry
	Backoff BackoffStrategy
	// RetryIf decides whether an error is worth another attempt.
	// Nil retries everything.
	RetryIf func(error) bool
	Logger  logger.Logger
}

// Do executes op until it succeeds, the attempt budget runs out, a
// non-retryable error occurs or ctx is cancelled.
func Do(ctx context.Context, op Operation, cfg Config) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff == nil {
		cfg.Backoff = DefaultExponentialBackoff()
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := cfg.Backoff.NextDelay(attempt - 1)
			if cfg.Logger != nil {
				cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
					"attempt": attempt,
					"delay":   delay,
					"error":   lastErr.Error(),
				})
			}
			if err := Wait(ctx, delay); err != nil {
				return err
			}
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return err
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

// Wait sleeps for delay or until ctx is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
