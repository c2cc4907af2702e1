package scraper

import (
	"context"
	"time"

	"github.com/muskansindhu/xcraper/internal/worker"
	"github.com/muskansindhu/xcraper/pkg/logger"
	"github.com/muskansindhu/xcraper/pkg/store"
	"github.com/muskansindhu/xcraper/pkg/twitter"
)

// QuotaStore persists observed quota state for accounts
type QuotaStore interface {
	RecordQuota(ctx context.Context, username string, resetAt int64) error
}

// FetcherFactory builds a page fetcher bound to one account's credential
// and the worker's assigned proxy.
type FetcherFactory interface {
	ForAccount(account store.Account, proxy string) (PageFetcher, error)
}

// RecordSink accepts a worker's accumulated records, once per batch
type RecordSink interface {
	Flush(workerID int, records []twitter.Record) error
}

// AccountWorker drains one batch of accounts: one account at a time,
// one pagination run per account, quota state persisted after every run.
type AccountWorker struct {
	Engine  *Engine
	Factory FetcherFactory
	Quota   QuotaStore
	Sink    RecordSink
	Policy  ReplacementPolicy
	// ResetMargin is added on top of a remembered reset time before the
	// account is used, absorbing clock skew against the remote server.
	ResetMargin time.Duration
	Logger      logger.Logger
}

// ProcessBatch drains the batch to completion and flushes the accumulator
// exactly once. Per-account failures are contained: a failed fetch ends
// that account's run, not the worker.
func (w *AccountWorker) ProcessBatch(ctx context.Context, workerID int, proxy string, accounts []store.Account) worker.Result {
	log := w.Logger.WithField("worker_id", workerID)
	result := worker.Result{WorkerID: workerID, Accounts: len(accounts)}
	var records []twitter.Record

	for _, account := range accounts {
		if ctx.Err() != nil {
			break
		}
		w.runAccount(ctx, log, proxy, account, &records, &result)
	}

	// A batch that produced nothing may top itself up from the backup
	// pool, depending on the configured policy.
	if len(records) == 0 && ctx.Err() == nil && w.Policy != nil {
		if replacement, ok := w.Policy.Replacement(ctx); ok {
			log.InfoWithFields("running replacement account", map[string]interface{}{
				"username": replacement.Username,
			})
			result.Accounts++
			w.runAccount(ctx, log, proxy, *replacement, &records, &result)
		}
	}

	result.Records = len(records)
	if err := w.Sink.Flush(workerID, records); err != nil {
		log.WithError(err).Error("failed to flush worker records")
		result.Err = err
	}
	return result
}

// runAccount performs one pagination run for one account, appending its
// records and updating the result counters.
func (w *AccountWorker) runAccount(ctx context.Context, log logger.Logger, proxy string,
	account store.Account, records *[]twitter.Record, result *worker.Result) {

	alog := log.WithField("username", account.Username)

	if err := w.waitForReset(ctx, alog, account); err != nil {
		return
	}

	fetcher, err := w.Factory.ForAccount(account, proxy)
	if err != nil {
		alog.WithError(err).Error("failed to construct account client")
		result.Failed++
		return
	}

	run := w.Engine.Run(fetcher)
	for run.Next(ctx) {
		*records = append(*records, run.Page().Records...)
		alog.InfoWithFields("collected entries so far", map[string]interface{}{
			"entries": len(*records),
			"page":    run.Fetched(),
		})
	}

	switch run.State() {
	case StateFailed:
		alog.WithError(run.Err()).Error("pagination run failed, moving to next account")
		result.Failed++
		// A rate-limited failure still observed a reset window.
		w.persistQuota(ctx, alog, account, run)
		return
	case StateHalted:
		alog.WarnWithFields("rate limit reached, halting account", map[string]interface{}{
			"pages": run.Fetched(),
		})
		result.Halted++
	case StateExhausted:
		alog.InfoWithFields("account run exhausted", map[string]interface{}{
			"pages": run.Fetched(),
		})
		result.Exhausted++
	}

	w.persistQuota(ctx, alog, account, run)
}

// waitForReset suspends this worker until the account's remembered quota
// window has passed, plus the safety margin.
func (w *AccountWorker) waitForReset(ctx context.Context, log logger.Logger, account store.Account) error {
	if account.QuotaResetAt <= 0 {
		return nil
	}
	wait := time.Until(time.Unix(account.QuotaResetAt, 0).Add(w.ResetMargin))
	if wait <= 0 {
		return nil
	}

	log.InfoWithFields("account is rate limited, waiting", map[string]interface{}{
		"wait": wait,
	})
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// persistQuota writes the final observed reset time, falling back to the
// prior remembered value when the terminal page carried no usable headers.
// A store failure only skips this persistence step; the run's records are
// already accumulated.
func (w *AccountWorker) persistQuota(ctx context.Context, log logger.Logger, account store.Account, run *Run) {
	resetAt := account.QuotaResetAt
	if rate := run.LastRate(); rate.Known {
		resetAt = rate.ResetAt
	}
	if resetAt <= 0 {
		return
	}
	if err := w.Quota.RecordQuota(ctx, account.Username, resetAt); err != nil {
		log.WithError(err).Warn("skipping quota persistence for this run")
		return
	}
	log.DebugWithFields("quota state persisted", map[string]interface{}{
		"reset_at": resetAt,
	})
}
