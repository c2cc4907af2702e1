package scraper

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/muskansindhu/xcraper/internal/worker"
	"github.com/muskansindhu/xcraper/pkg/config"
	"github.com/muskansindhu/xcraper/pkg/errors"
	"github.com/muskansindhu/xcraper/pkg/logger"
	"github.com/muskansindhu/xcraper/pkg/ratelimit"
	"github.com/muskansindhu/xcraper/pkg/store"
)

// BatchLister supplies deterministic slices of the account population
type BatchLister interface {
	ListBatch(ctx context.Context, offset, size int) ([]store.Account, error)
}

// Scheduler partitions the account population into fixed-size batches,
// one per worker, and drives the worker pool to completion.
type Scheduler struct {
	cfg    *config.Config
	lister BatchLister
	runner *AccountWorker
	logger logger.Logger
}

// Summary aggregates a finished run
type Summary struct {
	RunID         string
	Workers       int
	Accounts      int
	Records       int
	Halted        int
	Exhausted     int
	Failed        int
	FailedWorkers int
}

// New validates the scheduling configuration and assembles the scheduler.
// A proxy pool smaller than the worker count fails here, before any
// worker is dispatched.
func New(cfg *config.Config, lister BatchLister, quota QuotaStore, snk RecordSink,
	policy ReplacementPolicy, log logger.Logger) (*Scheduler, error) {

	if log == nil {
		log = logger.GetLogger()
	}
	if len(cfg.Scheduler.Proxies) < cfg.Scheduler.Workers {
		return nil, errors.New(errors.ErrorTypeConfiguration,
			fmt.Sprintf("proxy pool too small: %d proxies for %d workers",
				len(cfg.Scheduler.Proxies), cfg.Scheduler.Workers))
	}
	if policy == nil {
		policy = NoReplacementPolicy{}
	}

	monitor := &ratelimit.Monitor{
		HaltThreshold:     cfg.RateLimit.HaltThreshold,
		ContinueOnUnknown: cfg.RateLimit.ContinueOnUnknown,
	}
	engine := NewEngine(monitor, cfg.RateLimit.PacingInterval, log)
	factory := &SearchFetcherFactory{
		Query:    cfg.Search.Query,
		PageSize: cfg.Search.PageSize,
		Timeout:  cfg.Client.Timeout,
		Retries:  cfg.Client.Retries,
		Logger:   log,
	}
	runner := &AccountWorker{
		Engine:      engine,
		Factory:     factory,
		Quota:       quota,
		Sink:        snk,
		Policy:      policy,
		ResetMargin: cfg.RateLimit.ResetMargin,
		Logger:      log,
	}

	return &Scheduler{
		cfg:    cfg,
		lister: lister,
		runner: runner,
		logger: log,
	}, nil
}

// Run partitions the accounts, drives all workers to completion and
// returns the aggregate. Worker failures are isolated: a failed batch
// counts in the summary but never aborts its siblings. The account
// population beyond workers*batchSize is not scheduled in this round;
// that capacity bound is deliberate.
func (s *Scheduler) Run(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	numWorkers := s.cfg.Scheduler.Workers
	batchSize := s.cfg.Scheduler.BatchSize

	log := s.logger.WithField("run_id", runID)
	log.InfoWithFields("fetching accounts and dispatching workers", map[string]interface{}{
		"num_workers": numWorkers,
		"batch_size":  batchSize,
		"query":       s.cfg.Search.Query,
	})

	pool := worker.NewPool(numWorkers, s.cfg.Scheduler.Proxies, s.runner.ProcessBatch, log)
	pool.Start(ctx)

	for i := 0; i < numWorkers; i++ {
		accounts, err := s.lister.ListBatch(ctx, i*batchSize, batchSize)
		if err != nil {
			// The worker still runs (and flushes an artifact) with an
			// empty batch; only this slice of accounts is lost.
			log.WithError(err).ErrorWithFields("failed to list batch", map[string]interface{}{
				"worker_id": i,
			})
			accounts = nil
		}
		if !pool.Submit(ctx, i, worker.Batch{Accounts: accounts}) {
			break
		}
	}
	pool.Drain()

	summary := Summary{RunID: runID, Workers: numWorkers}
	for result := range pool.Results() {
		summary.Accounts += result.Accounts
		summary.Records += result.Records
		summary.Halted += result.Halted
		summary.Exhausted += result.Exhausted
		summary.Failed += result.Failed
		if result.Err != nil {
			summary.FailedWorkers++
		}
	}

	log.InfoWithFields("all workers completed", map[string]interface{}{
		"accounts":       summary.Accounts,
		"records":        summary.Records,
		"halted":         summary.Halted,
		"exhausted":      summary.Exhausted,
		"failed":         summary.Failed,
		"failed_workers": summary.FailedWorkers,
	})
	return summary, nil
}
