// Package worker provides the pool that fans account batches out to a
// fixed set of concurrent workers, each bound to one egress proxy.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/muskansindhu/xcraper/pkg/logger"
	"github.com/muskansindhu/xcraper/pkg/store"
)

// Batch is an ordered, fixed-size slice of accounts assigned to one
// worker for one scheduling round. Immutable once handed over.
type Batch struct {
	Accounts []store.Account
}

// Result summarizes one worker's drain of one batch
type Result struct {
	WorkerID  int
	Accounts  int
	Records   int
	Halted    int
	Exhausted int
	Failed    int
	Err       error
}

// ProcessFunc drains one batch on behalf of worker workerID using its
// assigned proxy. Implementations contain failures: only a panic or a
// broken collaborator should surface through Result.Err.
type ProcessFunc func(ctx context.Context, workerID int, proxy string, accounts []store.Account) Result

// Pool runs a fixed set of workers, each fed through its own queue.
// Worker i is statically bound to proxy i and only ever sees batches
// submitted for index i: a fast worker can never steal a sibling's batch,
// so per-worker output stays one batch per worker per round. Closing the
// queues and waiting on the pool is the completion signal.
type Pool struct {
	numWorkers int
	proxies    []string
	jobs       []chan Batch
	results    chan Result
	process    ProcessFunc
	wg         sync.WaitGroup
	logger     logger.Logger
}

// NewPool creates a pool of numWorkers workers. proxies must hold at
// least one address per worker; the scheduler validates that before
// dispatch.
func NewPool(numWorkers int, proxies []string, process ProcessFunc, log logger.Logger) *Pool {
	if log == nil {
		log = logger.GetLogger()
	}
	jobs := make([]chan Batch, numWorkers)
	for i := range jobs {
		jobs[i] = make(chan Batch, 1)
	}
	return &Pool{
		numWorkers: numWorkers,
		proxies:    proxies,
		jobs:       jobs,
		results:    make(chan Result, numWorkers),
		process:    process,
		logger:     log,
	}
}

// Start launches the workers
func (p *Pool) Start(ctx context.Context) {
	p.logger.InfoWithFields("starting worker pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Submit queues one batch for the given worker. Returns false once ctx
// is cancelled.
func (p *Pool) Submit(ctx context.Context, workerID int, batch Batch) bool {
	select {
	case p.jobs[workerID] <- batch:
		return true
	case <-ctx.Done():
		return false
	}
}

// Drain signals that no more batches will arrive, waits for all workers
// to finish and closes the result channel.
func (p *Pool) Drain() {
	for _, jobs := range p.jobs {
		close(jobs)
	}
	p.wg.Wait()
	close(p.results)
}

// Results returns the channel of per-batch results
func (p *Pool) Results() <-chan Result {
	return p.results
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	log := p.logger.WithField("worker_id", id)
	log.Debug("worker started")

	proxy := ""
	if id < len(p.proxies) {
		proxy = p.proxies[id]
	}

	for batch := range p.jobs[id] {
		select {
		case <-ctx.Done():
			log.Debug("worker stopping, context cancelled")
			return
		default:
		}

		result := p.runBatch(ctx, id, proxy, batch)
		select {
		case p.results <- result:
		case <-ctx.Done():
			return
		}
	}

	log.Debug("worker stopping, queue closed")
}

// runBatch isolates the batch drain: a panicking worker must never take
// its siblings down with it.
func (p *Pool) runBatch(ctx context.Context, id int, proxy string, batch Batch) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorWithFields("worker panicked", map[string]interface{}{
				"worker_id": id,
				"panic":     fmt.Sprintf("%v", r),
			})
			result = Result{WorkerID: id, Err: fmt.Errorf("worker %d panicked: %v", id, r)}
		}
	}()
	return p.process(ctx, id, proxy, batch.Accounts)
}
