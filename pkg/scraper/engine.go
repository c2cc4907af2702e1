package scraper

import (
	"context"
	"time"

	"github.com/muskansindhu/xcraper/pkg/errors"
	"github.com/muskansindhu/xcraper/pkg/logger"
	"github.com/muskansindhu/xcraper/pkg/ratelimit"
	"github.com/muskansindhu/xcraper/pkg/twitter"
)

// PageFetcher issues one page request for a fixed (account, query) pair,
// resuming from the given cursor. An empty cursor means the first page.
// On error the returned page may still be non-nil, carrying only the
// rate-limit headers observed on the failed response.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string) (*twitter.Page, error)
}

// State is the terminal disposition of a pagination run
type State int

const (
	// StateRunning means more pages may follow
	StateRunning State = iota
	// StateExhausted means the server has no more data. Terminal, success.
	StateExhausted
	// StateHalted means the quota monitor stopped the run before the
	// budget was at risk. Terminal, success; the account can be retried
	// after its reset window.
	StateHalted
	// StateFailed means a transport or decode error ended the run
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateExhausted:
		return "exhausted"
	case StateHalted:
		return "halted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Engine drives one account through successive pages of one query.
// It is cheap to construct; each Run starts a fresh cursor chain.
type Engine struct {
	Monitor        *ratelimit.Monitor
	PacingInterval time.Duration
	Logger         logger.Logger
}

// NewEngine creates an Engine with the given monitor and pacing floor
func NewEngine(monitor *ratelimit.Monitor, pacing time.Duration, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{Monitor: monitor, PacingInterval: pacing, Logger: log}
}

// Run starts a new pagination run over the fetcher. Runs are not
// restartable: a fresh cursor chain requires a fresh Run.
func (e *Engine) Run(fetcher PageFetcher) *Run {
	return &Run{
		engine:  e,
		fetcher: fetcher,
		pacer:   ratelimit.NewPacer(e.PacingInterval),
	}
}

// Run is a lazy, finite sequence of pages, consumed in the style of
// sql.Rows: Next fetches and delivers one page at a time, suspending at
// the pacing floor between fetches, and yields control back to the caller
// after every page.
type Run struct {
	engine  *Engine
	fetcher PageFetcher
	pacer   *ratelimit.Pacer

	cursor   string
	page     *twitter.Page
	state    State
	err      error
	lastRate ratelimit.Headers
	fetched  int
}

// Next advances the run by one page. It returns true when a page with
// entries was fetched and is available via Page; false once the run has
// reached a terminal state. The halting page's entries are still
// delivered: halt takes effect on the call after.
func (r *Run) Next(ctx context.Context) bool {
	if r.state != StateRunning {
		return false
	}

	if r.fetched > 0 {
		if err := r.pacer.Wait(ctx); err != nil {
			r.state = StateFailed
			r.err = errors.Wrap(errors.ErrorTypeFetchFailed, "pacing wait interrupted", err)
			return false
		}
	}

	page, err := r.fetcher.FetchPage(ctx, r.cursor)
	if err != nil {
		// A failed fetch may still carry rate-limit headers, notably a
		// 429 whose reset window is worth persisting.
		if page != nil && page.Rate.Known {
			r.lastRate = page.Rate
		}
		r.state = StateFailed
		r.err = err
		return false
	}
	r.fetched++
	r.page = page
	if page.Rate.Known {
		r.lastRate = page.Rate
	}

	// An empty page means no more data, even when the server still
	// returns a cursor.
	if len(page.Entries) == 0 {
		r.state = StateExhausted
		return false
	}

	switch {
	case !r.engine.Monitor.Evaluate(page.Rate):
		r.state = StateHalted
	case page.Cursor == "":
		r.state = StateExhausted
	default:
		r.cursor = page.Cursor
	}

	r.engine.Logger.DebugWithFields("page fetched", map[string]interface{}{
		"page":       r.fetched,
		"entries":    len(page.Entries),
		"has_cursor": page.Cursor != "",
		"state":      r.state.String(),
	})
	return true
}

// Page returns the page delivered by the last successful Next
func (r *Run) Page() *twitter.Page {
	return r.page
}

// State returns the run's current disposition
func (r *Run) State() State {
	return r.state
}

// Err returns the failure that ended the run, nil for the successful
// terminal states.
func (r *Run) Err() error {
	return r.err
}

// LastRate returns the most recent parseable rate-limit headers observed
// during the run. Known is false when no page carried usable headers.
func (r *Run) LastRate() ratelimit.Headers {
	return r.lastRate
}

// Fetched returns the number of successful page fetches in this run
func (r *Run) Fetched() int {
	return r.fetched
}
