package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/muskansindhu/xcraper/pkg/errors"
	"github.com/muskansindhu/xcraper/pkg/logger"
	"github.com/muskansindhu/xcraper/pkg/ratelimit"
	"github.com/muskansindhu/xcraper/pkg/twitter"
)

// scriptedFetcher replays a fixed sequence of pages and records the
// cursor it was asked to resume from on every call. Once the script is
// spent it fails with err (errPage rides along, like a 429 whose headers
// were still parsed) or keeps returning empty pages.
type scriptedFetcher struct {
	pages   []*twitter.Page
	err     error
	errPage *twitter.Page
	calls   int
	cursors []string
}

func (f *scriptedFetcher) FetchPage(_ context.Context, cursor string) (*twitter.Page, error) {
	f.cursors = append(f.cursors, cursor)
	if f.calls >= len(f.pages) {
		if f.err != nil {
			return f.errPage, f.err
		}
		return &twitter.Page{}, nil
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func entriesPage(cursor string, n int) *twitter.Page {
	page := &twitter.Page{Cursor: cursor}
	for i := 0; i < n; i++ {
		page.Entries = append(page.Entries, map[string]interface{}{})
		page.Records = append(page.Records, twitter.Record{})
	}
	return page
}

func testEngine(monitor *ratelimit.Monitor) *Engine {
	log, _ := logger.New(logger.Options{Level: "disabled"})
	return NewEngine(monitor, time.Millisecond, log)
}

func permissiveEngine() *Engine {
	return testEngine(&ratelimit.Monitor{HaltThreshold: 0.3, ContinueOnUnknown: true})
}

func TestRunChainsCursors(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []*twitter.Page{
		entriesPage("c1", 2),
		entriesPage("c2", 2),
		entriesPage("", 1),
	}}

	run := permissiveEngine().Run(fetcher)
	pages := 0
	for run.Next(context.Background()) {
		pages++
	}

	if pages != 3 {
		t.Errorf("expected 3 delivered pages, got %d", pages)
	}
	if run.State() != StateExhausted {
		t.Errorf("expected exhausted, got %s", run.State())
	}
	if run.Err() != nil {
		t.Errorf("unexpected error: %v", run.Err())
	}
	want := []string{"", "c1", "c2"}
	if len(fetcher.cursors) != len(want) {
		t.Fatalf("expected %d fetches, got %d", len(want), len(fetcher.cursors))
	}
	for i, cursor := range want {
		if fetcher.cursors[i] != cursor {
			t.Errorf("fetch %d resumed from %q, want %q", i, fetcher.cursors[i], cursor)
		}
	}
}

func TestRunEmptyPageIsNotDelivered(t *testing.T) {
	// The server may keep issuing cursors alongside empty pages; an empty
	// page still ends the run without being handed to the caller.
	fetcher := &scriptedFetcher{pages: []*twitter.Page{
		entriesPage("c1", 2),
		{Cursor: "c2"},
	}}

	run := permissiveEngine().Run(fetcher)
	pages := 0
	for run.Next(context.Background()) {
		pages++
	}

	if pages != 1 {
		t.Errorf("expected only the non-empty page delivered, got %d", pages)
	}
	if run.State() != StateExhausted {
		t.Errorf("expected exhausted, got %s", run.State())
	}
}

func TestRunHaltingPageIsStillDelivered(t *testing.T) {
	halting := entriesPage("c2", 3)
	halting.Rate = ratelimit.Headers{Known: true, Limit: 100, Remaining: 10, ResetAt: 999}
	fetcher := &scriptedFetcher{pages: []*twitter.Page{
		entriesPage("c1", 2),
		halting,
	}}

	run := permissiveEngine().Run(fetcher)
	pages := 0
	for run.Next(context.Background()) {
		pages++
	}

	if pages != 2 {
		t.Errorf("expected the halting page delivered, got %d pages", pages)
	}
	if run.State() != StateHalted {
		t.Errorf("expected halted, got %s", run.State())
	}
	if fetcher.calls != 2 {
		t.Errorf("halt must stop further fetches, got %d calls", fetcher.calls)
	}
}

func TestRunUnknownHeadersHaltByDefault(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []*twitter.Page{
		entriesPage("c1", 2),
	}}

	run := testEngine(ratelimit.NewMonitor()).Run(fetcher)
	if !run.Next(context.Background()) {
		t.Fatal("the first page should still be delivered")
	}
	if run.Next(context.Background()) {
		t.Error("expected the run to stop after the unknown-header page")
	}
	if run.State() != StateHalted {
		t.Errorf("expected halted, got %s", run.State())
	}
}

func TestRunFetchFailure(t *testing.T) {
	fetchErr := errors.New(errors.ErrorTypeFetchFailed, "boom")
	fetcher := &scriptedFetcher{pages: []*twitter.Page{
		entriesPage("c1", 2),
	}, err: fetchErr}

	run := permissiveEngine().Run(fetcher)
	if !run.Next(context.Background()) {
		t.Fatal("first page should succeed")
	}
	if run.Next(context.Background()) {
		t.Error("expected failure to end the run")
	}
	if run.State() != StateFailed {
		t.Errorf("expected failed, got %s", run.State())
	}
	if !errors.IsType(run.Err(), errors.ErrorTypeFetchFailed) {
		t.Errorf("expected the fetch error, got %v", run.Err())
	}
}

func TestRunRemembersLastKnownRate(t *testing.T) {
	first := entriesPage("c1", 1)
	first.Rate = ratelimit.Headers{Known: true, Limit: 100, Remaining: 90, ResetAt: 555}
	second := entriesPage("", 1)

	engine := permissiveEngine()
	run := engine.Run(&scriptedFetcher{pages: []*twitter.Page{first, second}})
	for run.Next(context.Background()) {
	}

	rate := run.LastRate()
	if !rate.Known || rate.ResetAt != 555 {
		t.Errorf("expected the first page's headers remembered, got %+v", rate)
	}
	if run.Fetched() != 2 {
		t.Errorf("expected 2 fetches, got %d", run.Fetched())
	}
}

func TestRunFailedFetchKeepsObservedRate(t *testing.T) {
	// A 429 ends the run as failed, but the reset window it reported is
	// still worth remembering.
	fetcher := &scriptedFetcher{
		pages:   []*twitter.Page{entriesPage("c1", 1)},
		err:     errors.New(errors.ErrorTypeFetchFailed, "unexpected status 429"),
		errPage: &twitter.Page{Rate: ratelimit.Headers{Known: true, Limit: 50, Remaining: 0, ResetAt: 8888}},
	}

	run := permissiveEngine().Run(fetcher)
	for run.Next(context.Background()) {
	}

	if run.State() != StateFailed {
		t.Fatalf("expected failed, got %s", run.State())
	}
	rate := run.LastRate()
	if !rate.Known || rate.ResetAt != 8888 {
		t.Errorf("expected the failed response's headers remembered, got %+v", rate)
	}
}

func TestRunTerminalStateIsSticky(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []*twitter.Page{entriesPage("", 1)}}
	run := permissiveEngine().Run(fetcher)

	for run.Next(context.Background()) {
	}
	if run.Next(context.Background()) {
		t.Error("a finished run must not restart")
	}
	if fetcher.calls != 1 {
		t.Errorf("expected no further fetches after the terminal state, got %d", fetcher.calls)
	}
}
