package scraper

import (
	"context"
	"time"

	"github.com/muskansindhu/xcraper/pkg/logger"
	"github.com/muskansindhu/xcraper/pkg/store"
	"github.com/muskansindhu/xcraper/pkg/twitter"
)

// SearchFetcherFactory builds search-timeline fetchers backed by the
// remote API client. Each account gets its own client instance carrying
// its credential, derived cookie state and the worker's proxy.
type SearchFetcherFactory struct {
	Query    string
	PageSize int
	Timeout  time.Duration
	Retries  int
	Logger   logger.Logger
}

// ForAccount constructs the network client for one account and binds it
// to the configured query.
func (f *SearchFetcherFactory) ForAccount(account store.Account, proxy string) (PageFetcher, error) {
	client, err := twitter.NewClient(account.AuthToken, twitter.ClientOptions{
		Proxy:   proxy,
		Timeout: f.Timeout,
		Retries: f.Retries,
		Logger:  f.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &searchFetcher{
		client: client,
		query:  f.Query,
		count:  f.PageSize,
	}, nil
}

type searchFetcher struct {
	client *twitter.Client
	query  string
	count  int
}

func (s *searchFetcher) FetchPage(ctx context.Context, cursor string) (*twitter.Page, error) {
	return s.client.Search(ctx, s.query, cursor, s.count)
}
