package scraper

import (
	"context"

	xerrors "github.com/muskansindhu/xcraper/pkg/errors"
	"github.com/muskansindhu/xcraper/pkg/logger"
	"github.com/muskansindhu/xcraper/pkg/store"
)

// ReplacementPolicy decides whether a worker whose batch produced nothing
// gets a replacement account. Workers never claim backups on their own;
// the policy is injected at scheduling time.
type ReplacementPolicy interface {
	Replacement(ctx context.Context) (*store.Account, bool)
}

// NoReplacementPolicy never replaces. This is the default: a depleted
// batch simply finishes empty.
type NoReplacementPolicy struct{}

// Replacement always reports no account available
func (NoReplacementPolicy) Replacement(context.Context) (*store.Account, bool) {
	return nil, false
}

// BackupClaimPolicy tops a depleted batch up from the backup pool through
// the store's atomic claim. An exhausted pool is not an error; the worker
// just proceeds without a replacement.
type BackupClaimPolicy struct {
	Store  *store.Store
	Logger logger.Logger
}

// Replacement claims one backup account, if any remains
func (p *BackupClaimPolicy) Replacement(ctx context.Context) (*store.Account, bool) {
	account, err := p.Store.ClaimBackup(ctx)
	if err != nil {
		if xerrors.IsType(err, xerrors.ErrorTypeClaimExhausted) {
			p.Logger.Info("backup pool is empty, no replacement available")
		} else {
			p.Logger.WithError(err).Error("backup claim failed")
		}
		return nil, false
	}
	p.Logger.InfoWithFields("claimed backup account", map[string]interface{}{
		"username": account.Username,
	})
	return account, true
}
