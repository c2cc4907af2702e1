package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/muskansindhu/xcraper/pkg/errors"
	"github.com/muskansindhu/xcraper/pkg/logger"
)

// Account is one set of credentials for the remote API, as persisted in
// the accounts table.
type Account struct {
	Username      string
	Password      string
	Email         string
	EmailPassword string
	AuthToken     string
	MFACodeURL    string
	Cookies       string
	// QuotaResetAt is the Unix time after which the account's rate-limit
	// window refreshes. Zero means no known restriction.
	QuotaResetAt int64
	// Active marks backup-pool eligibility. Claiming flips it false.
	Active bool
}

// Store is the credential store backed by SQLite. It is the only shared
// mutable resource across workers; all cross-worker writes go through it.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// Open opens (or creates) the account database at path and applies the
// schema. The busy timeout keeps concurrent worker writes from failing on
// the driver's single-writer lock.
func Open(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeStoreUnavailable, "open account db", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrorTypeStoreUnavailable, "ping account db", err)
	}

	s := &Store{db: db, logger: log}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// init creates the accounts table. Safe to run against an already
// initialized database.
func (s *Store) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS accounts (
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		email TEXT NOT NULL,
		email_password TEXT NOT NULL,
		auth_token TEXT NOT NULL,
		mfa_code_url TEXT,
		cookies TEXT,
		next_reset INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT 0
	)`)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeStoreUnavailable, "apply accounts schema", err)
	}
	return nil
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// ListBatch returns size accounts starting at offset, ordered by insertion.
// The deterministic order is what makes scheduler batches disjoint.
func (s *Store) ListBatch(ctx context.Context, offset, size int) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, password, email, email_password, auth_token,
			COALESCE(mfa_code_url, ''), COALESCE(cookies, ''), next_reset, active
		 FROM accounts ORDER BY rowid LIMIT ? OFFSET ?`, size, offset)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeStoreUnavailable, "list accounts", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.Username, &a.Password, &a.Email, &a.EmailPassword,
			&a.AuthToken, &a.MFACodeURL, &a.Cookies, &a.QuotaResetAt, &a.Active); err != nil {
			return nil, errors.Wrap(errors.ErrorTypeStoreUnavailable, "scan account", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeStoreUnavailable, "iterate accounts", err)
	}
	return accounts, nil
}

// Count returns the number of stored accounts
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, errors.Wrap(errors.ErrorTypeStoreUnavailable, "count accounts", err)
	}
	return n, nil
}

// RecordQuota persists a newly observed quota reset time for one account.
// The guard in the WHERE clause keeps the stored value monotonically
// non-decreasing: a stale observation from an earlier page can never move
// the reset window backward.
func (s *Store) RecordQuota(ctx context.Context, username string, resetAt int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET next_reset = ? WHERE username = ? AND next_reset < ?`,
		resetAt, username, resetAt)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeStoreUnavailable, "record quota", err)
	}
	return nil
}

// ClaimBackup atomically selects one backup-eligible account, flips it
// inactive and returns it. The single UPDATE ... RETURNING statement means
// no other caller can observe or re-claim the row in between; SQLite's
// write serialization makes concurrent claims yield distinct accounts.
func (s *Store) ClaimBackup(ctx context.Context) (*Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx,
		`UPDATE accounts SET active = 0
		 WHERE username = (SELECT username FROM accounts WHERE active = 1 ORDER BY rowid LIMIT 1)
		   AND active = 1
		 RETURNING username, password, email, email_password, auth_token,
			COALESCE(mfa_code_url, ''), COALESCE(cookies, ''), next_reset, active`).
		Scan(&a.Username, &a.Password, &a.Email, &a.EmailPassword,
			&a.AuthToken, &a.MFACodeURL, &a.Cookies, &a.QuotaResetAt, &a.Active)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrorTypeClaimExhausted, "backup pool is empty")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeStoreUnavailable, "claim backup account", err)
	}
	return &a, nil
}

// Get returns one account by username
func (s *Store) Get(ctx context.Context, username string) (*Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password, email, email_password, auth_token,
			COALESCE(mfa_code_url, ''), COALESCE(cookies, ''), next_reset, active
		 FROM accounts WHERE username = ?`, username).
		Scan(&a.Username, &a.Password, &a.Email, &a.EmailPassword,
			&a.AuthToken, &a.MFACodeURL, &a.Cookies, &a.QuotaResetAt, &a.Active)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeStoreUnavailable, "get account", err)
	}
	return &a, nil
}
