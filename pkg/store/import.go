package store

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/muskansindhu/xcraper/pkg/errors"
	"github.com/muskansindhu/xcraper/pkg/twitter"
)

// importedLineFields is the minimum number of colon-separated fields a
// credential line must carry:
// username:password:email:email_password:auth_token:mfa_code_url
const importedLineFields = 6

// ParseCredentialLines reads a delimited credential list, one account per
// line. Lines with fewer than six fields are skipped; a file that yields
// no accounts at all is a configuration error.
func ParseCredentialLines(path string) ([]Account, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeConfiguration, "open credential file", err)
	}
	defer file.Close()

	var accounts []Account
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < importedLineFields {
			continue
		}
		accounts = append(accounts, Account{
			Username:      fields[0],
			Password:      fields[1],
			Email:         fields[2],
			EmailPassword: fields[3],
			AuthToken:     fields[4],
			MFACodeURL:    strings.Join(fields[5:], ":"),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeConfiguration, "read credential file", err)
	}
	if len(accounts) == 0 {
		return nil, errors.New(errors.ErrorTypeConfiguration,
			fmt.Sprintf("no usable credential lines in %s", path))
	}
	return accounts, nil
}

// ImportFile parses a credential list and inserts each account, deriving
// the cookie pair from the auth token at import time. Accounts land in the
// backup pool when backup is true, otherwise in the working set. Duplicate
// usernames are skipped without failing the import; the number of inserted
// accounts is returned.
func (s *Store) ImportFile(ctx context.Context, path string, backup bool) (int, error) {
	accounts, err := ParseCredentialLines(path)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, a := range accounts {
		cookies := twitter.FormatCookies(a.AuthToken, twitter.GenerateCT0())
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO accounts
				(username, password, email, email_password, auth_token, mfa_code_url, cookies, next_reset, active)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
			a.Username, a.Password, a.Email, a.EmailPassword, a.AuthToken, a.MFACodeURL, cookies, backup)
		if err != nil {
			return inserted, errors.Wrap(errors.ErrorTypeStoreUnavailable, "insert account", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			s.logger.WarnWithFields("skipping duplicate account", map[string]interface{}{
				"username": a.Username,
			})
			continue
		}
		inserted++
	}

	s.logger.InfoWithFields("credential import finished", map[string]interface{}{
		"file":     path,
		"parsed":   len(accounts),
		"inserted": inserted,
		"backup":   backup,
	})
	return inserted, nil
}
