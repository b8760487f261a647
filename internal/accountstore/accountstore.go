// Package accountstore loads the gateway's population of upstream accounts
// from a flat file and owns the cookie cache that the auth ladder writes
// through on every fresh authentication.
package accountstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"scrapegate/internal/model"
	"scrapegate/pkg/logger"
)

const minAccountFields = 7

// Store loads and owns the account population plus the on-disk cookie cache.
type Store struct {
	mu          sync.RWMutex
	accounts    []model.Account
	byName      map[string]int
	cookiesPath string
	log         logger.Logger
}

// New returns an empty Store bound to the given cookie-cache path.
func New(cookiesPath string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{
		byName:      make(map[string]int),
		cookiesPath: cookiesPath,
		log:         log,
	}
}

// Load reads the accounts flat-file, replacing whatever population the
// store previously held. Blank lines and lines starting with "#" are
// ignored; lines with fewer than seven colon-separated fields are skipped
// with a warning.
func (s *Store) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("accountstore: open %s: %w", path, err)
	}
	defer f.Close()

	var accounts []model.Account
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		acct, ok := parseAccountLine(line)
		if !ok {
			s.log.WarnWithFields("skipping malformed account line", map[string]interface{}{
				"line": lineNo,
				"path": path,
			})
			continue
		}
		accounts = append(accounts, acct)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("accountstore: scan %s: %w", path, err)
	}

	byName := make(map[string]int, len(accounts))
	for i, a := range accounts {
		byName[a.ScreenName] = i
	}

	s.mu.Lock()
	s.accounts = accounts
	s.byName = byName
	s.mu.Unlock()

	s.log.InfoWithFields("loaded accounts", map[string]interface{}{
		"count": len(accounts),
		"path":  path,
	})
	return nil
}

// parseAccountLine splits one flat-file record into an Account. The line
// format is username:password:email:email_password:2fa:ct0:auth_token,
// where everything between field index 4 and n-3 inclusive is re-joined
// with ":" and treated as the raw 2FA secret — this is how otpauth:// URIs
// with embedded colons survive the split.
func parseAccountLine(line string) (model.Account, bool) {
	fields := strings.Split(line, ":")
	if len(fields) < minAccountFields {
		return model.Account{}, false
	}

	n := len(fields)
	twoFARaw := strings.Join(fields[4:n-2], ":")

	return model.Account{
		ScreenName:      fields[0],
		Password:        fields[1],
		Email:           fields[2],
		EmailPassword:   fields[3],
		TwoFactorSecret: normalizeTwoFA(twoFARaw),
		CT0:             fields[n-2],
		AuthToken:       fields[n-1],
	}, true
}

// normalizeTwoFA trims whitespace and, if the secret is embedded in an
// otpauth:// style URI, keeps only the substring after the last "/".
func normalizeTwoFA(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// ListAccounts returns a defensive copy of the loaded population.
func (s *Store) ListAccounts() []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// Lookup returns the account with the given screen name.
func (s *Store) Lookup(screenName string) (model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byName[screenName]
	if !ok {
		return model.Account{}, false
	}
	return s.accounts[i], true
}

// cookieRecord is one entry in the cookie-cache JSON array.
type cookieRecord struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Email    string   `json:"email"`
	TwoFA    string   `json:"twofa"`
	Cookies  []string `json:"cookies"`
}

// LoadCookies returns the cached cookie set for username, or false if the
// cache file doesn't exist or has no entry for it.
func (s *Store) LoadCookies(username string) ([]string, bool) {
	records, err := s.readCookieFile()
	if err != nil {
		s.log.WarnWithFields("failed to read cookie cache", map[string]interface{}{
			"error": err.Error(),
			"path":  s.cookiesPath,
		})
		return nil, false
	}
	for _, r := range records {
		if r.Username == username {
			return r.Cookies, len(r.Cookies) > 0
		}
	}
	return nil, false
}

// SaveCookies upserts the cookie set for account by username and rewrites
// the entire cache file atomically (temp file + rename), serialised through
// s.mu so concurrent saves for different accounts don't race each other.
func (s *Store) SaveCookies(account model.Account, cookies []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readCookieFile()
	if err != nil {
		return err
	}

	found := false
	for i, r := range records {
		if r.Username == account.ScreenName {
			records[i] = cookieRecord{
				Username: account.ScreenName,
				Password: account.Password,
				Email:    account.Email,
				TwoFA:    account.TwoFactorSecret,
				Cookies:  cookies,
			}
			found = true
			break
		}
	}
	if !found {
		records = append(records, cookieRecord{
			Username: account.ScreenName,
			Password: account.Password,
			Email:    account.Email,
			TwoFA:    account.TwoFactorSecret,
			Cookies:  cookies,
		})
	}

	return s.writeCookieFile(records)
}

func (s *Store) readCookieFile() ([]cookieRecord, error) {
	data, err := os.ReadFile(s.cookiesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("accountstore: read cookie cache: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []cookieRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("accountstore: parse cookie cache: %w", err)
	}
	return records, nil
}

func (s *Store) writeCookieFile(records []cookieRecord) error {
	tmpPath := s.cookiesPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("accountstore: create temp cookie cache: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("accountstore: encode cookie cache: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("accountstore: sync cookie cache: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("accountstore: close cookie cache: %w", err)
	}
	if err := os.Rename(tmpPath, s.cookiesPath); err != nil {
		return fmt.Errorf("accountstore: replace cookie cache: %w", err)
	}
	return nil
}
