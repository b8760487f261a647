package accountstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapegate/internal/model"
)

func TestParseAccountLineOTPAuthColons(t *testing.T) {
	line := "user:pass:a@b.com:ep:otpauth://totp/Twitter:secret=ABC:longct0:token"
	acct, ok := parseAccountLine(line)
	require.True(t, ok)
	assert.Equal(t, "user", acct.ScreenName)
	assert.Equal(t, "pass", acct.Password)
	assert.Equal(t, "a@b.com", acct.Email)
	assert.Equal(t, "Twitter:secret=ABC", acct.TwoFactorSecret)
	assert.Equal(t, "longct0", acct.CT0)
	assert.Equal(t, "token", acct.AuthToken)
}

func TestParseAccountLineSimple(t *testing.T) {
	acct, ok := parseAccountLine("alice:pw:alice@example.com:epw:SECRET:ct0val:authval")
	require.True(t, ok)
	assert.Equal(t, "SECRET", acct.TwoFactorSecret)
}

func TestParseAccountLineTooFewFields(t *testing.T) {
	_, ok := parseAccountLine("a:b:c:d:e:f")
	assert.False(t, ok)
}

func TestParseAccountLineEmptyTwoFA(t *testing.T) {
	acct, ok := parseAccountLine("u:p:e:ep::ct0:auth")
	require.True(t, ok)
	assert.Empty(t, acct.TwoFactorSecret)
}

func TestLoadSkipsBlankAndCommentLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.txt")
	content := "# comment\n\nalice:pw:a@x.com:ep:SECRET:ct0:auth\nmalformed:line\nbob:pw2:b@x.com:ep2:OTHER:ct1:auth1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s := New(filepath.Join(dir, "cookies.json"), nil)
	require.NoError(t, s.Load(path))

	accounts := s.ListAccounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, "alice", accounts[0].ScreenName)
	assert.Equal(t, "bob", accounts[1].ScreenName)
}

func TestListAccountsIsDefensiveCopy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.txt")
	require.NoError(t, os.WriteFile(path, []byte("alice:pw:a@x.com:ep:SECRET:ct0:auth\n"), 0o600))

	s := New(filepath.Join(dir, "cookies.json"), nil)
	require.NoError(t, s.Load(path))

	copy1 := s.ListAccounts()
	copy1[0].ScreenName = "mutated"

	copy2 := s.ListAccounts()
	assert.Equal(t, "alice", copy2[0].ScreenName)
}

func TestSaveAndLoadCookiesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "cookies.json"), nil)

	acct := model.Account{ScreenName: "alice", Password: "pw", Email: "a@x.com", TwoFactorSecret: "SECRET"}
	cookies := []string{"a=1", "b=2"}

	require.NoError(t, s.SaveCookies(acct, cookies))

	got, ok := s.LoadCookies("alice")
	require.True(t, ok)
	assert.Equal(t, cookies, got)

	_, ok = s.LoadCookies("nobody")
	assert.False(t, ok)
}

func TestSaveCookiesIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cookies.json")
	s := New(path, nil)

	acct := model.Account{ScreenName: "alice"}
	cookies := []string{"a=1"}

	require.NoError(t, s.SaveCookies(acct, cookies))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, s.SaveCookies(acct, cookies))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestSaveCookiesUpsertsByUsername(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "cookies.json"), nil)

	acct := model.Account{ScreenName: "alice"}
	require.NoError(t, s.SaveCookies(acct, []string{"a=1"}))
	require.NoError(t, s.SaveCookies(acct, []string{"a=2", "b=3"}))

	got, ok := s.LoadCookies("alice")
	require.True(t, ok)
	assert.Equal(t, []string{"a=2", "b=3"}, got)
}
