package reload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapegate/internal/accountstore"
	"scrapegate/internal/proxystore"
)

func TestCheckNowSkipsUnchangedFile(t *testing.T) {
	dir := t.TempDir()
	accountsPath := filepath.Join(dir, "twitters.txt")
	proxiesPath := filepath.Join(dir, "proxies.txt")

	require.NoError(t, os.WriteFile(accountsPath, []byte("alice:pw:a@x.com:ep:otpauth://totp/x:secret=S:ct0:tok\n"), 0o644))
	require.NoError(t, os.WriteFile(proxiesPath, []byte("1.2.3.4:8080\n"), 0o644))

	as := accountstore.New(filepath.Join(dir, "cookies.json"), nil)
	ps := proxystore.New(nil, nil)

	w := New(as, ps, accountsPath, proxiesPath, nil)
	w.CheckNow()

	require.Len(t, as.ListAccounts(), 1)
	firstHash := w.lastAccountsHash

	w.CheckNow()
	assert.Equal(t, firstHash, w.lastAccountsHash, "fingerprint changed on unchanged file")
}

func TestCheckNowReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	accountsPath := filepath.Join(dir, "twitters.txt")
	proxiesPath := filepath.Join(dir, "proxies.txt")

	require.NoError(t, os.WriteFile(accountsPath, []byte("alice:pw:a@x.com:ep:otpauth://totp/x:secret=S:ct0:tok\n"), 0o644))
	require.NoError(t, os.WriteFile(proxiesPath, []byte("1.2.3.4:8080\n"), 0o644))

	as := accountstore.New(filepath.Join(dir, "cookies.json"), nil)
	ps := proxystore.New(nil, nil)
	w := New(as, ps, accountsPath, proxiesPath, nil)
	w.CheckNow()

	require.NoError(t, os.WriteFile(accountsPath, []byte("alice:pw:a@x.com:ep:otpauth://totp/x:secret=S:ct0:tok\nbob:pw2:b@x.com:ep:otpauth://totp/x:secret=S2:ct02:tok2\n"), 0o644))
	w.CheckNow()

	assert.Len(t, as.ListAccounts(), 2)
}
