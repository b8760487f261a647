package upstream

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapegate/internal/accountstore"
	"scrapegate/internal/model"
)

func newTestLadder(t *testing.T) (*Ladder, *accountstore.Store) {
	t.Helper()
	dir := t.TempDir()
	store := accountstore.New(filepath.Join(dir, "cookies.json"), nil)
	ladder := NewLadder(store, LadderConfig{VerifyTimeout: 2 * time.Second, LoginTimeout: 2 * time.Second}, nil)
	return ladder, store
}

func TestLadderCachedCookiesWin(t *testing.T) {
	ladder, store := newTestLadder(t)
	account := model.Account{ScreenName: "alice", Password: "pw"}
	require.NoError(t, store.SaveCookies(account, []string{"a=1"}))

	client := NewMockClient()
	require.NoError(t, ladder.Authenticate(context.Background(), client, account))
	assert.Equal(t, []string{"a=1"}, client.Cookies())
}

func TestLadderFallsBackToTokens(t *testing.T) {
	ladder, _ := newTestLadder(t)
	account := model.Account{ScreenName: "bob", CT0: "ct0val", AuthToken: "authval"}

	client := NewMockClient()
	assert.NoError(t, ladder.Authenticate(context.Background(), client, account))
}

func TestLadderFallsBackToCredentialLogin(t *testing.T) {
	ladder, _ := newTestLadder(t)
	account := model.Account{ScreenName: "carol", Password: "pw", Email: "c@x.com"}

	client := NewMockClient()
	require.NoError(t, ladder.Authenticate(context.Background(), client, account))
	assert.NotEmpty(t, client.Cookies())
}

func TestLadderExhaustedWhenAllStepsFail(t *testing.T) {
	ladder, _ := newTestLadder(t)
	account := model.Account{ScreenName: "dave", Password: "pw"}

	client := NewMockClient()
	client.VerifyOK = false
	client.LoginErr = ErrMockUpstream

	err := ladder.Authenticate(context.Background(), client, account)
	assert.ErrorIs(t, err, ErrLadderExhausted)
}

func TestLadderPersistsCookiesOnSuccess(t *testing.T) {
	ladder, store := newTestLadder(t)
	account := model.Account{ScreenName: "erin", Password: "pw"}

	client := NewMockClient()
	require.NoError(t, ladder.Authenticate(context.Background(), client, account))

	saved, ok := store.LoadCookies("erin")
	require.True(t, ok)
	assert.NotEmpty(t, saved)
}
