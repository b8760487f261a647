package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapegate/internal/accountstore"
	"scrapegate/internal/health"
	"scrapegate/internal/model"
	"scrapegate/internal/proxystore"
	"scrapegate/internal/upstream"
)

func newTestDispatcher(t *testing.T, cfg Config) (*Dispatcher, *accountstore.Store) {
	t.Helper()
	dir := t.TempDir()
	as := accountstore.New(filepath.Join(dir, "cookies.json"), nil)
	ps := proxystore.New(nil, nil)
	hr := health.New(health.DefaultConfig())
	ladder := upstream.NewLadder(as, upstream.LadderConfig{VerifyTimeout: 2 * time.Second, LoginTimeout: 2 * time.Second}, nil)

	d := New(cfg, as, ps, hr, upstream.MockFactory{}, ladder, nil)
	return d, as
}

// seedAccounts injects accounts directly into the store's in-memory list by
// round-tripping through Load against a freshly written flat file, since
// Store exposes no direct append.
func seedAccounts(t *testing.T, as *accountstore.Store, accounts []model.Account) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "twitters.txt")
	var buf []byte
	for _, a := range accounts {
		line := a.ScreenName + ":" + a.Password + ":" + a.Email + ":" + "ep" + ":" +
			"otpauth://totp/x:secret=" + a.TwoFactorSecret + ":" + a.CT0 + ":" + a.AuthToken
		buf = append(buf, []byte(line+"\n")...)
	}
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	require.NoError(t, as.Load(path))
}

func TestExecuteEndToEndRetryThenSucceed(t *testing.T) {
	d, as := newTestDispatcher(t, DefaultConfig())
	seedAccounts(t, as, []model.Account{{ScreenName: "solo", Password: "pw", CT0: "ct0", AuthToken: "tok"}})
	d.Start()
	defer d.Stop()

	var calls atomic.Int32
	type tweets = []string
	thunk := Thunk[tweets](func(ctx context.Context, client upstream.Client, account model.Account) (tweets, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("request timed out")
		}
		return tweets{"tweet1", "tweet2"}, nil
	})

	out, err := Execute(d, context.Background(), "getTweets(solo)", model.PriorityMedium, "default", thunk)
	require.NoError(t, err)

	select {
	case res := <-out:
		require.NoError(t, res.Err)
		assert.Equal(t, tweets{"tweet1", "tweet2"}, res.Value)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for dispatch result")
	}

	h := d.health.Get("solo")
	assert.Equal(t, int64(2), h.RequestCount)
	assert.Equal(t, 1, h.ConsecutiveSuccesses)
	assert.Equal(t, 0, h.ConsecutiveFailures)
	assert.Equal(t, model.StatusHealthy, h.Status)
}

func TestExecuteNoUsableAccounts(t *testing.T) {
	d, _ := newTestDispatcher(t, DefaultConfig())
	d.Start()
	defer d.Stop()

	thunk := Thunk[string](func(ctx context.Context, client upstream.Client, account model.Account) (string, error) {
		return "unreachable", nil
	})

	out, err := Execute(d, context.Background(), "op", model.PriorityMedium, "default", thunk)
	require.NoError(t, err)
	select {
	case res := <-out:
		assert.ErrorIs(t, res.Err, ErrNoUsableAccounts)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

func TestExecuteQueueFullRejectsSynchronously(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxQueueSize = 1
	cfg.MaxConcurrency = 0 // New resets this to 10; Start is never called, so nothing drains and the buffer fills
	d, as := newTestDispatcher(t, cfg)
	seedAccounts(t, as, []model.Account{{ScreenName: "solo", Password: "pw"}})

	thunk := Thunk[string](func(ctx context.Context, client upstream.Client, account model.Account) (string, error) {
		return "x", nil
	})

	_, err := Execute(d, context.Background(), "op", model.PriorityMedium, "default", thunk)
	require.NoError(t, err)
	_, err = Execute(d, context.Background(), "op", model.PriorityMedium, "default", thunk)
	assert.Error(t, err, "expected queue-full rejection on second admission")
}

func TestSelectAccountOrdersHealthyThenLeastFailuresThenLRU(t *testing.T) {
	d, as := newTestDispatcher(t, DefaultConfig())
	seedAccounts(t, as, []model.Account{
		{ScreenName: "busy"},
		{ScreenName: "fresh"},
	})

	d.health.RecordFailure("busy", "UNKNOWN")
	d.health.RecordFailure("busy", "UNKNOWN")

	chosen, ok := d.selectAccount()
	require.True(t, ok)
	assert.Equal(t, "fresh", chosen.ScreenName)
}
