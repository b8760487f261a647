package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapegate/internal/accountstore"
	"scrapegate/internal/dispatch"
	"scrapegate/internal/health"
	"scrapegate/internal/model"
	"scrapegate/internal/proxystore"
	"scrapegate/internal/upstream"
	"scrapegate/pkg/auth"
)

type stubBackend struct{}

func (stubBackend) Tweets(ctx context.Context, c upstream.Client, a model.Account, username string, count int) (any, error) {
	return []string{"t1", "t2"}, nil
}
func (stubBackend) LatestTweet(ctx context.Context, c upstream.Client, a model.Account, username string) (any, error) {
	return "t1", nil
}
func (stubBackend) Replies(ctx context.Context, c upstream.Client, a model.Account, username string, count int) (any, error) {
	return []string{}, nil
}
func (stubBackend) Search(ctx context.Context, c upstream.Client, a model.Account, query, mode string, count int) (any, error) {
	return map[string]any{"query": query, "count": count}, nil
}
func (stubBackend) Profile(ctx context.Context, c upstream.Client, a model.Account, username string) (any, error) {
	return map[string]string{"username": username}, nil
}
func (stubBackend) Followers(ctx context.Context, c upstream.Client, a model.Account, username string, count int) (any, error) {
	return []string{}, nil
}
func (stubBackend) Following(ctx context.Context, c upstream.Client, a model.Account, username string, count int) (any, error) {
	return []string{}, nil
}
func (stubBackend) Tweet(ctx context.Context, c upstream.Client, a model.Account, id string) (any, error) {
	return map[string]string{"id": id}, nil
}

func newTestServer(t *testing.T) (*Server, *auth.MockStore) {
	t.Helper()
	dir := t.TempDir()
	as := accountstore.New(filepath.Join(dir, "cookies.json"), nil)
	path := filepath.Join(dir, "twitters.txt")
	writeAccountsFile(t, path, "solo:pw:e@x.com:ep:otpauth://totp/x:secret=S:ct0:tok")
	require.NoError(t, as.Load(path))

	ps := proxystore.New(nil, nil)
	hr := health.New(health.DefaultConfig())
	ladder := upstream.NewLadder(as, upstream.LadderConfig{VerifyTimeout: 2 * time.Second, LoginTimeout: 2 * time.Second}, nil)
	d := dispatch.New(dispatch.DefaultConfig(), as, ps, hr, upstream.MockFactory{}, ladder, nil)
	d.Start()
	t.Cleanup(d.Stop)

	mgr, store := auth.NewMockManager()
	store.Store(&auth.AdminToken{Token: "s3cr3t"})

	srv := New(Config{ListenAddr: "127.0.0.1:0"}, d, stubBackend{}, mgr, nil)
	return srv, store
}

func writeAccountsFile(t *testing.T, path, line string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0o644))
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v3/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestStatsRequiresAdminToken(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v3/stats", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v3/stats", nil)
	req.Header.Set("Authorization", "Bearer s3cr3t")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearchClampsCount(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v3/search?q=golang&count=9999", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	data, ok := body.Data.(map[string]any)
	require.True(t, ok, "unexpected data shape: %T", body.Data)
	assert.Equal(t, float64(100), data["count"])
}
