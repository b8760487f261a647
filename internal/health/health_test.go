package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapegate/internal/classify"
	"scrapegate/internal/model"
)

func newTestRegistry() *Registry {
	r := New(Config{
		CooldownWindow:       2 * time.Minute,
		RateWindow:           15 * time.Minute,
		MaxRequestsPerWindow: 50,
		MaxConsecutiveFails:  10,
	})
	return r
}

func TestFreshAccountIsHealthy(t *testing.T) {
	r := newTestRegistry()
	h := r.Get("alice")
	assert.Equal(t, model.StatusHealthy, h.Status)
	assert.Equal(t, 1.0, h.SuccessRate)
}

func TestConsecutiveCountersAreExclusive(t *testing.T) {
	r := newTestRegistry()
	r.RecordSuccess("alice")
	r.RecordSuccess("alice")
	h := r.Get("alice")
	assert.Equal(t, 2, h.ConsecutiveSuccesses)
	assert.Equal(t, 0, h.ConsecutiveFailures)

	r.RecordFailure("alice", classify.Network)
	h = r.Get("alice")
	assert.Equal(t, 1, h.ConsecutiveFailures)
	assert.Equal(t, 0, h.ConsecutiveSuccesses)
}

func TestRateLimitTriggersCooldown(t *testing.T) {
	r := newTestRegistry()
	r.RecordFailure("alice", classify.RateLimit)

	h := r.Get("alice")
	require.Equal(t, model.StatusCooldown, h.Status)
	assert.True(t, h.CooldownUntil.After(time.Now()))

	cands := r.Candidates([]model.Account{{ScreenName: "alice"}})
	assert.Empty(t, cands)
}

func TestAccountLockedIsTerminal(t *testing.T) {
	r := newTestRegistry()
	r.RecordFailure("alice", classify.AccountLocked)
	h := r.Get("alice")
	require.Equal(t, model.StatusLocked, h.Status)

	r.RecordSuccess("alice")
	h = r.Get("alice")
	assert.Equal(t, model.StatusLocked, h.Status)

	cands := r.Candidates([]model.Account{{ScreenName: "alice"}})
	assert.Empty(t, cands)
}

func TestAuthAndNotFoundDoNotChangeStatus(t *testing.T) {
	r := newTestRegistry()
	r.RecordFailure("alice", classify.Auth)
	r.RecordFailure("alice", classify.NotFound)
	h := r.Get("alice")
	assert.Equal(t, model.StatusHealthy, h.Status)
	assert.Equal(t, 2, h.ConsecutiveFailures)
}

func TestMaxConsecutiveFailuresTriggersCooldown(t *testing.T) {
	r := newTestRegistry()
	r.cfg.MaxConsecutiveFails = 3
	for i := 0; i < 3; i++ {
		r.RecordFailure("alice", classify.Network)
	}
	h := r.Get("alice")
	assert.Equal(t, model.StatusCooldown, h.Status)
}

func TestProbationPromotesAfterThreeSuccesses(t *testing.T) {
	r := newTestRegistry()
	r.RecordFailure("alice", classify.RateLimit)
	r.now = func() time.Time { return time.Now().Add(3 * time.Minute) }
	r.Sweep()

	h := r.Get("alice")
	require.Equal(t, model.StatusProbation, h.Status)

	r.RecordSuccess("alice")
	r.RecordSuccess("alice")
	h = r.Get("alice")
	require.Equal(t, model.StatusProbation, h.Status)

	r.RecordSuccess("alice")
	h = r.Get("alice")
	assert.Equal(t, model.StatusHealthy, h.Status)
}

func TestSweepPrunesOldTimestamps(t *testing.T) {
	r := newTestRegistry()
	r.now = func() time.Time { return time.Now().Add(-1 * time.Hour) }
	r.RecordSuccess("alice")

	r.now = time.Now
	r.Sweep()

	h := r.Get("alice")
	assert.Empty(t, h.RecentTimestamps)
}

func TestCandidatesExcludeOverRateLimit(t *testing.T) {
	r := newTestRegistry()
	r.cfg.MaxRequestsPerWindow = 2
	r.RecordSuccess("alice")
	r.RecordSuccess("alice")

	cands := r.Candidates([]model.Account{{ScreenName: "alice"}})
	assert.Empty(t, cands)
}

func TestSuccessRateEMA(t *testing.T) {
	r := newTestRegistry()
	r.RecordFailure("alice", classify.Network)
	h := r.Get("alice")
	assert.InDelta(t, 0.9, h.SuccessRate, 1e-9)

	r.RecordSuccess("alice")
	h = r.Get("alice")
	want := 0.9*0.9 + 0.1
	assert.InDelta(t, want, h.SuccessRate, 1e-9)
}
