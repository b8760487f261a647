// Package health owns the per-account health record: the HEALTHY/PROBATION/
// COOLDOWN/DISABLED/LOCKED state machine, the success-rate EMA, and the
// sliding-window rate-limit bookkeeping that account selection reads.
package health

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"scrapegate/internal/classify"
	"scrapegate/internal/model"
)

// Config holds the tuning knobs the state machine and sweep use.
type Config struct {
	CooldownWindow      time.Duration
	RateWindow          time.Duration
	MaxRequestsPerWindow int
	MaxConsecutiveFails int
}

// DefaultConfig returns the defaults from the external-interface contract.
func DefaultConfig() Config {
	return Config{
		CooldownWindow:       2 * time.Minute,
		RateWindow:           15 * time.Minute,
		MaxRequestsPerWindow: 50,
		MaxConsecutiveFails:  10,
	}
}

// entry pairs an AccountHealth record with the mutex that serialises its
// mutations. One entry per touched account; the map itself is lock-free for
// concurrent reads during account selection.
type entry struct {
	mu     sync.Mutex
	health model.AccountHealth
}

// Registry owns the username -> AccountHealth mapping. Weak by design: an
// entry orphaned by an account disappearing from the account store is
// harmless dead weight, never a dangling pointer.
type Registry struct {
	entries *xsync.Map[string, *entry]
	cfg     Config
	now     func() time.Time
}

// New returns an empty Registry.
func New(cfg Config) *Registry {
	return &Registry{
		entries: xsync.NewMap[string, *entry](),
		cfg:     cfg,
		now:     time.Now,
	}
}

func (r *Registry) load(username string) *entry {
	e, _ := r.entries.LoadOrCompute(username, func() (*entry, bool) {
		return &entry{health: *model.NewAccountHealth()}, false
	})
	return e
}

// Get returns a snapshot of the account's current health record, lazily
// initialising it as HEALTHY on first touch.
func (r *Registry) Get(username string) model.AccountHealth {
	e := r.load(username)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.health
}

// RecordSuccess applies the success transitions in §4.6: counters advance,
// the EMA moves toward 1, the request lands in the rate-limit window, and
// PROBATION accounts promote to HEALTHY after three straight successes.
func (r *Registry) RecordSuccess(username string) {
	e := r.load(username)
	e.mu.Lock()
	defer e.mu.Unlock()

	h := &e.health
	now := r.now()

	h.LastUsed = now
	h.RequestCount++
	h.ConsecutiveSuccesses++
	h.ConsecutiveFailures = 0
	h.SuccessRate = h.SuccessRate*0.9 + 0.1
	h.RecentTimestamps = append(h.RecentTimestamps, now)

	if h.Status == model.StatusProbation && h.ConsecutiveSuccesses >= 3 {
		h.Status = model.StatusHealthy
	}
}

// RecordFailure applies the failure transitions in §4.6 for the given
// classified error kind.
func (r *Registry) RecordFailure(username string, kind classify.Kind) {
	e := r.load(username)
	e.mu.Lock()
	defer e.mu.Unlock()

	h := &e.health
	now := r.now()

	h.LastUsed = now
	h.RequestCount++
	h.ConsecutiveFailures++
	h.ConsecutiveSuccesses = 0
	h.SuccessRate = h.SuccessRate * 0.9
	h.RecentTimestamps = append(h.RecentTimestamps, now)
	h.LastErrorKind = string(kind)
	h.LastErrorAt = now

	// AUTH/NOT_FOUND errors bump counters only; they never change status
	// (§9 design note: the credentials may be fine, the endpoint merely
	// forbidden for this request).
	switch kind {
	case classify.AccountLocked:
		h.Status = model.StatusLocked
	case classify.RateLimit:
		h.Status = model.StatusCooldown
		h.CooldownUntil = now.Add(r.cfg.CooldownWindow)
	case classify.Auth, classify.NotFound:
		// counters only, no transition
	default:
		if h.Status == model.StatusHealthy || h.Status == model.StatusProbation {
			if h.ConsecutiveFailures >= r.cfg.MaxConsecutiveFails {
				h.Status = model.StatusCooldown
				h.CooldownUntil = now.Add(r.cfg.CooldownWindow)
			}
		}
	}
}

// Disable terminally marks an account DISABLED, e.g. on operator command.
func (r *Registry) Disable(username string) {
	e := r.load(username)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.health.Status = model.StatusDisabled
}

// Sweep runs the periodic maintenance pass: COOLDOWN entries whose deadline
// has passed move to PROBATION with consecutiveFailures reset, and
// recentTimestamps outside the rate window are pruned everywhere. It should
// run at least as often as cfg.RateWindow demands freshness, and no less
// often than every 2 minutes per §4.6.
func (r *Registry) Sweep() {
	now := r.now()
	cutoff := now.Add(-r.cfg.RateWindow)

	r.entries.Range(func(_ string, e *entry) bool {
		e.mu.Lock()
		h := &e.health

		if h.Status == model.StatusCooldown && now.After(h.CooldownUntil) {
			h.Status = model.StatusProbation
			h.ConsecutiveFailures = 0
		}

		h.RecentTimestamps = pruneBefore(h.RecentTimestamps, cutoff)

		e.mu.Unlock()
		return true
	})
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	out := make([]time.Time, len(ts)-i)
	copy(out, ts[i:])
	return out
}

// windowCount returns |recentTimestamps within [now-RateWindow, now]|. It
// does not modify ts; stale entries are removed by Sweep via pruneBefore.
func windowCount(ts []time.Time, now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	n := 0
	for _, t := range ts {
		if !t.Before(cutoff) {
			n++
		}
	}
	return n
}

// Selectable is a candidate account carrying the snapshot needed for
// sorting, returned by Candidates.
type Selectable struct {
	Account model.Account
	Health  model.AccountHealth
}

// Candidates filters accounts to those eligible for selection per §4.8:
// not DISABLED/LOCKED, cooldown deadline passed if in COOLDOWN, and under
// the per-window request cap.
func (r *Registry) Candidates(accounts []model.Account) []Selectable {
	now := r.now()
	out := make([]Selectable, 0, len(accounts))

	for _, a := range accounts {
		e := r.load(a.ScreenName)
		e.mu.Lock()
		h := e.health
		e.mu.Unlock()

		if h.Status == model.StatusDisabled || h.Status == model.StatusLocked {
			continue
		}
		if h.Status == model.StatusCooldown && now.Before(h.CooldownUntil) {
			continue
		}
		if windowCount(h.RecentTimestamps, now, r.cfg.RateWindow) >= r.cfg.MaxRequestsPerWindow {
			continue
		}
		out = append(out, Selectable{Account: a, Health: h})
	}
	return out
}

// Stats summarises the population's health for the /stats endpoint.
type Stats struct {
	Total     int
	Healthy   int
	Probation int
	Cooldown  int
	Disabled  int
	Locked    int
	PerAccount map[string]AccountStats
}

// AccountStats is one row of the per-account breakdown in Stats.
type AccountStats struct {
	Status         model.Status
	Requests       int64
	SuccessRatePct float64
}

// Snapshot summarises health across the given accounts.
func (r *Registry) Snapshot(accounts []model.Account) Stats {
	s := Stats{PerAccount: make(map[string]AccountStats, len(accounts))}
	for _, a := range accounts {
		h := r.Get(a.ScreenName)
		s.Total++
		switch h.Status {
		case model.StatusHealthy:
			s.Healthy++
		case model.StatusProbation:
			s.Probation++
		case model.StatusCooldown:
			s.Cooldown++
		case model.StatusDisabled:
			s.Disabled++
		case model.StatusLocked:
			s.Locked++
		}
		s.PerAccount[a.ScreenName] = AccountStats{
			Status:         h.Status,
			Requests:       h.RequestCount,
			SuccessRatePct: h.SuccessRate * 100,
		}
	}
	return s
}
