// Package dispatch implements the request-dispatch subsystem: the
// scheduler that pops admitted requests under a concurrency cap, binds an
// account and proxy to each, authenticates, runs the caller's operation,
// and retries transient failures with exponential backoff.
package dispatch

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"scrapegate/internal/accountstore"
	"scrapegate/internal/classify"
	"scrapegate/internal/health"
	"scrapegate/internal/model"
	"scrapegate/internal/pqueue"
	"scrapegate/internal/proxystore"
	"scrapegate/internal/scanloop"
	"scrapegate/internal/timeout"
	"scrapegate/internal/upstream"
	"scrapegate/pkg/logger"
)

// ErrNoUsableAccounts is returned when account selection has nothing to offer.
var ErrNoUsableAccounts = errors.New("No usable accounts available")

// Config holds the dispatcher's scheduling bounds and per-operation deadlines.
type Config struct {
	MaxConcurrency int
	MaxQueueSize   int
	MaxRetries     int
	SweepInterval  time.Duration
	Timeouts       Timeouts
}

// Timeouts holds the per-operation-class deadlines used by timeout.Run at
// the caller-thunk boundary. The deadline is picked by the opClass passed to
// Execute ("login", "search", "profile", "tweet"); Default is used for
// anything unrecognised.
type Timeouts struct {
	Login   time.Duration
	Search  time.Duration
	Profile time.Duration
	Tweet   time.Duration
	Default time.Duration
}

// DefaultConfig returns the dispatcher defaults from the external-interface
// contract.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
		MaxQueueSize:   1000,
		MaxRetries:     3,
		SweepInterval:  2 * time.Minute,
		Timeouts: Timeouts{
			Login:   45 * time.Second,
			Search:  60 * time.Second,
			Profile: 30 * time.Second,
			Tweet:   35 * time.Second,
			Default: 30 * time.Second,
		},
	}
}

func (t Timeouts) forOp(opClass string) time.Duration {
	switch opClass {
	case "login":
		return t.Login
	case "search":
		return t.Search
	case "profile":
		return t.Profile
	case "tweet":
		return t.Tweet
	default:
		return t.Default
	}
}

// Thunk is the caller's operation: given an authenticated client bound to
// account, produce a result or fail.
type Thunk[T any] func(ctx context.Context, client upstream.Client, account model.Account) (T, error)

// Dispatcher is the scheduler binding the priority queue, health registry,
// account/proxy stores, and the authentication ladder into one execution
// path.
type Dispatcher struct {
	cfg      Config
	queue    *pqueue.Queue
	health   *health.Registry
	accounts *accountstore.Store
	proxies  *proxystore.Store
	factory  upstream.Factory
	ladder   *upstream.Ladder
	log      logger.Logger

	activeOps atomic.Int64

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	wake     chan struct{}
}

// New assembles a Dispatcher from its collaborators.
func New(
	cfg Config,
	accounts *accountstore.Store,
	proxies *proxystore.Store,
	healthReg *health.Registry,
	factory upstream.Factory,
	ladder *upstream.Ladder,
	log logger.Logger,
) *Dispatcher {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 10
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 1000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Dispatcher{
		cfg:      cfg,
		queue:    pqueue.New(cfg.MaxQueueSize),
		health:   healthReg,
		accounts: accounts,
		proxies:  proxies,
		factory:  factory,
		ladder:   ladder,
		log:      log,
		wake:     make(chan struct{}, 1),
	}
}

// Start initialises health records for the current account population and
// launches the scheduler loop and periodic sweep.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.mu.Unlock()

	for _, a := range d.accounts.ListAccounts() {
		d.health.Get(a.ScreenName)
	}

	d.wg.Add(2)
	go d.schedulerLoop()
	go func() {
		defer d.wg.Done()
		scanloop.Run(d.stopCh, d.cfg.SweepInterval, d.cfg.SweepInterval/4, d.health.Sweep)
	}()
}

// Stop tears down the scheduler loop and periodic sweep.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) schedulerLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(100 * time.Millisecond) // ≥10Hz per §4.8
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.drainQueue()
		case <-d.wake:
			d.drainQueue()
		}
	}
}

func (d *Dispatcher) drainQueue() {
	for d.activeOps.Load() < int64(d.cfg.MaxConcurrency) {
		req, ok := d.queue.Dequeue()
		if !ok {
			return
		}
		d.activeOps.Add(1)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer d.activeOps.Add(-1)
			req.Run()
		}()
	}
}

func (d *Dispatcher) nudge() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Execute admits opName's operation at the given priority and returns a
// channel that receives exactly one result once the dispatch loop has
// settled it (success or final failure after retries). Admission may fail
// synchronously if the queue is full.
func Execute[T any](d *Dispatcher, ctx context.Context, opName string, priority model.Priority, opClass string, thunk Thunk[T]) (<-chan Result[T], error) {
	out := make(chan Result[T], 1)

	err := d.queue.Enqueue(priority, func() {
		v, err := runWithRetry(d, ctx, opName, opClass, thunk)
		out <- Result[T]{Value: v, Err: err}
	})
	if err != nil {
		return nil, err
	}
	d.nudge()
	return out, nil
}

// Result is the outcome of one dispatched operation.
type Result[T any] struct {
	Value T
	Err   error
}

func runWithRetry[T any](d *Dispatcher, ctx context.Context, opName, opClass string, thunk Thunk[T]) (T, error) {
	var zero T
	var lastErr error

	opLog := d.log.WithOperation(opName)
	if reqID := requestIDFromContext(ctx); reqID != "" {
		opLog = opLog.WithRequestID(reqID)
	}

	for attempt := 0; attempt < d.cfg.MaxRetries; attempt++ {
		account, ok := d.selectAccount()
		if !ok {
			opLog.Warn("no usable accounts available")
			return zero, ErrNoUsableAccounts
		}
		acctLog := opLog.WithAccount(account.ScreenName)

		proxy, hasProxy := d.proxies.PickRandom()
		var proxyPtr *model.Proxy
		if hasProxy {
			proxyPtr = &proxy
		}

		client, err := d.newClient(proxyPtr)
		if err != nil {
			acctLog.WithError(err).WarnWithFields("upstream client construction failed", map[string]interface{}{"attempt": attempt})
			lastErr = err
			continue
		}

		if err := d.ladder.Authenticate(ctx, client, account); err != nil {
			kind := classify.Classify(err.Error())
			d.health.RecordFailure(account.ScreenName, kind)
			lastErr = err
			acctLog.WarnWithFields("authentication failed", map[string]interface{}{"attempt": attempt, "kind": string(kind), "error": err.Error()})
			if !classify.IsTransient(kind) && kind != classify.RateLimit && kind != classify.AccountLocked {
				return zero, truncated(lastErr)
			}
			if err := d.backoff(ctx, attempt); err != nil {
				return zero, err
			}
			continue
		}

		deadline := d.cfg.Timeouts.forOp(opClass)
		v, err := timeout.Run(ctx, deadline, opName, func(ctx context.Context) (T, error) {
			return thunk(ctx, client, account)
		})

		if err == nil {
			d.health.RecordSuccess(account.ScreenName)
			acctLog.Debug("dispatch succeeded")
			return v, nil
		}

		kind := classify.Classify(err.Error())
		d.health.RecordFailure(account.ScreenName, kind)
		lastErr = err
		acctLog.WarnWithFields("dispatch attempt failed", map[string]interface{}{"attempt": attempt, "kind": string(kind), "error": err.Error()})

		if !classify.IsTransient(kind) && kind != classify.RateLimit && kind != classify.AccountLocked {
			return zero, truncated(lastErr)
		}

		if err := d.backoff(ctx, attempt); err != nil {
			return zero, err
		}
	}

	opLog.WithError(lastErr).Error("dispatch exhausted retries")
	return zero, truncated(lastErr)
}

func (d *Dispatcher) newClient(proxy *model.Proxy) (upstream.Client, error) {
	return d.factory.New(proxy)
}

// backoff sleeps 1000*2^attempt + uniform(0,500) ms, per §4.8 step 6.
func (d *Dispatcher) backoff(ctx context.Context, attempt int) error {
	base := time.Duration(1000*(1<<uint(attempt))) * time.Millisecond
	jitter := time.Duration(rand.IntN(500)) * time.Millisecond
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncated(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(classify.Truncate(err.Error(), 300))
}

// selectAccount implements the §4.8 filter-then-sort selection policy:
// HEALTHY before non-HEALTHY, then ascending consecutiveFailures, then
// least-recently-used.
func (d *Dispatcher) selectAccount() (model.Account, bool) {
	candidates := d.health.Candidates(d.accounts.ListAccounts())
	if len(candidates) == 0 {
		return model.Account{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		hi, hj := candidates[i].Health, candidates[j].Health
		iHealthy := hi.Status == model.StatusHealthy
		jHealthy := hj.Status == model.StatusHealthy
		if iHealthy != jHealthy {
			return iHealthy
		}
		if hi.ConsecutiveFailures != hj.ConsecutiveFailures {
			return hi.ConsecutiveFailures < hj.ConsecutiveFailures
		}
		return hi.LastUsed.Before(hj.LastUsed)
	})

	return candidates[0].Account, true
}

// ActiveOps reports the current in-flight operation count.
func (d *Dispatcher) ActiveOps() int {
	return int(d.activeOps.Load())
}

// QueueDepth reports the current admission-buffer size.
func (d *Dispatcher) QueueDepth() int {
	return d.queue.Len()
}

// Stats matches the getStats() contract from the external-interface spec.
type Stats struct {
	Accounts    AccountsSummary                `json:"accounts"`
	Proxies     ProxiesSummary                 `json:"proxies"`
	Queue       QueueSummary                    `json:"queue"`
	Concurrency ConcurrencySummary              `json:"concurrency"`
	PerAccount  map[string]health.AccountStats `json:"perAccount"`
}

// AccountsSummary breaks the account population down by health status.
type AccountsSummary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Probation int `json:"probation"`
	Cooldown  int `json:"cooldown"`
	Disabled  int `json:"disabled"`
	Locked    int `json:"locked"`
}

// ProxiesSummary is the proxy population count.
type ProxiesSummary struct {
	Total int `json:"total"`
}

// QueueSummary reports admission-buffer occupancy.
type QueueSummary struct {
	Depth   int `json:"depth"`
	MaxSize int `json:"maxSize"`
}

// ConcurrencySummary reports in-flight operation counts.
type ConcurrencySummary struct {
	Active int `json:"active"`
	Max    int `json:"max"`
}

// Stats snapshots the dispatcher, its account population, and its proxy
// pool for the /stats endpoint.
func (d *Dispatcher) Stats() Stats {
	accounts := d.accounts.ListAccounts()
	snap := d.health.Snapshot(accounts)

	return Stats{
		Accounts: AccountsSummary{
			Total:     snap.Total,
			Healthy:   snap.Healthy,
			Probation: snap.Probation,
			Cooldown:  snap.Cooldown,
			Disabled:  snap.Disabled,
			Locked:    snap.Locked,
		},
		Proxies:     ProxiesSummary{Total: d.proxies.Len()},
		Queue:       QueueSummary{Depth: d.queue.Len(), MaxSize: d.queue.Capacity()},
		Concurrency: ConcurrencySummary{Active: d.ActiveOps(), Max: d.cfg.MaxConcurrency},
		PerAccount:  snap.PerAccount,
	}
}
