// Package reload watches the accounts and proxies flat files on a cron
// schedule and reloads them into their respective stores when their content
// has actually changed, per AccountStore.reload() (spec.md §8 invariant 7).
package reload

import (
	"encoding/binary"
	"encoding/hex"
	"os"

	"github.com/robfig/cron/v3"
	"github.com/zeebo/xxh3"

	"scrapegate/internal/accountstore"
	"scrapegate/internal/proxystore"
	"scrapegate/pkg/logger"
)

// DefaultSchedule matches the ambient-stack default: every 5 minutes.
const DefaultSchedule = "*/5 * * * *"

// Watcher periodically re-reads the accounts and proxies flat files,
// skipping the reparse when the file's fingerprint hasn't moved.
type Watcher struct {
	accounts     *accountstore.Store
	proxies      *proxystore.Store
	accountsPath string
	proxiesPath  string
	log          logger.Logger

	lastAccountsHash string
	lastProxiesHash  string

	cronSched *cron.Cron
	entryID   cron.EntryID
}

// New returns a Watcher bound to the given stores and file paths.
func New(accounts *accountstore.Store, proxies *proxystore.Store, accountsPath, proxiesPath string, log logger.Logger) *Watcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Watcher{
		accounts:     accounts,
		proxies:      proxies,
		accountsPath: accountsPath,
		proxiesPath:  proxiesPath,
		log:          log,
		cronSched:    cron.New(),
	}
}

// Start schedules the periodic reload check under expr (a standard 5-field
// cron expression) and runs the cron scheduler in its own goroutine.
func (w *Watcher) Start(expr string) error {
	if expr == "" {
		expr = DefaultSchedule
	}
	id, err := w.cronSched.AddFunc(expr, w.checkAndReload)
	if err != nil {
		return err
	}
	w.entryID = id
	w.cronSched.Start()
	return nil
}

// Stop halts the scheduler and waits for any in-flight run to finish.
func (w *Watcher) Stop() {
	ctx := w.cronSched.Stop()
	<-ctx.Done()
}

// CheckNow runs one reload check immediately, outside the cron schedule —
// useful for an explicit operator-triggered reload.
func (w *Watcher) CheckNow() {
	w.checkAndReload()
}

func (w *Watcher) checkAndReload() {
	if changed, err := reloadIfChanged(w.accountsPath, &w.lastAccountsHash, w.accounts.Load); err != nil {
		w.log.WarnWithFields("account reload failed", map[string]interface{}{"error": err.Error()})
	} else if changed {
		w.log.Info("accounts file changed, reloaded")
	}

	if changed, err := reloadIfChanged(w.proxiesPath, &w.lastProxiesHash, w.proxies.Load); err != nil {
		w.log.WarnWithFields("proxy reload failed", map[string]interface{}{"error": err.Error()})
	} else if changed {
		w.log.Info("proxies file changed, reloaded")
	}
}

func reloadIfChanged(path string, lastHash *string, load func(string) error) (bool, error) {
	if path == "" {
		return false, nil
	}

	sum, err := fingerprint(path)
	if err != nil {
		return false, err
	}
	if sum == *lastHash {
		return false, nil
	}

	if err := load(path); err != nil {
		return false, err
	}
	*lastHash = sum
	return true, nil
}

func fingerprint(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	h128 := xxh3.Hash128(data)
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], h128.Lo)
	binary.LittleEndian.PutUint64(b[8:], h128.Hi)
	return hex.EncodeToString(b[:]), nil
}
