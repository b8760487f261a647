package upstream

import (
	"context"
	"errors"
	"time"

	"github.com/maypok86/otter"

	"scrapegate/internal/accountstore"
	"scrapegate/internal/model"
	"scrapegate/internal/timeout"
	"scrapegate/pkg/logger"
)

// ErrLadderExhausted is returned when none of the three authentication
// paths produce a usable session.
var ErrLadderExhausted = errors.New("account not usable: authentication ladder exhausted")

// LadderConfig holds the per-step deadlines the ladder enforces.
type LadderConfig struct {
	VerifyTimeout time.Duration
	LoginTimeout  time.Duration
}

// DefaultLadderConfig matches the external-interface defaults.
func DefaultLadderConfig() LadderConfig {
	return LadderConfig{
		VerifyTimeout: 15 * time.Second,
		LoginTimeout:  45 * time.Second,
	}
}

const upstreamCookieDomain = ".upstream.example"

// Ladder authenticates a Client against an Account, trying cached cookies,
// then pre-obtained tokens, then a fresh credential login — the first step
// that yields a verified session wins. Steps are inherently sequential:
// each short-circuits on success and credential login is comparatively
// expensive, so they are never run in parallel.
type Ladder struct {
	accounts *accountstore.Store
	cfg      LadderConfig
	log      logger.Logger

	// verifyCache remembers a recent successful verification per account so
	// a burst of dispatches within the TTL window skips the trivial
	// upstream call. A cache miss always walks the full ladder — this is a
	// latency optimization, never a change to ladder semantics.
	verifyCache otter.Cache[string, bool]
}

// NewLadder returns a Ladder bound to the given account store.
func NewLadder(accounts *accountstore.Store, cfg LadderConfig, log logger.Logger) *Ladder {
	if log == nil {
		log = logger.GetLogger()
	}
	cache, err := otter.MustBuilder[string, bool](4096).
		Cost(func(_ string, _ bool) uint32 { return 1 }).
		WithTTL(30 * time.Second).
		Build()
	if err != nil {
		// otter only fails to build on invalid capacity; 4096 is always valid.
		panic("upstream: failed to build verify cache: " + err.Error())
	}
	return &Ladder{accounts: accounts, cfg: cfg, log: log, verifyCache: cache}
}

// Authenticate walks the ladder for account against client, returning nil
// once a usable session is installed. On success, fresh cookies are
// persisted through the account store.
func (l *Ladder) Authenticate(ctx context.Context, client Client, account model.Account) error {
	if l.tryCachedCookies(ctx, client, account) {
		return nil
	}
	if l.tryPreObtainedTokens(ctx, client, account) {
		return nil
	}
	if l.tryCredentialLogin(ctx, client, account) {
		return nil
	}
	return ErrLadderExhausted
}

func (l *Ladder) tryCachedCookies(ctx context.Context, client Client, account model.Account) bool {
	cookies, ok := l.accounts.LoadCookies(account.ScreenName)
	if !ok || len(cookies) == 0 {
		return false
	}

	client.SetRawCookies(cookies)
	if !l.verify(ctx, client, account.ScreenName) {
		return false
	}
	l.persist(account, client)
	return true
}

func (l *Ladder) tryPreObtainedTokens(ctx context.Context, client Client, account model.Account) bool {
	if !account.HasToken() {
		return false
	}

	client.SetCookies([]Cookie{
		{Name: "auth_token", Value: account.AuthToken, Domain: upstreamCookieDomain, Path: "/", Secure: true, HTTPOnly: true},
		{Name: "ct0", Value: account.CT0, Domain: upstreamCookieDomain, Path: "/", Secure: true},
	})

	if !l.verify(ctx, client, account.ScreenName) {
		return false
	}
	l.persist(account, client)
	return true
}

func (l *Ladder) tryCredentialLogin(ctx context.Context, client Client, account model.Account) bool {
	_, err := timeout.Run(ctx, l.cfg.LoginTimeout, "login", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, client.Login(ctx, account)
	})
	if err != nil {
		l.log.DebugWithFields("credential login failed", map[string]interface{}{
			"account": account.ScreenName,
			"error":   err.Error(),
		})
		return false
	}

	if !l.verify(ctx, client, account.ScreenName) {
		return false
	}
	l.persist(account, client)
	return true
}

// verify issues one trivial upstream call under the verify-class deadline
// and caches a positive result briefly to absorb dispatch bursts.
func (l *Ladder) verify(ctx context.Context, client Client, screenName string) bool {
	if ok, hit := l.verifyCache.Get(screenName); hit && ok {
		return true
	}

	ok, err := timeout.Run(ctx, l.cfg.VerifyTimeout, "verify", func(ctx context.Context) (bool, error) {
		return client.VerifySession(ctx)
	})
	if err != nil || !ok {
		return false
	}

	l.verifyCache.Set(screenName, true)
	return true
}

func (l *Ladder) persist(account model.Account, client Client) {
	if err := l.accounts.SaveCookies(account, client.Cookies()); err != nil {
		l.log.WarnWithFields("failed to persist cookies", map[string]interface{}{
			"account": account.ScreenName,
			"error":   err.Error(),
		})
	}
}
