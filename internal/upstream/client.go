// Package upstream defines the opaque client the dispatcher authenticates
// and hands to a caller's operation, plus the factory and authentication
// ladder that produce one bound to a specific account and (optional) proxy.
//
// This package deliberately knows nothing about the third-party site's
// actual protocol — cookie names, endpoint shapes, and response formats are
// left to whatever Client implementation is wired in at runtime. The
// scraping operations a caller's thunk performs are opaque to this package
// too; Client exposes only what the auth ladder itself needs.
package upstream

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"

	"scrapegate/internal/model"
)

// Cookie is one cookie the ladder installs or reads back from a Client.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
}

// Client is the minimal surface the auth ladder and dispatcher need. A real
// implementation wraps whatever HTTP calls the upstream site requires;
// scraping operations beyond this are invoked directly by the caller's
// thunk against the concrete type it was handed.
type Client interface {
	// SetCookies installs cookies scoped to the upstream domain, with
	// explicit per-cookie attributes.
	SetCookies(cookies []Cookie)
	// SetRawCookies installs a previously-persisted, opaque cookie set
	// (AccountStore.CookieSet) verbatim.
	SetRawCookies(cookies []string)
	// Cookies returns the client's current cookie jar as opaque strings,
	// suitable for AccountStore.SaveCookies.
	Cookies() []string
	// Login performs credential-based authentication.
	Login(ctx context.Context, account model.Account) error
	// VerifySession issues one trivial call to confirm the current cookies
	// are usable; a true result means the session is good.
	VerifySession(ctx context.Context) (bool, error)
}

// Factory builds a Client bound to one proxy (or none, for direct egress).
type Factory interface {
	New(proxy *model.Proxy) (Client, error)
}

// HTTPFactory builds Clients backed by net/http, routing all traffic through
// the supplied proxy via a dedicated Transport when one is given.
type HTTPFactory struct {
	// Build is invoked once a *http.Client is constructed for the requested
	// proxy; it should return a Client that uses hc for all of its calls.
	Build func(hc *http.Client) Client
}

// New builds an *http.Client egressing through proxy (nil for direct) and
// hands it to f.Build to produce the domain Client.
func (f HTTPFactory) New(proxy *model.Proxy) (Client, error) {
	hc := &http.Client{Timeout: 30 * time.Second}

	if proxy != nil {
		proxyURL, err := url.Parse(proxy.URL)
		if err != nil {
			return nil, err
		}
		cfg := &httpproxy.Config{
			HTTPProxy:  proxyURL.String(),
			HTTPSProxy: proxyURL.String(),
		}
		proxyFunc := cfg.ProxyFunc()
		hc.Transport = &http.Transport{
			Proxy: func(req *http.Request) (*url.URL, error) {
				return proxyFunc(req.URL)
			},
		}
	}

	return f.Build(hc), nil
}
