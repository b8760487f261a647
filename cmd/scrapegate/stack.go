package main

import (
	"fmt"
	"net"
	"os"

	"github.com/oschwald/maxminddb-golang"

	"scrapegate/internal/accountstore"
	"scrapegate/internal/dispatch"
	"scrapegate/internal/health"
	"scrapegate/internal/proxystore"
	"scrapegate/internal/upstream"
	"scrapegate/pkg/config"
	"scrapegate/pkg/logger"
)

// stack bundles the collaborators every subcommand that touches the account
// population, proxy population, or dispatcher needs to build.
type stack struct {
	cfg      *config.Config
	accounts *accountstore.Store
	proxies  *proxystore.Store
	health   *health.Registry
	ladder   *upstream.Ladder
	factory  upstream.Factory
	disp     *dispatch.Dispatcher
	log      logger.Logger
}

// buildStack loads the accounts and proxies flat files and assembles the
// dispatcher, but does not start it.
func buildStack(cfg *config.Config) (*stack, error) {
	log := logger.GetLogger()

	geo := geoLookup(cfg.Paths.GeoIPDB, log)

	accounts := accountstore.New(cfg.Paths.CookiesJSON, log)
	if err := accounts.Load(cfg.Paths.AccountsTxt); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	proxies := proxystore.New(geo, log)
	if err := proxies.Load(cfg.Paths.ProxiesTxt); err != nil {
		return nil, fmt.Errorf("load proxies: %w", err)
	}

	healthReg := health.New(health.Config{
		CooldownWindow:       cfg.Health.CooldownWindow,
		RateWindow:           cfg.Health.RateWindow,
		MaxRequestsPerWindow: cfg.Health.MaxRequestsPerWindow,
		MaxConsecutiveFails:  cfg.Health.MaxConsecutiveFails,
	})

	ladder := upstream.NewLadder(accounts, upstream.LadderConfig{
		VerifyTimeout: cfg.Timeouts.Verify,
		LoginTimeout:  cfg.Timeouts.Login,
	}, log)

	// The upstream site's actual wire protocol is out of scope (spec.md's own
	// non-goal delegates it to an opaque Client); referenceFactory below is
	// the stand-in a real deployment replaces with a Factory that logs in and
	// verifies against the real site.
	factory := referenceFactory()

	disp := dispatch.New(dispatch.Config{
		MaxConcurrency: cfg.Dispatch.MaxConcurrency,
		MaxQueueSize:   cfg.Dispatch.MaxQueueSize,
		MaxRetries:     cfg.Dispatch.MaxRetries,
		SweepInterval:  cfg.Health.SweepInterval,
		Timeouts: dispatch.Timeouts{
			Login:   cfg.Timeouts.Login,
			Search:  cfg.Timeouts.Search,
			Profile: cfg.Timeouts.Profile,
			Tweet:   cfg.Timeouts.Tweet,
			Default: cfg.Timeouts.Default,
		},
	}, accounts, proxies, healthReg, factory, ladder, log)

	return &stack{
		cfg:      cfg,
		accounts: accounts,
		proxies:  proxies,
		health:   healthReg,
		ladder:   ladder,
		factory:  factory,
		disp:     disp,
		log:      log,
	}, nil
}

// geoLookup opens the optional MaxMind country database and returns a
// proxystore.GeoLookup backed by it, or nil if no path was configured.
func geoLookup(path string, log logger.Logger) proxystore.GeoLookup {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		log.WarnWithFields("geoip database not found, proxies will be unannotated", map[string]interface{}{
			"path": path,
		})
		return nil
	}

	db, err := maxminddb.Open(path)
	if err != nil {
		log.WarnWithFields("failed to open geoip database", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return nil
	}

	return func(host string) string {
		ip := parseIP(host)
		if ip == nil {
			return ""
		}
		var record struct {
			Country struct {
				ISOCode string `maxminddb:"iso_code"`
			} `maxminddb:"country"`
		}
		if err := db.Lookup(ip, &record); err != nil {
			return ""
		}
		return record.Country.ISOCode
	}
}

func parseIP(host string) net.IP {
	if ip := net.ParseIP(host); ip != nil {
		return ip
	}
	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return nil
	}
	return ips[0]
}
