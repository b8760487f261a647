// Package proxystore loads the gateway's population of HTTP proxies from a
// flat file and serves a uniformly-random pick to callers that need one.
package proxystore

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"scrapegate/internal/model"
	"scrapegate/pkg/logger"
)

// GeoLookup annotates a proxy host with a country code. Optional; nil means
// no annotation is performed.
type GeoLookup func(host string) string

// Store loads and owns the proxy population.
type Store struct {
	mu     sync.RWMutex
	proxies []model.Proxy
	geo    GeoLookup
	log    logger.Logger
}

// New returns an empty Store. geo may be nil to skip GeoIP annotation.
func New(geo GeoLookup, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{geo: geo, log: log}
}

// Load reads the proxies flat-file, replacing whatever population the store
// previously held. Blank lines and lines starting with "#" are ignored.
// Each remaining line is either "ip:port:user:pass" or "ip:port"; other
// shapes are skipped with a warning.
func (s *Store) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("proxystore: open %s: %w", path, err)
	}
	defer f.Close()

	var proxies []model.Proxy
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p, ok := parseProxyLine(line)
		if !ok {
			s.log.WarnWithFields("skipping malformed proxy line", map[string]interface{}{
				"line": lineNo,
				"path": path,
			})
			continue
		}
		if s.geo != nil {
			p.Country = s.geo(p.Host)
		}
		proxies = append(proxies, p)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("proxystore: scan %s: %w", path, err)
	}

	s.mu.Lock()
	s.proxies = proxies
	s.mu.Unlock()

	s.log.InfoWithFields("loaded proxies", map[string]interface{}{
		"count": len(proxies),
		"path":  path,
	})
	return nil
}

// parseProxyLine accepts "ip:port:user:pass" or "ip:port".
func parseProxyLine(line string) (model.Proxy, bool) {
	fields := strings.Split(line, ":")
	switch len(fields) {
	case 2:
		host, port := fields[0], fields[1]
		return model.Proxy{
			URL:  fmt.Sprintf("http://%s:%s/", host, port),
			Host: host,
			Port: port,
		}, true
	case 4:
		host, port, user, pass := fields[0], fields[1], fields[2], fields[3]
		return model.Proxy{
			URL:  fmt.Sprintf("http://%s:%s@%s:%s/", user, pass, host, port),
			Host: host,
			Port: port,
		}, true
	default:
		return model.Proxy{}, false
	}
}

// PickRandom returns a uniformly-random proxy, or false if the population is
// empty.
func (s *Store) PickRandom() (model.Proxy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.proxies) == 0 {
		return model.Proxy{}, false
	}
	return s.proxies[rand.IntN(len(s.proxies))], true
}

// List returns a defensive copy of the loaded population.
func (s *Store) List() []model.Proxy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Proxy, len(s.proxies))
	copy(out, s.proxies)
	return out
}

// Len reports the current population size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.proxies)
}
