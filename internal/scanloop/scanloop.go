// Package scanloop runs a callback at a jittered interval until stopped. It
// backs the health registry's periodic sweep.
package scanloop

import (
	"math/rand/v2"
	"time"
)

// DefaultMinInterval and DefaultJitterRange are used when a caller passes a
// non-positive interval.
const (
	DefaultMinInterval = 30 * time.Second
	DefaultJitterRange = 5 * time.Second
)

// Run executes fn at a jittered interval until stopCh is closed. The
// interval on each iteration is minInterval + random([0, jitterRange)).
func Run(stopCh <-chan struct{}, minInterval, jitterRange time.Duration, fn func()) {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
		if jitterRange <= 0 {
			jitterRange = DefaultJitterRange
		}
	}
	if jitterRange < 0 {
		jitterRange = 0
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C // drain initial fire; the first real tick waits a full interval

	for {
		interval := minInterval
		if jitterRange > 0 {
			interval += time.Duration(rand.Int64N(int64(jitterRange)))
		}

		timer.Reset(interval)
		select {
		case <-stopCh:
			return
		case <-timer.C:
		}
		fn()
	}
}
