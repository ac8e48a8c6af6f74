package nats

import (
	"math/rand"
	"time"
)

// ExpBackoff returns the delay before reconnect attempt n: 2^n seconds,
// capped at max, plus up to one second of jitter.
func ExpBackoff(attempts int, max time.Duration) time.Duration {
	delay := max
	// beyond 2^30s the cap always applies
	if attempts >= 0 && attempts < 30 {
		if d := time.Second << uint(attempts); d < max {
			delay = d
		}
	}

	return delay + time.Duration(rand.Int63n(int64(time.Second)))
}
