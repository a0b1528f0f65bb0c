package syncer

import (
	"math/rand"
	"time"
)

// Backoff produces bounded exponential delays with jitter. It replaces ad-hoc
// retry loops with an explicit, testable parameter set.
type Backoff struct {
	Base    time.Duration
	Cap     time.Duration
	attempt int
}

// Next returns the delay for the current attempt and advances the counter.
// Each delay is the capped exponential with up to ±25% jitter.
func (b *Backoff) Next() time.Duration {
	d := b.Base << b.attempt
	if d <= 0 || d > b.Cap {
		d = b.Cap
	} else {
		b.attempt++
	}
	jitter := time.Duration(rand.Int63n(int64(d)/2+1)) - d/4
	return d + jitter
}

// Reset rewinds the counter after a successful attempt.
func (b *Backoff) Reset() {
	b.attempt = 0
}
