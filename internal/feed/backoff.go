package feed

import (
	"math/rand"
	"time"
)

const (
	baseReconnectDelay = 1 * time.Second
	maxReconnectDelay  = 30 * time.Second
)

// backoff produces exponentially growing reconnect delays with jitter.
// Not safe for concurrent use; each connection loop owns one.
type backoff struct {
	attempt int
}

// next returns the delay before the upcoming attempt and advances the
// counter. Delays double from the base up to the cap, with up to 25% jitter
// so a fleet of adapters does not reconnect in lockstep.
func (b *backoff) next() time.Duration {
	d := baseReconnectDelay << b.attempt
	if d > maxReconnectDelay || d <= 0 {
		d = maxReconnectDelay
	} else {
		b.attempt++
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 4))
	return d + jitter
}

// reset clears the counter after a successful connection.
func (b *backoff) reset() {
	b.attempt = 0
}
