package supervisor

import (
	"math/rand"
	"time"
)

// NextDelay grows the tier's base wait with consecutive failures and
// spreads retries with jitter so a flapping link does not produce a
// metronome of reconnects. Growth caps at five times the base.
func NextDelay(base time.Duration, attempt int, rng *rand.Rand) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	delay := base
	for i := 0; i < attempt && delay < 5*base; i++ {
		delay *= 2
	}
	if delay > 5*base {
		delay = 5 * base
	}
	if rng != nil {
		// ±20% jitter.
		span := int64(delay) / 5
		delay += time.Duration(rng.Int63n(2*span+1) - span)
	}
	return delay
}
