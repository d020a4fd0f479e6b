package selectionsource

import (
	"math"
	"math/rand"
	"time"
)

// Backoff spaces out resubscribe attempts after the pub/sub connection drops.
type Backoff struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
	// Jitter scales each delay by a random factor in [0.5, 1.5).
	Jitter bool
}

func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    250 * time.Millisecond,
		Multiplier: 2.0,
		Max:        5 * time.Second,
		Jitter:     true,
	}
}

// Delay returns the wait before attempt n (1-based). rng may be nil, which
// pins the jitter factor to 1.
func (b Backoff) Delay(n int, rng *rand.Rand) time.Duration {
	if b.Initial <= 0 {
		return 0
	}
	mult := math.Max(b.Multiplier, 1)
	d := float64(b.Initial) * math.Pow(mult, float64(max(n, 1)-1))
	if b.Max > 0 {
		d = math.Min(d, float64(b.Max))
	}
	if b.Jitter && rng != nil {
		d *= 0.5 + rng.Float64()
	}
	return time.Duration(d)
}
