package httpclient

import (
	"math"
	"math/rand"
	"time"
)

// BackoffPolicy computes the wait before retry attempt n. Exponential with
// jitter, capped.
type BackoffPolicy struct {
	Base   time.Duration
	Max    time.Duration
	Jitter time.Duration
}

func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		Base:   2 * time.Second,
		Max:    60 * time.Second,
		Jitter: time.Second,
	}
}

// Delay returns the wait before attempt n (zero-based). A positive hint
// from the server (Retry-After) overrides the computed delay when longer.
func (b BackoffPolicy) Delay(attempt int, hint time.Duration) time.Duration {
	d := time.Duration(float64(b.Base) * math.Pow(2, float64(attempt)))
	if b.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(b.Jitter)))
	}
	if d > b.Max {
		d = b.Max
	}
	if hint > d {
		d = hint
		if d > b.Max {
			d = b.Max
		}
	}
	return d
}

// TransportDelay returns the wait before attempt n after a transport-level
// failure. A reset connection or timeout usually means active blocking
// rather than a busy server, so the wait is double the status-based delay,
// still capped.
func (b BackoffPolicy) TransportDelay(attempt int) time.Duration {
	d := 2 * b.Delay(attempt, 0)
	if d > b.Max {
		d = b.Max
	}
	return d
}
