package syncqueue

import (
	"math"
	"time"
)

// Backoff computes the retry gate after a failed delivery attempt.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff returns sensible defaults: 2s, 4s, 8s, ... capped at 60s.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial: 2 * time.Second,
		Max:     60 * time.Second,
	}
}

// Delay calculates the delay for the given attempt (0-indexed):
// Initial * 2^attempt, capped at Max.
func (b Backoff) Delay(attempt int) time.Duration {
	delay := float64(b.Initial) * math.Pow(2, float64(attempt))
	if delay > float64(b.Max) {
		return b.Max
	}
	return time.Duration(delay)
}
