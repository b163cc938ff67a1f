package scheduler

import (
	"math"
	"time"
)

// BackoffStrategy computes the delay before a retry attempt.
// Strategies are stateless and safe for concurrent use.
type BackoffStrategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	Delay(attempt int) time.Duration
}

// ConstantBackoff always returns the same delay regardless of attempt number.
type ConstantBackoff struct {
	Interval time.Duration
}

// Delay returns the fixed interval.
func (c ConstantBackoff) Delay(_ int) time.Duration {
	return c.Interval
}

// LinearBackoff increases the delay linearly with the attempt number.
// Delay = min(Initial * attempt, Max).
type LinearBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

// Delay returns Initial * attempt, capped at Max.
func (l LinearBackoff) Delay(attempt int) time.Duration {
	d := l.Initial * time.Duration(attempt)
	if l.Max > 0 && d > l.Max {
		return l.Max
	}
	return d
}

// ExponentialBackoff doubles the delay each attempt.
// Delay = min(Initial * 2^(attempt-1), Max).
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

// Delay returns Initial * 2^(attempt-1), capped at Max.
func (e ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(e.Initial) * math.Pow(2, float64(attempt-1)))
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// DefaultBackoff is the retry policy used when none is configured:
// exponential with a 10s base capped at 10m.
var DefaultBackoff BackoffStrategy = ExponentialBackoff{
	Initial: 10 * time.Second,
	Max:     10 * time.Minute,
}
