package bundle

import (
	"context"
	"math"
	"time"
)

// backoff computes submission retry delays: min(base*mult^(n-1), max) for
// attempt n.
type backoff struct {
	base       time.Duration
	max        time.Duration
	multiplier float64
}

func newBackoff(base, max time.Duration, multiplier float64) backoff {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if max < base {
		max = base
	}
	if multiplier < 1 {
		multiplier = 2
	}
	return backoff{base: base, max: max, multiplier: multiplier}
}

// delay returns the wait before the attempt following attempt n (n >= 1).
func (b backoff) delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	scaled := float64(b.base) * math.Pow(b.multiplier, float64(attempt-1))
	if scaled > float64(b.max) {
		return b.max
	}
	return time.Duration(scaled)
}

// sleep waits for d unless the context is cancelled first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
