package session

import (
	"context"
	"math/rand/v2"
	"time"
)

type backoff struct {
	base time.Duration
	max  time.Duration
}

// delay grows as base * 2^attempt, capped at max, with ±25% jitter.
func (b backoff) delay(attempt int) time.Duration {
	d := float64(b.base)
	for i := 0; i < attempt && d < float64(b.max); i++ {
		d *= 2
	}
	if d > float64(b.max) {
		d = float64(b.max)
	}

	d += d * 0.25 * (rand.Float64()*2 - 1)
	if d <= 0 {
		d = float64(b.base)
	}
	return time.Duration(d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
