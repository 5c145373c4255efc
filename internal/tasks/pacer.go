package tasks

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer spaces platform actions with a random delay in [min, max].
type Pacer struct {
	min   time.Duration
	max   time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPacer(min, max time.Duration) *Pacer {
	if max < min {
		max = min
	}
	return &Pacer{min: min, max: max, sleep: sleep}
}

func (p *Pacer) delay() time.Duration {
	if p.max == p.min {
		return p.min
	}
	return p.min + rand.N(p.max-p.min+1)
}

func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	return p.sleep(ctx, p.delay())
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
