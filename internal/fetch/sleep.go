package fetch

import (
	"context"
	"time"
)

// Sleeper pauses between requests.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper blocks for the full duration or until ctx is done.
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoSleep returns immediately. Used for dry runs and tests.
type NoSleep struct{}

func (NoSleep) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
