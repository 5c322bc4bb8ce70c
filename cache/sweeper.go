package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/partsource/clock"
)

// Sweep runs store.SweepExpired every interval until ctx is done. onSweep,
// if set, receives each result. It blocks; run it in its own goroutine.
func Sweep(ctx context.Context, store Store, interval time.Duration, c clock.Clock, onSweep func(removed int, err error)) {
	if interval <= 0 {
		return
	}
	c = clock.OrReal(c)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.After(interval):
		}

		removed, err := store.SweepExpired(ctx, "")
		if onSweep != nil {
			onSweep(removed, err)
		}
	}
}
