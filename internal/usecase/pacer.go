package usecase

import (
	"context"
	"time"
)

// Pacer inserts the pause between two work items.
type Pacer interface {
	Pause(ctx context.Context)
}

// IntervalPacer sleeps for a fixed interval or until ctx is done.
type IntervalPacer struct {
	Interval time.Duration
}

// Pause blocks for the configured interval.
func (p IntervalPacer) Pause(ctx context.Context) {
	if p.Interval <= 0 {
		return
	}
	timer := time.NewTimer(p.Interval)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
