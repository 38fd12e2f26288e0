package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalSchedulerFiresAndStops(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	s := NewIntervalScheduler(10 * time.Millisecond)
	require.NoError(t, s.Start(context.Background(), func() { fired.Add(1) }))
	require.NoError(t, s.Start(context.Background(), func() { t.Error("second start must be ignored") }))

	assert.Eventually(t, func() bool { return fired.Load() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	after := fired.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, fired.Load())

	require.NoError(t, s.Stop(context.Background()))
}

func TestIntervalSchedulerNilJob(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(0)
	require.NoError(t, s.Start(context.Background(), nil))
	assert.Equal(t, 24*time.Hour, s.interval)
	require.NoError(t, s.Stop(context.Background()))
}
