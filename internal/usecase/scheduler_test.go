package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualDriver captures the job so tests decide when it fires.
type manualDriver struct {
	mu      sync.Mutex
	job     func()
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func TestSchedulerTriggersThroughGate(t *testing.T) {
	t.Parallel()

	processor := newBlockingProcessor()
	runner := newTestRunner(t, processor, nil)
	driver := &manualDriver{}
	sched := NewScheduler(driver, runner, nil)

	require.NoError(t, sched.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job()
	<-processor.entered
	first := runner.Status()
	assert.Equal(t, StatusRunning, first.Status)

	// a tick while busy is skipped and leaves the run untouched
	driver.job()
	assert.Equal(t, first, runner.Status())

	close(processor.release)
	require.Eventually(t, func() bool {
		return runner.Status().Status == StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, sched.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerWithoutDriver(t *testing.T) {
	t.Parallel()

	sched := NewScheduler(nil, nil, nil)
	assert.NoError(t, sched.Start(context.Background()))
	assert.NoError(t, sched.Stop(context.Background()))
}
