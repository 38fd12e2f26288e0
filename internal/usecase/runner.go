package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"AnnouncementIngestor/internal/ports"
)

// ErrRunnerClosed is returned when a trigger arrives after shutdown.
var ErrRunnerClosed = errors.New("ingestion runner is closed")

// RunnerDeps wires the runner.
type RunnerDeps struct {
	Coordinator *Coordinator
	Status      *StatusTracker
	Notifier    ports.Notifier
	// Location is used for times in run summaries; nil means UTC.
	Location *time.Location
	Logger   *slog.Logger
}

// Runner admits one run at a time and executes it on a single background worker.
type Runner struct {
	coordinator *Coordinator
	status      *StatusTracker
	notifier    ports.Notifier
	location    *time.Location
	pool        *ants.Pool
	publishing  sync.WaitGroup
	logger      *slog.Logger
}

// NewRunner creates the runner and its worker pool.
func NewRunner(deps RunnerDeps) (*Runner, error) {
	if deps.Coordinator == nil {
		return nil, fmt.Errorf("runner: coordinator is required")
	}
	if deps.Status == nil {
		deps.Status = NewStatusTracker()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}

	r := &Runner{
		coordinator: deps.Coordinator,
		status:      deps.Status,
		notifier:    deps.Notifier,
		location:    deps.Location,
		logger:      deps.Logger,
	}

	pool, err := ants.NewPool(1, ants.WithPanicHandler(func(p any) {
		r.logger.Error("run worker panicked", "panic", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("runner: create pool: %w", err)
	}
	r.pool = pool
	return r, nil
}

// Trigger starts a run in the background and returns the fresh status.
// The run outlives ctx's cancellation but keeps its values.
func (r *Runner) Trigger(ctx context.Context) (RunStatus, error) {
	started, err := r.status.TryStart()
	if err != nil {
		return started, err
	}

	runCtx := context.WithoutCancel(ctx)
	if err := r.pool.Submit(func() { r.executeAsync(runCtx) }); err != nil {
		r.status.Fail(err)
		if errors.Is(err, ants.ErrPoolClosed) {
			return r.status.Snapshot(), ErrRunnerClosed
		}
		return r.status.Snapshot(), fmt.Errorf("submit run: %w", err)
	}

	r.logger.Info("ingestion run triggered", "job_id", started.JobID)
	return started, nil
}

// RunNow executes a run on the calling goroutine and returns its final status.
func (r *Runner) RunNow(ctx context.Context) (RunStatus, error) {
	started, err := r.status.TryStart()
	if err != nil {
		return started, err
	}
	r.logger.Info("ingestion run started", "job_id", started.JobID)
	final := r.run(ctx)
	r.publish(ctx, final)
	return final, nil
}

// Status returns the current run bookkeeping.
func (r *Runner) Status() RunStatus {
	return r.status.Snapshot()
}

// Close stops accepting runs and waits up to timeout for the active one
// and any summary still being published.
func (r *Runner) Close(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if err := r.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("release run pool: %w", err)
	}

	done := make(chan struct{})
	go func() {
		r.publishing.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(time.Until(deadline)):
		return fmt.Errorf("run summary still publishing after %s", timeout)
	}
}

func (r *Runner) run(ctx context.Context) RunStatus {
	r.coordinator.Run(ctx, r.status)

	final := r.status.Snapshot()
	r.logger.Info("ingestion run finished", "job_id", final.JobID, "status", final.Status, "message", final.Message)
	return final
}

// executeAsync frees the pool worker as soon as the run is terminal so the
// next trigger never waits on the notifier.
func (r *Runner) executeAsync(ctx context.Context) {
	final := r.run(ctx)
	if r.notifier == nil {
		return
	}
	r.publishing.Add(1)
	go func() {
		defer r.publishing.Done()
		r.publish(ctx, final)
	}()
}

func (r *Runner) publish(ctx context.Context, final RunStatus) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.PublishDigest(ctx, Digest(final, r.location)); err != nil {
		r.logger.Warn("publish run summary", "job_id", final.JobID, "error", err)
	}
}

// Digest renders a run summary for operators, with times shown in loc.
func Digest(s RunStatus, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	started := "-"
	if s.LastRun != nil {
		started = s.LastRun.In(loc).Format("2006-01-02 15:04 MST")
	}
	return fmt.Sprintf("*Announcement ingestion %s*\nJob: %s\nStarted: %s\nNew documents: %d\nProcessed: %d\nFailed: %d\n%s",
		s.Status, escapeMarkdown(s.JobID), started, s.NewDocuments, s.Processed, s.Failed, escapeMarkdown(s.Message))
}

var markdownEscaper = strings.NewReplacer(`_`, `\_`, `*`, `\*`, "`", "\\`", `[`, `\[`)

// escapeMarkdown neutralises Telegram legacy Markdown entities in free text.
func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
