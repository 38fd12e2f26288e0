package usecase

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Run states reported through RunStatus.Status.
const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// ErrRunInProgress rejects a trigger while another run is active.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// RunStatus is a point-in-time copy of the run bookkeeping.
type RunStatus struct {
	JobID        string     `json:"job_id"`
	LastRun      *time.Time `json:"last_run"`
	Status       string     `json:"status"`
	NewDocuments int        `json:"new_documents"`
	Processed    int        `json:"processed"`
	Failed       int        `json:"failed"`
	Message      string     `json:"message"`
}

// StatusTracker owns the single run-at-a-time gate and the counters of the
// current or most recent run.
type StatusTracker struct {
	mu      sync.Mutex
	current RunStatus
	now     func() time.Time
}

// NewStatusTracker starts idle.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		current: RunStatus{Status: StatusIdle, Message: "Not run yet"},
		now:     time.Now,
	}
}

// TryStart flips the tracker to running with fresh counters, unless a run is
// already active, in which case nothing changes.
func (t *StatusTracker) TryStart() (RunStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.Status == StatusRunning {
		return t.current, ErrRunInProgress
	}

	id, err := uuid.NewV7()
	if err != nil {
		return t.current, fmt.Errorf("generate job id: %w", err)
	}

	started := t.now().UTC()
	t.current = RunStatus{
		JobID:   id.String(),
		LastRun: &started,
		Status:  StatusRunning,
		Message: "Ingestion run started",
	}
	return t.current, nil
}

// AddNewDocument counts an announcement that was not found in storage.
func (t *StatusTracker) AddNewDocument() {
	t.mu.Lock()
	t.current.NewDocuments++
	t.mu.Unlock()
}

// AddProcessed counts a work item that stored at least one page.
func (t *StatusTracker) AddProcessed() {
	t.mu.Lock()
	t.current.Processed++
	t.mu.Unlock()
}

// AddFailed counts a work item that stopped at one of the gates.
func (t *StatusTracker) AddFailed() {
	t.mu.Lock()
	t.current.Failed++
	t.mu.Unlock()
}

// Complete ends the run successfully.
func (t *StatusTracker) Complete(message string) {
	t.finish(StatusCompleted, message)
}

// Fail ends the run with an error message.
func (t *StatusTracker) Fail(err error) {
	t.finish(StatusError, "Error: "+err.Error())
}

func (t *StatusTracker) finish(status, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current.Status = status
	t.current.Message = message
}

// Snapshot returns a copy safe to hand to other goroutines.
func (t *StatusTracker) Snapshot() RunStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.current
	if snap.LastRun != nil {
		last := *snap.LastRun
		snap.LastRun = &last
	}
	return snap
}
