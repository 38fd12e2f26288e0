package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"AnnouncementIngestor/internal/domain"
	"AnnouncementIngestor/internal/ports"
)

// MessageNoData is the completion message when the catalog came back empty.
const MessageNoData = "No data scraped from source"

// DocumentProcessor handles one work item.
type DocumentProcessor interface {
	Process(ctx context.Context, item domain.WorkItem) (int, error)
}

// CoordinatorDeps wires everything a run needs.
type CoordinatorDeps struct {
	Lister    ports.AnnouncementLister
	Oracle    ports.ExistenceOracle
	Processor DocumentProcessor
	Pacer     Pacer
	Logger    *slog.Logger
}

// Coordinator implements the run: list, filter known announcements, expand
// to work items and process them one at a time.
type Coordinator struct {
	lister    ports.AnnouncementLister
	oracle    ports.ExistenceOracle
	processor DocumentProcessor
	pacer     Pacer
	logger    *slog.Logger
}

// NewCoordinator constructs the orchestration component.
func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	if deps.Pacer == nil {
		deps.Pacer = IntervalPacer{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Coordinator{
		lister:    deps.Lister,
		oracle:    deps.Oracle,
		processor: deps.Processor,
		pacer:     deps.Pacer,
		logger:    deps.Logger,
	}
}

// Run executes one ingestion pass and records its outcome on status. The
// tracker must already be in the running state. A panic anywhere in the run
// ends it with an error status instead of crashing the process.
func (c *Coordinator) Run(ctx context.Context, status *StatusTracker) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("ingestion run panicked", "panic", r)
			status.Fail(fmt.Errorf("%v", r))
		}
	}()

	listed, err := c.run(ctx, status)
	if err != nil {
		c.logger.Error("ingestion run failed", "error", err)
		status.Fail(err)
		return
	}
	if !listed {
		c.logger.Warn("source returned no announcements")
		status.Complete(MessageNoData)
		return
	}

	snap := status.Snapshot()
	status.Complete(fmt.Sprintf("Processed %d new documents, %d failed", snap.Processed, snap.Failed))
	c.logger.Info("ingestion run completed",
		"new_documents", snap.NewDocuments, "processed", snap.Processed, "failed", snap.Failed)
}

// run reports false when the catalog was empty.
func (c *Coordinator) run(ctx context.Context, status *StatusTracker) (bool, error) {
	announcements := c.lister.List(ctx)
	if len(announcements) == 0 {
		return false, nil
	}
	c.logger.Info("announcements listed", "count", len(announcements))

	var items []domain.WorkItem
	for _, a := range announcements {
		if c.oracle.Exists(ctx, a.Title, a.Date) {
			continue
		}
		status.AddNewDocument()
		items = append(items, a.WorkItems()...)
	}
	c.logger.Info("work items queued", "items", len(items))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return true, err
		}

		if c.processItem(ctx, item) {
			status.AddProcessed()
		} else {
			status.AddFailed()
		}
		c.logger.Debug("item finished", "index", i+1, "of", len(items))

		c.pacer.Pause(ctx)
	}
	return true, nil
}

// processItem isolates a single item so a panic counts as that item failing.
func (c *Coordinator) processItem(ctx context.Context, item domain.WorkItem) (ok bool) {
	log := c.logger.With("title", item.Title, "date", item.Date, "url", item.AttachmentURL)
	defer func() {
		if r := recover(); r != nil {
			log.Error("document processing panicked", "panic", r)
			ok = false
		}
	}()

	stored, err := c.processor.Process(ctx, item)
	if err != nil {
		log.Warn("document failed", "error", err)
		return false
	}
	log.Info("document processed", "pages_stored", stored)
	return true
}
