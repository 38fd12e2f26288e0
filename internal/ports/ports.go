package ports

import (
	"context"

	"AnnouncementIngestor/internal/domain"
)

// Every collaborator below absorbs its own failures and reports them through
// a boolean (or an empty/zero result); errors never cross these boundaries.

// AnnouncementLister returns the current announcement catalog, empty on failure.
type AnnouncementLister interface {
	List(ctx context.Context) []domain.Announcement
}

// ExistenceOracle reports whether a (title, date) pair was already ingested.
// Storage failures report false.
type ExistenceOracle interface {
	Exists(ctx context.Context, title, date string) bool
}

// AttachmentFetcher downloads attachments into ephemeral storage.
type AttachmentFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.RawDocument, bool)
	Discard(doc *domain.RawDocument)
}

// TextExtractor turns a downloaded PDF into per-page markdown.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.RawDocument) (*domain.ExtractedDocument, bool)
}

// EmbeddingGenerator returns one vector per input string, in input order.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, batch []string) ([]domain.Vector, bool)
}

// PageStore persists pages and returns how many rows were written.
type PageStore interface {
	StorePages(ctx context.Context, doc domain.DocumentContext, pages []domain.Page, vectors []domain.Vector, meta domain.ExtractionMeta) int
}

// Repository bundles the storage-side collaborators.
type Repository interface {
	ExistenceOracle
	PageStore
}

// Notifier publishes run summaries to operators.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when runs are triggered without an external request.
type Scheduler interface {
	Start(ctx context.Context, job func()) error
	Stop(ctx context.Context) error
}
