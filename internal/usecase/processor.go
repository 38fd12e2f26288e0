package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"AnnouncementIngestor/internal/domain"
	"AnnouncementIngestor/internal/ports"
)

// DefaultEmbeddingBatchSize is the number of pages sent per embedding call.
const DefaultEmbeddingBatchSize = 10

// Gate failures returned by Processor.Process.
var (
	ErrFetchFailed    = errors.New("attachment download failed")
	ErrExtractFailed  = errors.New("text extraction failed")
	ErrNoPages        = errors.New("no page passed the content filter")
	ErrEmbedFailed    = errors.New("embedding failed")
	ErrNothingStored  = errors.New("no page was stored")
	errMisalignedEmbs = errors.New("embedding count does not match page count")
)

// ProcessorDeps wires the collaborators used for a single document.
type ProcessorDeps struct {
	Fetcher      ports.AttachmentFetcher
	Extractor    ports.TextExtractor
	Embedder     ports.EmbeddingGenerator
	Store        ports.PageStore
	BatchSize    int
	MinPageChars int
	Logger       *slog.Logger
}

// Processor drives one work item through fetch, extract, filter, embed and store.
type Processor struct {
	fetcher      ports.AttachmentFetcher
	extractor    ports.TextExtractor
	embedder     ports.EmbeddingGenerator
	store        ports.PageStore
	batchSize    int
	minPageChars int
	logger       *slog.Logger
}

// NewProcessor constructs the per-document state machine.
func NewProcessor(deps ProcessorDeps) *Processor {
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultEmbeddingBatchSize
	}
	if deps.MinPageChars <= 0 {
		deps.MinPageChars = domain.MinPageChars
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Processor{
		fetcher:      deps.Fetcher,
		extractor:    deps.Extractor,
		embedder:     deps.Embedder,
		store:        deps.Store,
		batchSize:    deps.BatchSize,
		minPageChars: deps.MinPageChars,
		logger:       deps.Logger,
	}
}

// Process returns the number of stored pages, or the gate that stopped the
// item. The downloaded file is discarded exactly once whatever the outcome.
func (p *Processor) Process(ctx context.Context, item domain.WorkItem) (int, error) {
	log := p.logger.With("title", item.Title, "url", item.AttachmentURL)

	raw, ok := p.fetcher.Fetch(ctx, item.AttachmentURL)
	if !ok {
		return 0, ErrFetchFailed
	}
	defer p.fetcher.Discard(raw)

	extracted, ok := p.extractor.Extract(ctx, raw)
	if !ok || extracted == nil {
		return 0, ErrExtractFailed
	}

	pages := extracted.RetainedPages(p.minPageChars)
	log.Debug("pages filtered", "ocr_pages", len(extracted.Pages), "retained", len(pages))
	if len(pages) == 0 {
		return 0, ErrNoPages
	}

	vectors, err := p.embed(ctx, pages)
	if err != nil {
		return 0, err
	}

	meta := domain.ExtractionMeta{Model: extracted.Model, PDFPageCount: raw.PageCount}
	stored := p.store.StorePages(ctx, item.Document(), pages, vectors, meta)
	if stored == 0 {
		return 0, ErrNothingStored
	}
	if stored < len(pages) {
		log.Warn("document partially stored", "stored", stored, "pages", len(pages))
	}
	return stored, nil
}

// embed sends page contents in fixed-size chunks and concatenates the
// results in chunk order, so vectors[i] belongs to pages[i].
func (p *Processor) embed(ctx context.Context, pages []domain.Page) ([]domain.Vector, error) {
	vectors := make([]domain.Vector, 0, len(pages))
	for start := 0; start < len(pages); start += p.batchSize {
		end := min(start+p.batchSize, len(pages))

		batch := make([]string, 0, end-start)
		for _, page := range pages[start:end] {
			batch = append(batch, page.Content)
		}

		chunk, ok := p.embedder.Embed(ctx, batch)
		if !ok {
			return nil, fmt.Errorf("%w: pages %d-%d", ErrEmbedFailed, start, end-1)
		}
		if len(chunk) != len(batch) {
			return nil, fmt.Errorf("%w: %w", ErrEmbedFailed, errMisalignedEmbs)
		}
		vectors = append(vectors, chunk...)
	}
	return vectors, nil
}
