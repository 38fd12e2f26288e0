package storage

import (
	"context"
	"log/slog"
	"time"

	"AnnouncementIngestor/internal/domain"
	"AnnouncementIngestor/internal/ports"
)

// LogRepository writes nothing. It reports every announcement as new and
// logs the records it would have stored, for dry runs.
type LogRepository struct {
	now    func() time.Time
	logger *slog.Logger
}

var _ ports.Repository = (*LogRepository)(nil)

// NewLogRepository builds the dry-run store.
func NewLogRepository(log *slog.Logger) *LogRepository {
	if log == nil {
		log = slog.Default()
	}
	return &LogRepository{now: time.Now, logger: log}
}

// Exists always reports false.
func (r *LogRepository) Exists(_ context.Context, _, _ string) bool {
	return false
}

// StorePages logs each record and counts it as stored.
func (r *LogRepository) StorePages(_ context.Context, doc domain.DocumentContext, pages []domain.Page, vectors []domain.Vector, meta domain.ExtractionMeta) int {
	if len(pages) != len(vectors) {
		r.logger.Error("pages and vectors are misaligned", "pdf_url", doc.PDFURL, "pages", len(pages), "vectors", len(vectors))
		return 0
	}
	for i, page := range pages {
		record := domain.BuildPageRecord(doc, page, vectors[i], len(pages), meta, r.now())
		r.logger.Info("dry run page",
			"title", record.Title,
			"date", record.Date,
			"pdf_url", record.PDFURL,
			"page", record.PageNumber,
			"chars", len(record.Content),
			"dimensions", len(record.Embedding),
			"model", record.Metadata.Model,
		)
	}
	return len(pages)
}
