// Package storage persists announcement pages and answers the existence check.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"AnnouncementIngestor/internal/domain"
	"AnnouncementIngestor/internal/ports"
)

// VectorEncoder converts an embedding into the driver value of the vector column.
type VectorEncoder func(domain.Vector) any

// PageRepository stores page rows through database/sql with squirrel-built
// statements. Dialect differences are limited to placeholders and the vector
// column encoding.
type PageRepository struct {
	db      *sql.DB
	table   string
	builder sq.StatementBuilderType
	vector  VectorEncoder
	now     func() time.Time
	logger  *slog.Logger
}

var _ ports.Repository = (*PageRepository)(nil)

func newPageRepository(db *sql.DB, table string, placeholder sq.PlaceholderFormat, vector VectorEncoder, log *slog.Logger) *PageRepository {
	if log == nil {
		log = slog.Default()
	}
	return &PageRepository{
		db:      db,
		table:   table,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		vector:  vector,
		now:     time.Now,
		logger:  log,
	}
}

// Exists looks for any page stored under the same title and date. A storage
// error is logged and reported as not found so the run can proceed.
func (r *PageRepository) Exists(ctx context.Context, title, date string) bool {
	found, err := r.exists(ctx, title, date)
	if err != nil {
		r.logger.Warn("existence check failed, treating as new", "title", title, "date", date, "error", err)
		return false
	}
	return found
}

func (r *PageRepository) exists(ctx context.Context, title, date string) (bool, error) {
	if r.db == nil {
		return false, fmt.Errorf("database is not configured")
	}

	query, args, err := r.existsQuery(title, date)
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	// Selecting a constant keeps the check independent of the id column type.
	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query existing page: %w", err)
	}
	return true, nil
}

func (r *PageRepository) existsQuery(title, date string) (string, []any, error) {
	return r.builder.
		Select("1").
		From(r.table).
		Where(sq.Eq{"date": date, "title": title}).
		Limit(1).
		ToSql()
}

// StorePages inserts one row per page paired with its vector. Failed inserts
// are logged and skipped; the return value counts rows written.
func (r *PageRepository) StorePages(ctx context.Context, doc domain.DocumentContext, pages []domain.Page, vectors []domain.Vector, meta domain.ExtractionMeta) int {
	if len(pages) != len(vectors) {
		r.logger.Error("pages and vectors are misaligned", "pdf_url", doc.PDFURL, "pages", len(pages), "vectors", len(vectors))
		return 0
	}

	stored := 0
	for i, page := range pages {
		record := domain.BuildPageRecord(doc, page, vectors[i], len(pages), meta, r.now())
		if err := r.insert(ctx, record); err != nil {
			r.logger.Error("store page", "pdf_url", doc.PDFURL, "page", page.Number, "error", err)
			continue
		}
		stored++
	}

	r.logger.Info("pages stored", "pdf_url", doc.PDFURL, "stored", stored, "total", len(pages))
	return stored
}

func (r *PageRepository) insert(ctx context.Context, record domain.PageRecord) error {
	if r.db == nil {
		return fmt.Errorf("database is not configured")
	}

	sourceMeta, err := json.Marshal(record.SourceMetadata)
	if err != nil {
		return fmt.Errorf("marshal source metadata: %w", err)
	}
	meta, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query, args, err := r.builder.
		Insert(r.table).
		Columns("date", "title", "type", "pdf_url", "page_number", "content",
			"original_text", "source_metadata", "metadata", "embedding").
		Values(record.Date, record.Title, record.Category, record.PDFURL, record.PageNumber, record.Content,
			record.OriginalText, string(sourceMeta), string(meta), r.vector(record.Embedding)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}
