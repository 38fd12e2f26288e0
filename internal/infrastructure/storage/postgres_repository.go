package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"AnnouncementIngestor/internal/domain"
)

// OpenPostgres connects to Postgres and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresRepository stores pages in a table with a pgvector embedding
// column and jsonb metadata columns.
func NewPostgresRepository(db *sql.DB, table string, log *slog.Logger) *PageRepository {
	return newPageRepository(db, table, sq.Dollar, pgVector, log)
}

func pgVector(v domain.Vector) any {
	return pgvector.NewVector([]float32(v))
}
