package storage

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"AnnouncementIngestor/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	date            TEXT NOT NULL,
	title           TEXT NOT NULL,
	type            TEXT NOT NULL DEFAULT '',
	pdf_url         TEXT NOT NULL,
	page_number     INTEGER NOT NULL,
	content         TEXT NOT NULL,
	original_text   TEXT NOT NULL DEFAULT '',
	source_metadata TEXT NOT NULL DEFAULT '{}',
	metadata        TEXT NOT NULL DEFAULT '{}',
	embedding       BLOB,
	created_at      TEXT NOT NULL DEFAULT (strftime('%%Y-%%m-%%dT%%H:%%M:%%fZ', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_title_date ON %[1]s (title, date);`

// OpenSQLite opens (or creates) a local page database with production pragmas
// and the page table in place. Use ":memory:" in tests.
func OpenSQLite(path, table string) (*sql.DB, error) {
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf(sqliteSchema, table)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: exec schema: %w", err)
	}
	return db, nil
}

// NewSQLiteRepository stores pages with the embedding as a float32 blob.
func NewSQLiteRepository(db *sql.DB, table string, log *slog.Logger) *PageRepository {
	return newPageRepository(db, table, sq.Question, blobVector, log)
}

// blobVector packs the vector as little-endian float32 values.
func blobVector(v domain.Vector) any {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeBlobVector reverses blobVector.
func DecodeBlobVector(buf []byte) (domain.Vector, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(buf))
	}
	v := make(domain.Vector, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}

// ValidateTable rejects table names that cannot be used as a bare identifier.
func ValidateTable(name string) error {
	if name == "" {
		return fmt.Errorf("table name is empty")
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return fmt.Errorf("invalid table name %q", name)
		}
	}
	return nil
}
