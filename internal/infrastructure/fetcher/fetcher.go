// Package fetcher downloads PDF attachments into a scratch directory.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"AnnouncementIngestor/internal/domain"
	"AnnouncementIngestor/internal/infrastructure/browser"
	"AnnouncementIngestor/internal/ports"
)

const (
	defaultMinBytes = 1000
	defaultTimeout  = 30 * time.Second
)

// Config tunes where and how attachments are saved.
type Config struct {
	Dir      string
	MinBytes int64
	Timeout  time.Duration
}

// Fetcher implements ports.AttachmentFetcher over HTTP.
type Fetcher struct {
	dir      string
	minBytes int64
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.AttachmentFetcher = (*Fetcher)(nil)

// New builds a Fetcher; a nil client gets cfg.Timeout.
func New(cfg Config, client *http.Client, log *slog.Logger) *Fetcher {
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = defaultMinBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{dir: cfg.Dir, minBytes: cfg.MinBytes, client: client, logger: log}
}

// Fetch downloads the attachment. Transport failures, non-2xx responses and
// undersized payloads report false and leave nothing on disk.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.RawDocument, bool) {
	doc, err := f.download(ctx, rawURL)
	if err != nil {
		f.logger.Warn("download failed", "url", rawURL, "error", err)
		return nil, false
	}
	if doc.Size < f.minBytes {
		f.logger.Warn("attachment too small, discarding", "url", rawURL, "bytes", doc.Size, "min_bytes", f.minBytes)
		f.Discard(doc)
		return nil, false
	}

	pages, err := api.PageCountFile(doc.Path)
	if err != nil {
		f.logger.Debug("pdf page count unavailable", "url", rawURL, "error", err)
	} else {
		doc.PageCount = pages
	}

	f.logger.Info("attachment downloaded", "url", rawURL, "bytes", doc.Size, "pdf_pages", doc.PageCount)
	return doc, true
}

// Discard removes the local copy. Failures are logged only.
func (f *Fetcher) Discard(doc *domain.RawDocument) {
	if doc == nil || doc.Path == "" {
		return
	}
	if err := os.Remove(doc.Path); err != nil && !os.IsNotExist(err) {
		f.logger.Warn("remove attachment", "path", doc.Path, "error", err)
	}
}

func (f *Fetcher) download(ctx context.Context, rawURL string) (*domain.RawDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browser.UserAgent)
	req.Header.Set("Accept", "application/pdf,*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure download dir: %w", err)
	}

	file, err := os.CreateTemp(f.dir, "*-"+fileName(rawURL))
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	size, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(file.Name())
		if copyErr != nil {
			return nil, fmt.Errorf("save attachment: %w", copyErr)
		}
		return nil, fmt.Errorf("close attachment: %w", closeErr)
	}

	return &domain.RawDocument{URL: rawURL, Path: file.Name(), Size: size}, nil
}

// fileName derives a local name from the last URL segment, forcing a .pdf suffix.
func fileName(rawURL string) string {
	name := ""
	if u, err := url.Parse(rawURL); err == nil {
		name = path.Base(u.Path)
	}
	if name == "" || name == "." || name == "/" {
		name = "attachment"
	}
	name = strings.NewReplacer("*", "_", string(os.PathSeparator), "_").Replace(name)
	if !strings.HasSuffix(name, domain.PDFSuffix) {
		name += domain.PDFSuffix
	}
	return name
}
