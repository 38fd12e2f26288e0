// Package ocr talks to the document-to-markdown webhook.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"time"

	"AnnouncementIngestor/internal/config"
	"AnnouncementIngestor/internal/domain"
	"AnnouncementIngestor/internal/ports"
)

const (
	formField      = "data"
	defaultTimeout = 180 * time.Second
)

// Client implements ports.TextExtractor against an OCR webhook.
type Client struct {
	endpoint     string
	defaultModel string
	client       *http.Client
	logger       *slog.Logger
}

var _ ports.TextExtractor = (*Client)(nil)

// NewClient creates an OCR client from configuration.
func NewClient(cfg config.OCRConfig, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	model := cfg.DefaultModel
	if model == "" {
		model = domain.DefaultOCRModel
	}
	return &Client{
		endpoint:     cfg.WebhookURL,
		defaultModel: model,
		client:       &http.Client{Timeout: timeout},
		logger:       log,
	}
}

type pagePayload struct {
	Index      int               `json:"index"`
	Markdown   string            `json:"markdown"`
	Header     string            `json:"header"`
	Footer     string            `json:"footer"`
	Dimensions json.RawMessage   `json:"dimensions"`
	Tables     []json.RawMessage `json:"tables"`
	Images     []json.RawMessage `json:"images"`
	Hyperlinks []json.RawMessage `json:"hyperlinks"`
}

type responsePayload struct {
	Pages         []pagePayload `json:"pages"`
	ExtractedText string        `json:"extractedText"`
	Model         string        `json:"model"`
}

// Extract uploads the document and decodes the per-page result.
func (c *Client) Extract(ctx context.Context, doc *domain.RawDocument) (*domain.ExtractedDocument, bool) {
	if doc == nil {
		return nil, false
	}

	raw, err := c.upload(ctx, doc.Path)
	if err != nil {
		c.logger.Warn("ocr request failed", "url", doc.URL, "error", err)
		return nil, false
	}

	payload, err := decode(raw)
	if err != nil {
		c.logger.Warn("ocr response rejected", "url", doc.URL, "error", err)
		return nil, false
	}

	extracted := &domain.ExtractedDocument{
		Pages: make([]domain.OCRPage, 0, len(payload.Pages)),
		Text:  payload.ExtractedText,
		Model: payload.Model,
	}
	if extracted.Model == "" {
		extracted.Model = c.defaultModel
	}
	for _, p := range payload.Pages {
		extracted.Pages = append(extracted.Pages, domain.OCRPage{
			Index:      p.Index,
			Markdown:   p.Markdown,
			Header:     p.Header,
			Footer:     p.Footer,
			Dimensions: p.Dimensions,
			Tables:     len(p.Tables),
			Images:     len(p.Images),
			Hyperlinks: len(p.Hyperlinks),
		})
	}

	c.logger.Info("ocr completed", "url", doc.URL, "pages", len(extracted.Pages), "model", extracted.Model)
	return extracted, true
}

func (c *Client) upload(ctx context.Context, path string) ([]byte, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("ocr webhook url is not configured")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, formField, filepath.Base(path)))
	header.Set("Content-Type", "application/pdf")
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy document: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("ocr error: %s", resp.Status)
	}
	return raw, nil
}

// decode accepts either an object or an array whose first element is the object.
func decode(raw []byte) (responsePayload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return responsePayload{}, fmt.Errorf("decode array: %w", err)
		}
		if len(list) == 0 {
			return responsePayload{}, fmt.Errorf("empty result array")
		}
		raw = list[0]
	}

	var payload responsePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return responsePayload{}, fmt.Errorf("decode object: %w", err)
	}
	return payload, nil
}
