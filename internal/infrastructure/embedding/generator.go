// Package embedding turns page text into vectors through an OpenAI-compatible API.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"AnnouncementIngestor/internal/config"
	"AnnouncementIngestor/internal/domain"
	"AnnouncementIngestor/internal/ports"
)

// DefaultMaxInputChars caps a single input before it is sent.
const DefaultMaxInputChars = 8000

const defaultTimeout = 60 * time.Second

// NewClient builds the OpenAI embeddings client. Local OpenAI-compatible
// services without auth get the placeholder token "none".
func NewClient(cfg config.EmbeddingConfig) (*openai.LLM, error) {
	token := cfg.APIKey
	if token == "" {
		token = "none"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, openai.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")))
	}
	if cfg.Dimensions > 0 {
		opts = append(opts, openai.WithEmbeddingDimensions(cfg.Dimensions))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return client, nil
}

// Generator implements ports.EmbeddingGenerator.
type Generator struct {
	embedder embeddings.Embedder
	maxChars int
	logger   *slog.Logger
}

var _ ports.EmbeddingGenerator = (*Generator)(nil)

// NewGenerator wraps client in a langchaingo embedder. The caller already
// chunks pages, so batchSize only guards oversized calls.
func NewGenerator(client embeddings.EmbedderClient, batchSize, maxChars int, log *slog.Logger) (*Generator, error) {
	opts := []embeddings.Option{embeddings.WithStripNewLines(false)}
	if batchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(batchSize))
	}
	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxInputChars
	}
	if log == nil {
		log = slog.Default()
	}
	return &Generator{embedder: embedder, maxChars: maxChars, logger: log}, nil
}

// Embed returns one vector per input. Any failure or a count mismatch reports false.
func (g *Generator) Embed(ctx context.Context, batch []string) ([]domain.Vector, bool) {
	if len(batch) == 0 {
		return nil, true
	}

	inputs := make([]string, len(batch))
	for i, text := range batch {
		inputs[i] = Prepare(text, g.maxChars)
	}

	raw, err := g.embedder.EmbedDocuments(ctx, inputs)
	if err != nil {
		g.logger.Warn("embedding request failed", "inputs", len(inputs), "error", err)
		return nil, false
	}
	if len(raw) != len(inputs) {
		g.logger.Warn("embedding count mismatch", "inputs", len(inputs), "vectors", len(raw))
		return nil, false
	}

	vectors := make([]domain.Vector, len(raw))
	for i, v := range raw {
		vectors[i] = domain.Vector(v)
	}
	g.logger.Debug("embeddings generated", "count", len(vectors))
	return vectors, true
}

// Prepare flattens newlines, trims, and truncates text to maxChars runes.
func Prepare(text string, maxChars int) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) > maxChars {
		return string(runes[:maxChars])
	}
	return text
}
