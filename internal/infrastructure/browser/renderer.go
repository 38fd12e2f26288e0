// Package browser renders listing pages to HTML, either through a headless
// Chrome driven by Rod or through a plain HTTP GET.
package browser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

const (
	// UserAgent mimics a desktop Chrome; the source sites serve empty shells to bots.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultNavigateTimeout = 60 * time.Second
)

// Request describes what to render and how to settle the page first.
type Request struct {
	URL string
	// WaitSelector blocks until the element exists (browser only).
	WaitSelector string
	// Script is evaluated after the selector appears (browser only).
	Script string
	// Settle is an extra pause after Script, letting client-side redraws finish.
	Settle time.Duration
}

// HTTPRenderer fetches the raw server-side HTML.
type HTTPRenderer struct {
	client *http.Client
}

// NewHTTPRenderer wires an HTTP client; a nil client gets a 60s timeout.
func NewHTTPRenderer(client *http.Client) *HTTPRenderer {
	if client == nil {
		client = &http.Client{Timeout: defaultNavigateTimeout}
	}
	return &HTTPRenderer{client: client}
}

// Render performs a GET and returns the body.
func (h *HTTPRenderer) Render(ctx context.Context, req Request) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", UserAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("source returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return string(body), nil
}

// RodConfig configures the headless renderer.
type RodConfig struct {
	// RemoteURL is the DevTools WebSocket of an external Chrome. Empty launches one locally.
	RemoteURL string
	NoSandbox bool
	Timeout   time.Duration
	Logger    *slog.Logger
}

// RodRenderer drives a short-lived headless Chrome per render.
type RodRenderer struct {
	cfg RodConfig
}

// NewRodRenderer applies defaults to cfg.
func NewRodRenderer(cfg RodConfig) *RodRenderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultNavigateTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RodRenderer{cfg: cfg}
}

// Render navigates, waits for the selector, runs the script and returns the DOM.
func (r *RodRenderer) Render(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	wsURL := r.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			NoSandbox(r.cfg.NoSandbox).
			Set("disable-dev-shm-usage").
			Set("disable-blink-features", "AutomationControlled")
		defer l.Cleanup()

		u, err := l.Launch()
		if err != nil {
			return "", fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return "", fmt.Errorf("browser: connect: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			r.cfg.Logger.Debug("browser: close", "error", err)
		}
	}()

	page, err := stealth.Page(b)
	if err != nil {
		return "", fmt.Errorf("browser: create tab: %w", err)
	}
	page = page.Context(ctx)

	if err := page.Navigate(req.URL); err != nil {
		return "", fmt.Errorf("browser: navigate %s: %w", req.URL, err)
	}
	if err := page.WaitLoad(); err != nil {
		r.cfg.Logger.Warn("browser: wait load", "url", req.URL, "error", err)
	}

	if req.WaitSelector != "" {
		if _, err := page.Element(req.WaitSelector); err != nil {
			return "", fmt.Errorf("browser: wait for %s: %w", req.WaitSelector, err)
		}
	}

	if req.Script != "" {
		if _, err := page.Eval(req.Script); err != nil {
			r.cfg.Logger.Warn("browser: page script failed", "url", req.URL, "error", err)
		}
	}

	if req.Settle > 0 {
		timer := time.NewTimer(req.Settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("browser: read DOM: %w", err)
	}
	return html, nil
}
