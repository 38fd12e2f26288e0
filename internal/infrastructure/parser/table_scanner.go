package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"AnnouncementIngestor/internal/domain"
	"AnnouncementIngestor/internal/infrastructure/browser"
	"AnnouncementIngestor/internal/scanner"
)

const (
	renderBrowser = "browser"
	renderHTTP    = "http"

	defaultTableID    = "filta"
	defaultPageLength = 149
	defaultSettle     = 3 * time.Second
)

// Renderer turns a listing URL into HTML.
type Renderer interface {
	Render(ctx context.Context, req browser.Request) (string, error)
}

// TableScanner reads announcement rows out of a DataTables-driven listing:
// date, title with attachment links, and category in the first three cells.
//
// Options: render (browser|http), table (element id), pageLength, settle.
type TableScanner struct {
	renderers map[string]Renderer
	logger    *slog.Logger
}

var _ scanner.Scanner = (*TableScanner)(nil)

// NewTableScanner wires renderers keyed by the "render" option value.
func NewTableScanner(browserRenderer, httpRenderer Renderer, log *slog.Logger) *TableScanner {
	renderers := map[string]Renderer{}
	if browserRenderer != nil {
		renderers[renderBrowser] = browserRenderer
	}
	if httpRenderer != nil {
		renderers[renderHTTP] = httpRenderer
	}
	return &TableScanner{renderers: renderers, logger: log}
}

// Name identifies the strategy inside the registry.
func (t *TableScanner) Name() string {
	return "datatable"
}

// Scan renders the listing with every row visible and parses the table body.
func (t *TableScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Announcement, error) {
	mode := req.Option("render", renderBrowser)
	renderer, ok := t.renderers[mode]
	if !ok {
		return nil, fmt.Errorf("site %s: no %q renderer configured", req.SiteName, mode)
	}

	tableID := req.Option("table", defaultTableID)
	pageLength, err := strconv.Atoi(req.Option("pageLength", strconv.Itoa(defaultPageLength)))
	if err != nil {
		return nil, fmt.Errorf("site %s: invalid pageLength: %w", req.SiteName, err)
	}
	settle, err := time.ParseDuration(req.Option("settle", defaultSettle.String()))
	if err != nil {
		return nil, fmt.Errorf("site %s: invalid settle: %w", req.SiteName, err)
	}

	markup, err := renderer.Render(ctx, browser.Request{
		URL:          req.URL,
		WaitSelector: "table#" + tableID,
		Script:       pageLengthScript(tableID, pageLength),
		Settle:       settle,
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", req.URL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	announcements, err := extractRows(doc, tableID, req.Origin)
	if err != nil {
		return nil, err
	}
	t.debug("table scanned", "site", req.SiteName, "rows", len(announcements))
	return announcements, nil
}

func extractRows(doc *goquery.Document, tableID, origin string) ([]domain.Announcement, error) {
	table := doc.Find("table#" + tableID).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("table #%s not found", tableID)
	}

	var rows []domain.Announcement
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		if row, ok := parseRow(tr, origin); ok {
			rows = append(rows, row)
		}
	})
	return rows, nil
}

func parseRow(tr *goquery.Selection, origin string) (domain.Announcement, bool) {
	cells := tr.ChildrenFiltered("td")
	if cells.Length() < 3 {
		return domain.Announcement{}, false
	}

	titleCell := cells.Eq(1)
	var links []string
	titleCell.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		links = append(links, absoluteLink(origin, href))
	})

	return domain.Announcement{
		Date:     joinedText(cells.Eq(0), ""),
		Title:    joinedText(titleCell, " "),
		Category: joinedText(cells.Eq(2), ""),
		Links:    links,
	}, true
}

// absoluteLink prefixes relative hrefs with the site origin.
func absoluteLink(origin, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	origin = strings.TrimSuffix(origin, "/")
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return origin + href
}

// joinedText trims every text node under sel and joins the non-empty ones.
func joinedText(sel *goquery.Selection, sep string) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, sep)
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

func pageLengthScript(tableID string, pageLength int) string {
	return fmt.Sprintf(`() => {
		if (window.jQuery && jQuery.fn.dataTable) {
			jQuery('#%s').DataTable().page.len(%d).draw();
		}
	}`, tableID, pageLength)
}

func (t *TableScanner) debug(msg string, args ...interface{}) {
	if t.logger != nil {
		t.logger.Debug(msg, args...)
	}
}
