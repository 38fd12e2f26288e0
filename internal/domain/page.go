package domain

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultOCRModel is reported when the OCR service omits the model name.
const DefaultOCRModel = "mistral-ocr"

// MinPageChars is the default minimum trimmed length of a retained page.
const MinPageChars = 50

// OCRPage is a single page entry as returned by the OCR service.
type OCRPage struct {
	Index      int
	Markdown   string
	Header     string
	Footer     string
	// Dimensions is the page geometry exactly as the OCR service sent it.
	Dimensions json.RawMessage
	Tables     int
	Images     int
	Hyperlinks int
}

// ExtractedDocument is the OCR decomposition of a whole attachment.
type ExtractedDocument struct {
	Pages []OCRPage
	Text  string
	Model string
}

// Page is an OCR page that survived the content filter.
type Page struct {
	Number     int
	Content    string
	SourceText string
	Info       OCRPage
}

// RetainedPages converts OCR pages into numbered pages, dropping every page
// whose content is empty or shorter than minChars once trimmed.
func (d ExtractedDocument) RetainedPages(minChars int) []Page {
	pages := make([]Page, 0, len(d.Pages))
	for _, p := range d.Pages {
		if !KeepPage(p.Markdown, minChars) {
			continue
		}
		pages = append(pages, Page{
			Number:     p.Index + 1,
			Content:    p.Markdown,
			SourceText: d.Text,
			Info:       p,
		})
	}
	return pages
}

// KeepPage reports whether content passes the minimum length rule.
func KeepPage(content string, minChars int) bool {
	if content == "" {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(content)) >= minChars
}

// Vector is one embedding, positionally aligned with a Page.
type Vector []float32

// DocumentContext carries the identity of the attachment being stored.
type DocumentContext struct {
	Date     string
	Title    string
	Category string
	PDFURL   string
	Source   string
	SiteURL  string
}

// ExtractionMeta is document-level information shared by every stored page.
type ExtractionMeta struct {
	Model        string
	PDFPageCount int
}

// SourceMetadata records where and when a page was scraped.
type SourceMetadata struct {
	ScrapedDate  string `json:"scraped_date"`
	ScrapedTitle string `json:"scraped_title"`
	ScrapedType  string `json:"scraped_type"`
	Source       string `json:"source"`
	SourceURL    string `json:"source_url"`
	ScrapedAt    string `json:"scraped_at"`
}

// PageMetadata records document structure and processing details.
type PageMetadata struct {
	Date            string          `json:"date"`
	Title           string          `json:"title"`
	Type            string          `json:"type"`
	PageNumber      int             `json:"page_number"`
	TotalPages      int             `json:"total_pages"`
	Model           string          `json:"model"`
	Header          string          `json:"header"`
	Footer          string          `json:"footer"`
	Dimensions      json.RawMessage `json:"dimensions"`
	TablesCount     int             `json:"tables_count"`
	ImagesCount     int             `json:"images_count"`
	HyperlinksCount int             `json:"hyperlinks_count"`
	PDFPageCount    int             `json:"pdf_page_count,omitempty"`
	ProcessedAt     string          `json:"processed_at"`
}

// PageRecord is the unit written to storage, one per retained page.
type PageRecord struct {
	Date           string
	Title          string
	Category       string
	PDFURL         string
	PageNumber     int
	Content        string
	OriginalText   string
	Embedding      Vector
	SourceMetadata SourceMetadata
	Metadata       PageMetadata
}

// BuildPageRecord assembles the stored row for a page and its vector.
func BuildPageRecord(doc DocumentContext, page Page, vec Vector, total int, meta ExtractionMeta, now time.Time) PageRecord {
	stamp := now.UTC().Format(time.RFC3339Nano)
	model := meta.Model
	if model == "" {
		model = DefaultOCRModel
	}

	return PageRecord{
		Date:         doc.Date,
		Title:        doc.Title,
		Category:     doc.Category,
		PDFURL:       doc.PDFURL,
		PageNumber:   page.Number,
		Content:      page.Content,
		OriginalText: page.SourceText,
		Embedding:    vec,
		SourceMetadata: SourceMetadata{
			ScrapedDate:  doc.Date,
			ScrapedTitle: doc.Title,
			ScrapedType:  doc.Category,
			Source:       doc.Source,
			SourceURL:    doc.SiteURL,
			ScrapedAt:    stamp,
		},
		Metadata: PageMetadata{
			Date:            doc.Date,
			Title:           doc.Title,
			Type:            doc.Category,
			PageNumber:      page.Number,
			TotalPages:      total,
			Model:           model,
			Header:          page.Info.Header,
			Footer:          page.Info.Footer,
			Dimensions:      page.Info.Dimensions,
			TablesCount:     page.Info.Tables,
			ImagesCount:     page.Info.Images,
			HyperlinksCount: page.Info.Hyperlinks,
			PDFPageCount:    meta.PDFPageCount,
			ProcessedAt:     stamp,
		},
	}
}
