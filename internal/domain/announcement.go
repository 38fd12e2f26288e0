package domain

import "strings"

// PDFSuffix marks the attachment links worth ingesting.
const PDFSuffix = ".pdf"

// Announcement is one catalog row scraped from a source site.
type Announcement struct {
	Date     string
	Title    string
	Category string
	Links    []string
	Source   string
	SiteURL  string
}

// PDFLinks returns the attachment links ending in PDFSuffix, in source order.
func (a Announcement) PDFLinks() []string {
	links := make([]string, 0, len(a.Links))
	for _, link := range a.Links {
		if strings.HasSuffix(link, PDFSuffix) {
			links = append(links, link)
		}
	}
	return links
}

// WorkItem is exactly one attachment slated for ingestion.
type WorkItem struct {
	Date          string
	Title         string
	Category      string
	AttachmentURL string
	Source        string
	SiteURL       string
}

// WorkItems expands the announcement into one item per PDF attachment.
func (a Announcement) WorkItems() []WorkItem {
	links := a.PDFLinks()
	items := make([]WorkItem, 0, len(links))
	for _, link := range links {
		items = append(items, WorkItem{
			Date:          a.Date,
			Title:         a.Title,
			Category:      a.Category,
			AttachmentURL: link,
			Source:        a.Source,
			SiteURL:       a.SiteURL,
		})
	}
	return items
}

// RawDocument is a downloaded attachment sitting in ephemeral storage.
type RawDocument struct {
	URL       string
	Path      string
	Size      int64
	PageCount int
}

// Document returns the storage identity of the item.
func (w WorkItem) Document() DocumentContext {
	return DocumentContext{
		Date:     w.Date,
		Title:    w.Title,
		Category: w.Category,
		PDFURL:   w.AttachmentURL,
		Source:   w.Source,
		SiteURL:  w.SiteURL,
	}
}
