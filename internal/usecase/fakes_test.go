package usecase

import (
	"context"
	"strings"
	"sync"

	"AnnouncementIngestor/internal/domain"
)

type fakeLister struct {
	announcements []domain.Announcement
	panicMsg      string
}

func (f *fakeLister) List(context.Context) []domain.Announcement {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.announcements
}

type fakeOracle struct {
	known map[string]bool
	calls []string
}

func (f *fakeOracle) Exists(_ context.Context, title, date string) bool {
	f.calls = append(f.calls, title+"|"+date)
	return f.known[title+"|"+date]
}

type fakeFetcher struct {
	mu        sync.Mutex
	fail      map[string]bool
	fetched   []string
	discarded map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{fail: map[string]bool{}, discarded: map[string]int{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*domain.RawDocument, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	if f.fail[url] {
		return nil, false
	}
	return &domain.RawDocument{URL: url, Path: "/tmp/" + url, Size: 2048, PageCount: 3}, true
}

func (f *fakeFetcher) Discard(doc *domain.RawDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded[doc.URL]++
}

type fakeExtractor struct {
	doc   *domain.ExtractedDocument
	fail  bool
	panic bool
}

func (f *fakeExtractor) Extract(context.Context, *domain.RawDocument) (*domain.ExtractedDocument, bool) {
	if f.panic {
		panic("ocr exploded")
	}
	if f.fail {
		return nil, false
	}
	return f.doc, true
}

// fakeEmbedder encodes each input's first byte and length so tests can map
// vectors back to pages.
type fakeEmbedder struct {
	batches [][]string
	failAt  int
	short   bool
}

func (f *fakeEmbedder) Embed(_ context.Context, batch []string) ([]domain.Vector, bool) {
	f.batches = append(f.batches, append([]string(nil), batch...))
	if f.failAt > 0 && len(f.batches) == f.failAt {
		return nil, false
	}
	out := make([]domain.Vector, 0, len(batch))
	for _, text := range batch {
		out = append(out, domain.Vector{float32(text[0]), float32(len(text))})
	}
	if f.short {
		out = out[:len(out)-1]
	}
	return out, true
}

type storedCall struct {
	doc     domain.DocumentContext
	pages   []domain.Page
	vectors []domain.Vector
	meta    domain.ExtractionMeta
}

// fakeStore writes everything unless limit caps the rows written.
type fakeStore struct {
	calls []storedCall
	limit int
}

func newFakeStore() *fakeStore {
	return &fakeStore{limit: -1}
}

func (f *fakeStore) StorePages(_ context.Context, doc domain.DocumentContext, pages []domain.Page, vectors []domain.Vector, meta domain.ExtractionMeta) int {
	f.calls = append(f.calls, storedCall{doc: doc, pages: pages, vectors: vectors, meta: meta})
	if f.limit >= 0 && f.limit < len(pages) {
		return f.limit
	}
	return len(pages)
}

type countingPacer struct {
	mu     sync.Mutex
	pauses int
}

func (p *countingPacer) Pause(context.Context) {
	p.mu.Lock()
	p.pauses++
	p.mu.Unlock()
}

func (p *countingPacer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pauses
}

func page(index int, char string, n int) domain.OCRPage {
	return domain.OCRPage{Index: index, Markdown: strings.Repeat(char, n)}
}

func extractedDoc(pages ...domain.OCRPage) *domain.ExtractedDocument {
	return &domain.ExtractedDocument{Pages: pages, Text: "whole document", Model: "ocr-test"}
}
