package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkItemsFanOutPDFLinks(t *testing.T) {
	t.Parallel()

	a := Announcement{
		Date:     "12 Mar 2025",
		Title:    "Capital Adequacy",
		Category: "Policy Document",
		Links: []string{
			"https://a.gov/one.pdf",
			"https://a.gov/faq",
			"https://a.gov/UPPER.PDF",
			"https://a.gov/two.pdf",
		},
		Source:  "bnm",
		SiteURL: "https://a.gov/listing",
	}

	items := a.WorkItems()
	require.Len(t, items, 2)
	assert.Equal(t, "https://a.gov/one.pdf", items[0].AttachmentURL)
	assert.Equal(t, "https://a.gov/two.pdf", items[1].AttachmentURL)
	for _, item := range items {
		assert.Equal(t, a.Title, item.Title)
		assert.Equal(t, a.Date, item.Date)
		assert.Equal(t, a.Category, item.Category)
	}

	doc := items[1].Document()
	assert.Equal(t, DocumentContext{
		Date:     a.Date,
		Title:    a.Title,
		Category: a.Category,
		PDFURL:   "https://a.gov/two.pdf",
		Source:   "bnm",
		SiteURL:  "https://a.gov/listing",
	}, doc)
}

func TestWorkItemsWithoutPDFs(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Announcement{Links: []string{"https://a.gov/page"}}.WorkItems())
	assert.Empty(t, Announcement{}.WorkItems())
}
