// Package pagination slices ordered collections into fixed-size pages.
package pagination

import (
	"strconv"
	"strings"
)

// Page describes one page of an ordered collection. Number is 1-based.
type Page struct {
	Number      int  `json:"number"`
	NumPages    int  `json:"num_pages"`
	Total       int  `json:"total"`
	PerPage     int  `json:"per_page"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// ParseRequested interprets a raw page query value. Absent, non-numeric and
// non-positive values yield 1; clamping to the last page happens in New,
// once the total is known.
func ParseRequested(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// New builds the page for requested out of total items split into pages of
// perPage. An empty collection still has a single, empty first page.
func New(total, perPage int, requested string) Page {
	if perPage < 1 {
		perPage = 1
	}
	if total < 0 {
		total = 0
	}

	numPages := (total + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}

	number := ParseRequested(requested)
	if number > numPages {
		number = numPages
	}

	return Page{
		Number:      number,
		NumPages:    numPages,
		Total:       total,
		PerPage:     perPage,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
}

// Offset is the index of the first item on the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Limit is the maximum number of items on the page.
func (p Page) Limit() int {
	return p.PerPage
}

// Bounds returns the [start, end) slice indices of the page.
func (p Page) Bounds() (int, int) {
	start := p.Offset()
	if start > p.Total {
		start = p.Total
	}
	end := start + p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return start, end
}

// Paginate returns the requested page of items together with its metadata.
// items must already be in a stable order.
func Paginate[T any](items []T, perPage int, requested string) (Page, []T) {
	page := New(len(items), perPage, requested)
	start, end := page.Bounds()
	return page, items[start:end]
}
