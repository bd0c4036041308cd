package query

import (
	"math"
	"strconv"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is a 1-based page window.
type Page struct {
	Number int
	Limit  int
}

// Offset is the number of rows before the page. It saturates at
// math.MaxInt instead of overflowing, so a page past the end of any result
// set is simply empty.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Limit
}

// ParsePage parses raw page and limit values, applying defaults for empty
// input.
func ParsePage(rawPage, rawLimit string) (Page, error) {
	p := Page{Number: 1, Limit: DefaultPageLimit}

	if rawPage != "" {
		n, err := strconv.Atoi(rawPage)
		if err != nil || n < 1 {
			return Page{}, newError("page", "must be a positive integer, got %q", rawPage)
		}
		p.Number = n
	}

	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n < 1 {
			return Page{}, newError("limit", "must be a positive integer, got %q", rawLimit)
		}
		p.Limit = min(n, MaxPageLimit)
	}
	return p, nil
}

// Normalize fills defaults for a zero Page and validates the rest.
func (p Page) Normalize() (Page, error) {
	if p.Number == 0 {
		p.Number = 1
	}
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Number < 0 {
		return Page{}, newError("page", "must be a positive integer, got %d", p.Number)
	}
	if p.Limit < 0 {
		return Page{}, newError("limit", "must be a positive integer, got %d", p.Limit)
	}
	p.Limit = min(p.Limit, MaxPageLimit)
	return p, nil
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Current    int
	TotalPages int
	Count      int
	TotalCount int
}

// NewPagination builds metadata from the page window, the number of rows
// in the page and the total number of matching rows.
func NewPagination(p Page, count, total int) Pagination {
	return Pagination{
		Current:    p.Number,
		TotalPages: (total + p.Limit - 1) / p.Limit,
		Count:      count,
		TotalCount: total,
	}
}

// Window returns the [start, end) slice bounds of p over n rows.
func (p Page) Window(n int) (int, int) {
	start := max(min(p.Offset(), n), 0)
	end := start + min(p.Limit, n-start)
	return start, end
}
