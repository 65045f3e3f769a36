package utils

import "fmt"

// Page is the envelope returned by paginated listings. Navigation URLs are
// nil at the edges (no prev on page 1, no next on the last page).
type Page[T any] struct {
	Data        []T     `json:"data"`
	CurrentPage int     `json:"current_page"`
	LastPage    int     `json:"last_page"`
	PerPage     int     `json:"per_page"`
	Total       int     `json:"total"`
	FirstPage   *string `json:"first_page_url"`
	PrevPage    *string `json:"prev_page_url"`
	NextPage    *string `json:"next_page_url"`
	LastPageURL *string `json:"last_page_url"`
}

// Paginate slices items into a 1-indexed page envelope. Pages beyond the
// last yield an empty data slice, not an error.
func Paginate[T any](items []T, page, perPage int, basePath string) *Page[T] {
	if page < 1 {
		page = 1
	}
	total := len(items)
	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}

	offset := (page - 1) * perPage
	end := offset + perPage
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}

	p := &Page[T]{
		Data:        items[offset:end],
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     perPage,
		Total:       total,
	}

	pageURL := func(n int) *string {
		u := fmt.Sprintf("%s?page=%d", basePath, n)
		return &u
	}

	p.FirstPage = pageURL(1)
	p.LastPageURL = pageURL(lastPage)
	if page > 1 {
		p.PrevPage = pageURL(page - 1)
	}
	if page < lastPage {
		p.NextPage = pageURL(page + 1)
	}

	return p
}
