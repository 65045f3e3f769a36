package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ms-events/internal/models"
	"ms-events/internal/search"
)

func testEvents() []*models.Event {
	return []*models.Event{
		{ID: 1, Title: "Comedy Night", Description: "Stand-up comedy", Duration: "02:00:00",
			Category: &models.Category{Name: "Comedy"}, Admin: &models.Admin{Name: "Alice"}},
		{ID: 2, Title: "Drama", Description: "A serious play", Duration: "01:30:00",
			Category: &models.Category{Name: "Theatre"}, Admin: &models.Admin{Name: "Bob"}},
		{ID: 3, Title: "Comic Fair", Description: "Comics and cosplay", Duration: "08:00:00",
			Category: &models.Category{Name: "Fair"}, Admin: &models.Admin{Name: "Alice"}},
	}
}

func ids(events []*models.Event) []int64 {
	out := make([]int64, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestLinearSearchMatchesAnyField(t *testing.T) {
	events := testEvents()

	// Title match
	assert.Equal(t, []int64{1, 3}, ids(search.Linear(events, "com")))

	// Description match
	assert.Equal(t, []int64{2}, ids(search.Linear(events, "serious")))

	// Admin name match
	assert.Equal(t, []int64{1, 3}, ids(search.Linear(events, "alice")))

	// Case-insensitive
	assert.Equal(t, []int64{1, 3}, ids(search.Linear(events, "COM")))

	// No match
	assert.Empty(t, search.Linear(events, "opera"))
}

func TestLinearSearchDeduplicates(t *testing.T) {
	events := testEvents()
	events = append(events, events[0]) // duplicate id 1

	got := search.Linear(events, "com")
	assert.Equal(t, []int64{1, 3}, ids(got))
}

func TestBinarySearchTitleAscending(t *testing.T) {
	events := testEvents()
	search.Sort(events, search.SortByTitle, search.Asc)

	// Sorted order: Comedy Night, Comic Fair, Drama
	assert.Equal(t, []int64{1, 3, 2}, ids(events))

	got := search.Binary(events, "com", search.SortByTitle, search.Asc)
	assert.Equal(t, []int64{1, 3}, ids(got))

	// Same semantics as the linear strategy on the same input.
	linear := search.Linear(events, "com")
	assert.ElementsMatch(t, ids(linear), ids(got))
}

func TestBinarySearchTitleDescending(t *testing.T) {
	events := testEvents()
	search.Sort(events, search.SortByTitle, search.Desc)

	got := search.Binary(events, "com", search.SortByTitle, search.Desc)
	assert.Equal(t, []int64{3, 1}, ids(got))
}

func TestBinarySearchByID(t *testing.T) {
	events := testEvents()
	search.Sort(events, search.SortByID, search.Asc)

	got := search.Binary(events, "2", search.SortByID, search.Asc)
	assert.Equal(t, []int64{2}, ids(got))

	// Numeric equality, not containment: "2" must not match id 22.
	events = append(events, &models.Event{ID: 22, Title: "Encore"})
	search.Sort(events, search.SortByID, search.Asc)
	got = search.Binary(events, "2", search.SortByID, search.Asc)
	assert.Equal(t, []int64{2}, ids(got))
}

func TestBinarySearchFallsBackWhenNoAnchor(t *testing.T) {
	// "ght" is contained in "Comedy Night" but lexicographic steering
	// walks right past every title; the containment fallback over the
	// sorted set must still find it.
	events := testEvents()
	search.Sort(events, search.SortByTitle, search.Asc)

	got := search.Binary(events, "ght", search.SortByTitle, search.Asc)
	assert.Equal(t, []int64{1}, ids(got))
}

func TestBinarySearchEmptyCollection(t *testing.T) {
	assert.Empty(t, search.Binary(nil, "com", search.SortByTitle, search.Asc))
}

func TestBinaryEligible(t *testing.T) {
	assert.True(t, search.BinaryEligible(search.SortByID, "42"))
	assert.False(t, search.BinaryEligible(search.SortByID, "comedy"))
	assert.True(t, search.BinaryEligible(search.SortByTitle, "comedy"))
	assert.False(t, search.BinaryEligible(search.SortByTitle, "42"))
	assert.False(t, search.BinaryEligible(search.SortByDuration, "02:00"))
	assert.False(t, search.BinaryEligible(search.SortByAdmin, "alice"))
}

func TestSortStable(t *testing.T) {
	events := []*models.Event{
		{ID: 3, Title: "Same"},
		{ID: 1, Title: "Same"},
		{ID: 2, Title: "Other"},
	}

	search.Sort(events, search.SortByTitle, search.Asc)
	assert.Equal(t, []int64{2, 1, 3}, ids(events))

	search.Sort(events, search.SortByID, search.Desc)
	assert.Equal(t, []int64{3, 2, 1}, ids(events))
}

func TestParseSortKeyDefaultsToID(t *testing.T) {
	assert.Equal(t, search.SortByID, search.ParseSortKey(""))
	assert.Equal(t, search.SortByID, search.ParseSortKey("sl"))
	assert.Equal(t, search.SortByID, search.ParseSortKey("bogus"))
	assert.Equal(t, search.SortByTitle, search.ParseSortKey("title"))
	assert.Equal(t, search.SortByAdmin, search.ParseSortKey("admin"))
}
