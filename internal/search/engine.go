// Package search implements the admin listing search over a loaded event
// collection. Two strategies exist: a linear scan across every searchable
// field, and a bisection over a set pre-sorted by the searched column.
package search

import (
	"sort"
	"strconv"
	"strings"

	"ms-events/internal/models"
)

// SortKey is the closed set of admin-table columns events can be sorted
// and searched by. Only ID and Title have ordering semantics that permit
// the binary strategy.
type SortKey int

const (
	SortByID SortKey = iota
	SortByTitle
	SortByDuration
	SortByAdmin
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ParseSortKey resolves the sort_by query value. Unknown keys fall back to
// the identifier column so an unsupported key can never reach the binary
// precondition check.
func ParseSortKey(s string) SortKey {
	switch strings.ToLower(s) {
	case "title":
		return SortByTitle
	case "duration":
		return SortByDuration
	case "admin":
		return SortByAdmin
	default: // "sl", "id", empty
		return SortByID
	}
}

func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return Asc
	}
	return Desc
}

// Value returns the column's comparison value for an event, lowercased for
// the text columns.
func (k SortKey) Value(e *models.Event) string {
	switch k {
	case SortByTitle:
		return strings.ToLower(e.Title)
	case SortByDuration:
		return e.Duration
	case SortByAdmin:
		return strings.ToLower(e.AdminName())
	default:
		return strconv.FormatInt(e.ID, 10)
	}
}

// BinaryEligible reports whether the binary strategy may run: the sort
// column must be in the allow-list and the term's apparent type must match
// the column's comparison semantics.
func BinaryEligible(key SortKey, term string) bool {
	_, numeric := parseNumeric(term)
	switch key {
	case SortByID:
		return numeric
	case SortByTitle:
		return !numeric
	}
	return false
}

func parseNumeric(term string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(term), 10, 64)
	return n, err == nil
}

// Linear scans every event and matches the term as a case-insensitive
// substring of any searchable field. Results keep scan order, deduplicated
// by id.
func Linear(events []*models.Event, term string) []*models.Event {
	t := strings.ToLower(term)

	var matched []*models.Event
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Title), t) ||
			strings.Contains(strconv.FormatInt(e.ID, 10), t) ||
			strings.Contains(strings.ToLower(e.Duration), t) ||
			strings.Contains(strings.ToLower(e.Description), t) ||
			strings.Contains(strings.ToLower(e.CategoryName()), t) ||
			strings.Contains(strings.ToLower(e.AdminName()), t) {
			matched = append(matched, e)
		}
	}
	return dedupeByID(matched)
}

// Binary bisects a set already sorted by key in the given order. The match
// test is numeric equality for the identifier column and case-insensitive
// containment for text; lexicographic comparison only steers the bisection.
// Once an anchor index matches, the contiguous run of matching neighbors
// around it is collected. Containment is not a total order, so when no
// anchor is found the engine degrades to a containment filter over the same
// sorted set rather than giving up.
func Binary(sorted []*models.Event, term string, key SortKey, order SortOrder) []*models.Event {
	if len(sorted) == 0 {
		return nil
	}

	t := strings.ToLower(term)
	want, numeric := parseNumeric(term)
	if key != SortByID {
		numeric = false
	}

	match := func(e *models.Event) bool {
		if numeric {
			return e.ID == want
		}
		return strings.Contains(key.Value(e), t)
	}

	anchor := -1
	low, high := 0, len(sorted)-1
	for low <= high {
		mid := (low + high) / 2
		e := sorted[mid]
		if match(e) {
			anchor = mid
			break
		}

		var before bool // column value sorts before the sought term
		if numeric {
			before = e.ID < want
		} else {
			before = key.Value(e) < t
		}
		if order == Desc {
			before = !before
		}

		if before {
			low = mid + 1
		} else {
			high = mid - 1
		}
	}

	if anchor < 0 {
		var matched []*models.Event
		for _, e := range sorted {
			if match(e) {
				matched = append(matched, e)
			}
		}
		return dedupeByID(matched)
	}

	left, right := anchor, anchor
	for left > 0 && match(sorted[left-1]) {
		left--
	}
	for right < len(sorted)-1 && match(sorted[right+1]) {
		right++
	}

	return dedupeByID(sorted[left : right+1])
}

// Sort orders events by key/order in place, stably so equal keys keep
// their relative order.
func Sort(events []*models.Event, key SortKey, order SortOrder) {
	sort.SliceStable(events, func(i, j int) bool {
		var less bool
		if key == SortByID {
			less = events[i].ID < events[j].ID
		} else {
			a, b := key.Value(events[i]), key.Value(events[j])
			if a == b {
				// Tie-break on id so text sorts are deterministic.
				less = events[i].ID < events[j].ID
			} else {
				less = a < b
			}
		}
		if order == Desc {
			return !less
		}
		return less
	})
}

func dedupeByID(events []*models.Event) []*models.Event {
	if len(events) == 0 {
		return events
	}
	seen := make(map[int64]bool, len(events))
	out := events[:0:0]
	for _, e := range events {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	return out
}
