package models

import (
	"time"

	"github.com/uptrace/bun"
)

// EventStatus is derived from an event's venues, never stored.
type EventStatus string

const (
	StatusActive    EventStatus = "Active"
	StatusInactive  EventStatus = "Inactive"
	StatusCompleted EventStatus = "Completed"
	StatusCancelled EventStatus = "Cancelled"
)

// ParseEventStatus maps a reserved search keyword to a status filter.
// The bool reports whether the keyword is one of the reserved ones.
func ParseEventStatus(keyword string) (EventStatus, bool) {
	switch keyword {
	case "active":
		return StatusActive, true
	case "inactive":
		return StatusInactive, true
	case "completed":
		return StatusCompleted, true
	case "cancelled":
		return StatusCancelled, true
	}
	return "", false
}

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Title       string    `bun:"title,notnull" json:"title"`
	Description string    `bun:"description" json:"description"`
	Duration    string    `bun:"duration" json:"duration"` // HH:MM:SS
	Thumbnail   string    `bun:"thumbnail" json:"thumbnail"`
	CategoryID  int64     `bun:"category_id" json:"category_id"`
	AdminID     int64     `bun:"admin_id" json:"admin_id"`
	CreatedAt   time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`

	Category *Category     `bun:"rel:belongs-to,join:category_id=id" json:"category,omitempty"`
	Admin    *Admin        `bun:"rel:belongs-to,join:admin_id=id" json:"admin,omitempty"`
	Venues   []*EventVenue `bun:"rel:has-many,join:id=event_id" json:"event_venue,omitempty"`

	// Populated by the query orchestrator before status filters run.
	Status EventStatus `bun:"-" json:"status,omitempty"`
}

// ComputeStatus derives the event status from its venues' earliest start
// time. No venues means the event was cancelled (all occurrences unlinked).
func (e *Event) ComputeStatus(now time.Time) EventStatus {
	if len(e.Venues) == 0 {
		return StatusCancelled
	}

	earliest := e.Venues[0].StartDatetime
	for _, v := range e.Venues[1:] {
		if v.StartDatetime.Before(earliest) {
			earliest = v.StartDatetime
		}
	}

	if earliest.Before(now) {
		return StatusCompleted
	}
	if !earliest.After(now.AddDate(0, 1, 0)) {
		return StatusActive
	}
	return StatusInactive
}

// CategoryName is safe to call when the relation was not loaded.
func (e *Event) CategoryName() string {
	if e.Category == nil {
		return ""
	}
	return e.Category.Name
}

// AdminName is safe to call when the relation was not loaded.
func (e *Event) AdminName() string {
	if e.Admin == nil {
		return ""
	}
	return e.Admin.Name
}

// EventVenue is one scheduled occurrence of an event at a venue. Deleting
// every row for an event cancels the event without deleting the event row.
type EventVenue struct {
	bun.BaseModel `bun:"table:event_venues"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	EventID       int64     `bun:"event_id,notnull" json:"event_id"`
	VenueID       int64     `bun:"venue_id,notnull" json:"venue_id"`
	LocationID    int64     `bun:"location_id,notnull" json:"location_id"`
	StartDatetime time.Time `bun:"start_datetime,notnull" json:"start_datetime"`

	Event    *Event    `bun:"rel:belongs-to,join:event_id=id" json:"-"`
	Venue    *Venue    `bun:"rel:belongs-to,join:venue_id=id" json:"venue,omitempty"`
	Location *Location `bun:"rel:belongs-to,join:location_id=id" json:"location,omitempty"`

	TicketsBooked int `bun:"tickets_booked,scanonly" json:"tickets_booked,omitempty"`
}

type Category struct {
	bun.BaseModel `bun:"table:event_categories"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}
