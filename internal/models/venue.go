package models

import "github.com/uptrace/bun"

type Venue struct {
	bun.BaseModel `bun:"table:venues"`

	ID         int64   `bun:"id,pk,autoincrement" json:"id"`
	Name       string  `bun:"venue_name,notnull" json:"venue_name"`
	LocationID int64   `bun:"location_id,notnull" json:"location_id"`
	MaxSeats   int     `bun:"max_seats,notnull" json:"max_seats"`
	SeatPrice  float64 `bun:"seat_price,notnull" json:"seat_price"`

	Location *Location `bun:"rel:belongs-to,join:location_id=id" json:"location,omitempty"`
	Seats    []*Seat   `bun:"rel:has-many,join:id=venue_id" json:"seats,omitempty"`
}

// Seat booked state is mutated only through the ticket lifecycle: is_booked
// must be true iff a booked-status ticket links to the seat.
type Seat struct {
	bun.BaseModel `bun:"table:seats"`

	ID       int64   `bun:"id,pk,autoincrement" json:"id"`
	VenueID  int64   `bun:"venue_id,notnull" json:"venue_id"`
	Price    float64 `bun:"price,notnull" json:"price"`
	IsBooked bool    `bun:"is_booked" json:"is_booked"`
}

type Location struct {
	bun.BaseModel `bun:"table:locations"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	City string `bun:"city,notnull" json:"city"`
}
