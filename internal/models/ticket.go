package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	TicketBooked    = "booked"
	TicketExpired   = "expired"
	TicketCancelled = "cancelled"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID           string    `bun:"id,pk" json:"id"`
	UserID       int64     `bun:"user_id,notnull" json:"user_id"`
	EventVenueID int64     `bun:"event_venue_id,notnull" json:"event_venue_id"`
	Code         string    `bun:"code,notnull" json:"code"`
	TotalPrice   float64   `bun:"total_price,notnull" json:"total_price"`
	Status       string    `bun:"status,notnull" json:"status"`
	QRCode       []byte    `bun:"qr_code" json:"qr_code,omitempty"`
	CreatedAt    time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`

	Seats []*TicketSeat `bun:"rel:has-many,join:id=ticket_id" json:"seats,omitempty"`
}

// TicketSeat links a ticket to one seat. For a given seat at most one link
// may belong to a booked-status ticket.
type TicketSeat struct {
	bun.BaseModel `bun:"table:ticket_seats"`

	TicketID string `bun:"ticket_id,pk" json:"ticket_id"`
	SeatID   int64  `bun:"seat_id,pk" json:"seat_id"`

	Seat *Seat `bun:"rel:belongs-to,join:seat_id=id" json:"seat,omitempty"`
}

// BookingRequest is the payload for booking seats at one event occurrence.
type BookingRequest struct {
	UserID       int64   `json:"user_id"`
	EventVenueID int64   `json:"event_venue_id"`
	SeatIDs      []int64 `json:"seat_ids"`
}
