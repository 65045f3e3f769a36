// Error types shared by the event and ticket layers. Sentinel values let
// handlers translate failures into HTTP statuses; the conflict types carry
// enough detail for the caller to correct the request and retry.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized is returned on an ownership or role mismatch.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError reports a bad input shape. Handlers should translate it
// into an HTTP 422 response.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// VenueBookedError signals that a venue already has an event occurrence on
// the same calendar date. The whole multi-venue create/update aborts.
type VenueBookedError struct {
	VenueID int64
	Date    time.Time
}

func (e *VenueBookedError) Error() string {
	return fmt.Sprintf("venue %d is already booked on %s", e.VenueID, e.Date.Format("2006-01-02"))
}

// SeatConflictError signals that the booking race was lost: one or more of
// the selected seats got booked first. The caller should re-fetch the seat
// map and retry the selection.
type SeatConflictError struct {
	SeatIDs []int64
}

func (e *SeatConflictError) Error() string {
	ids := make([]string, len(e.SeatIDs))
	for i, id := range e.SeatIDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("seats already booked: %s", strings.Join(ids, ", "))
}
