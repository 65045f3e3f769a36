package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-events/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- EVENTS ----------------

// ListEvents loads the full event collection with the relations the admin
// table searches against (category name, admin name, venues for status).
func (d *DB) ListEvents() ([]*models.Event, error) {
	var events []*models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Relation("Category").
		Relation("Admin").
		Relation("Venues").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetEventByID fetches one event with venues, venue details and per-venue
// booked ticket counts.
func (d *DB) GetEventByID(id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Relation("Category").
		Relation("Admin").
		Relation("Venues").
		Relation("Venues.Venue").
		Relation("Venues.Location").
		Where("event.id = ?", id).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	for _, v := range event.Venues {
		count, err := d.Bun.NewSelect().
			Model((*models.Ticket)(nil)).
			Where("event_venue_id = ?", v.ID).
			Where("status = ?", models.TicketBooked).
			Count(context.Background())
		if err != nil {
			return nil, err
		}
		v.TicketsBooked = count
	}

	return &event, nil
}

// venueBookedOn reports whether the venue already has an occurrence on the
// same calendar date. Dates are compared day-by-day in Go rather than with
// a dialect-specific DATE() expression.
func venueBookedOn(ctx context.Context, idb bun.IDB, venueID int64, date time.Time) (bool, error) {
	var existing []time.Time
	err := idb.NewSelect().
		Model((*models.EventVenue)(nil)).
		Column("start_datetime").
		Where("venue_id = ?", venueID).
		Scan(ctx, &existing)
	if err != nil {
		return false, err
	}

	y, m, day := date.Date()
	for _, dt := range existing {
		ey, em, ed := dt.Date()
		if ey == y && em == m && ed == day {
			return true, nil
		}
	}
	return false, nil
}

// VenueBookedOn is the standalone availability check used before an
// event-venue is created. Creation re-validates inside its own transaction.
func (d *DB) VenueBookedOn(venueID int64, date time.Time) (bool, error) {
	return venueBookedOn(context.Background(), d.Bun, venueID, date)
}

func insertVenuesTx(ctx context.Context, tx bun.Tx, eventID int64, venues []*models.EventVenue) error {
	for _, v := range venues {
		booked, err := venueBookedOn(ctx, tx, v.VenueID, v.StartDatetime)
		if err != nil {
			return err
		}
		if booked {
			return &models.VenueBookedError{VenueID: v.VenueID, Date: v.StartDatetime}
		}

		v.ID = 0
		v.EventID = eventID
		if _, err := tx.NewInsert().Model(v).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CreateEventWithVenues inserts the event and all its venue occurrences as
// one transaction. Any venue/date conflict rolls back the whole creation,
// including conflicts between two venues within the same request.
func (d *DB) CreateEventWithVenues(event *models.Event, venues []*models.EventVenue) error {
	return d.Bun.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(event).Exec(ctx); err != nil {
			return err
		}
		return insertVenuesTx(ctx, tx, event.ID, venues)
	})
}

// UpdateEvent updates the event row and, in full mode, replaces the venue
// set. Old rows are deleted before re-validation; a conflict mid-way rolls
// back the deletion too.
func (d *DB) UpdateEvent(event *models.Event, venues []*models.EventVenue, full bool) error {
	return d.Bun.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(event).
			Column("title", "description", "duration", "thumbnail", "category_id").
			Where("id = ?", event.ID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return models.ErrNotFound
		}

		if !full {
			return nil
		}

		// Re-check inside the transaction: a booking can land between the
		// service's pre-check and this point.
		booked, err := hasBookedTickets(ctx, tx, event.ID)
		if err != nil {
			return err
		}
		if booked {
			return &models.ValidationError{
				Field:   "mode",
				Message: "event has booked tickets; only a partial update may run",
			}
		}

		_, err = tx.NewDelete().
			Model((*models.EventVenue)(nil)).
			Where("event_id = ?", event.ID).
			Exec(ctx)
		if err != nil {
			return err
		}

		return insertVenuesTx(ctx, tx, event.ID, venues)
	})
}

func hasBookedTickets(ctx context.Context, idb bun.IDB, eventID int64) (bool, error) {
	return idb.NewSelect().
		Model((*models.Ticket)(nil)).
		Join("JOIN event_venues ev ON ev.id = ticket.event_venue_id").
		Where("ev.event_id = ?", eventID).
		Where("ticket.status = ?", models.TicketBooked).
		Exists(ctx)
}

// HasBookedTickets reports whether any venue under the event has a booked
// ticket. Full-mode updates are refused in that case so sold tickets keep
// pointing at valid occurrences.
func (d *DB) HasBookedTickets(eventID int64) (bool, error) {
	return hasBookedTickets(context.Background(), d.Bun, eventID)
}

// CancelEvent unlinks every venue occurrence without deleting the event
// row, which makes the derived status Cancelled.
func (d *DB) CancelEvent(eventID int64) error {
	_, err := d.Bun.NewDelete().
		Model((*models.EventVenue)(nil)).
		Where("event_id = ?", eventID).
		Exec(context.Background())
	return err
}

// DeleteEvent removes the event and its venue rows for good.
func (d *DB) DeleteEvent(eventID int64) error {
	return d.Bun.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.EventVenue)(nil)).
			Where("event_id = ?", eventID).
			Exec(ctx)
		if err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*models.Event)(nil)).
			Where("id = ?", eventID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}

// ---------------- VENUES & LOCATIONS ----------------

// CreateVenueWithSeats inserts a venue and generates its seat rows at the
// venue's base price in one transaction.
func (d *DB) CreateVenueWithSeats(venue *models.Venue) error {
	return d.Bun.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(venue).Exec(ctx); err != nil {
			return err
		}

		if venue.MaxSeats == 0 {
			return nil
		}
		seats := make([]*models.Seat, venue.MaxSeats)
		for i := range seats {
			seats[i] = &models.Seat{VenueID: venue.ID, Price: venue.SeatPrice}
		}
		_, err := tx.NewInsert().Model(&seats).Exec(ctx)
		return err
	})
}

// UpcomingVenuesAtLocation returns future occurrences at a location with
// venue and event details, earliest first.
func (d *DB) UpcomingVenuesAtLocation(locationID int64, now time.Time) ([]*models.EventVenue, error) {
	var venues []*models.EventVenue
	err := d.Bun.NewSelect().
		Model(&venues).
		Relation("Venue").
		Relation("Event").
		Relation("Event.Category").
		Where("event_venue.location_id = ?", locationID).
		Where("event_venue.start_datetime >= ?", now).
		Order("event_venue.start_datetime ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return venues, nil
}

// MinSeatPrice returns the lowest seat price at a venue.
func (d *DB) MinSeatPrice(venueID int64) (float64, error) {
	var price sql.NullFloat64
	err := d.Bun.NewSelect().
		Model((*models.Seat)(nil)).
		ColumnExpr("MIN(price)").
		Where("venue_id = ?", venueID).
		Scan(context.Background(), &price)
	if err != nil {
		return 0, err
	}
	return price.Float64, nil
}

// SubscribedUserIDs lists users who opted into the newsletter.
func (d *DB) SubscribedUserIDs() ([]int64, error) {
	var ids []int64
	err := d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Column("id").
		Where("is_subscribed = ?", true).
		Order("id ASC").
		Scan(context.Background(), &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
