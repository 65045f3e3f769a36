package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-events/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- SEAT INVENTORY ----------------

// reserveSeatsTx re-checks seat state inside the caller's transaction and
// flips every seat or none. On Postgres the selected rows are locked so two
// concurrent bookings serialize on the same seats; the losing transaction
// sees is_booked=true and fails with a SeatConflictError naming the seats.
// Returns the summed seat prices for the ticket total.
func reserveSeatsTx(ctx context.Context, tx bun.Tx, seatIDs []int64, ticketID string) (float64, error) {
	var seats []*models.Seat
	q := tx.NewSelect().
		Model(&seats).
		Where("id IN (?)", bun.In(seatIDs)).
		Order("id ASC")
	if tx.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return 0, err
	}
	if len(seats) != len(seatIDs) {
		return 0, models.ErrNotFound
	}

	var conflicts []int64
	var total float64
	for _, seat := range seats {
		if seat.IsBooked {
			conflicts = append(conflicts, seat.ID)
		}
		total += seat.Price
	}
	if len(conflicts) > 0 {
		return 0, &models.SeatConflictError{SeatIDs: conflicts}
	}

	_, err := tx.NewUpdate().
		Model((*models.Seat)(nil)).
		Set("is_booked = ?", true).
		Where("id IN (?)", bun.In(seatIDs)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	links := make([]*models.TicketSeat, len(seatIDs))
	for i, id := range seatIDs {
		links[i] = &models.TicketSeat{TicketID: ticketID, SeatID: id}
	}
	if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
		return 0, err
	}

	return total, nil
}

// releaseSeatsTx clears is_booked on the seats regardless of current value,
// so a re-run releases nothing extra.
func releaseSeatsTx(ctx context.Context, tx bun.Tx, seatIDs []int64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	_, err := tx.NewUpdate().
		Model((*models.Seat)(nil)).
		Set("is_booked = ?", false).
		Where("id IN (?)", bun.In(seatIDs)).
		Exec(ctx)
	return err
}

// SeatMapForVenue returns every seat at a venue so a caller that lost a
// booking race can re-pick.
func (d *DB) SeatMapForVenue(venueID int64) ([]*models.Seat, error) {
	var seats []*models.Seat
	err := d.Bun.NewSelect().
		Model(&seats).
		Where("venue_id = ?", venueID).
		Order("id ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return seats, nil
}

// ---------------- TICKETS ----------------

// CreateTicket reserves the seats and writes the ticket and its seat links
// as one transaction. The ticket's total price is the sum of the seats'
// prices at booking time; it is never recomputed afterwards.
func (d *DB) CreateTicket(ticket *models.Ticket, seatIDs []int64) error {
	return d.Bun.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(ticket).Exec(ctx); err != nil {
			return err
		}

		total, err := reserveSeatsTx(ctx, tx, seatIDs, ticket.ID)
		if err != nil {
			return err
		}

		ticket.TotalPrice = total
		_, err = tx.NewUpdate().
			Model(ticket).
			Column("total_price").
			Where("id = ?", ticket.ID).
			Exec(ctx)
		return err
	})
}

func (d *DB) GetTicketByID(id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Relation("Seats").
		Relation("Seats.Seat").
		Where("ticket.id = ?", id).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) GetTicketsByUser(userID int64) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Relation("Seats").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (d *DB) EventVenueExists(id int64) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.EventVenue)(nil)).
		Where("id = ?", id).
		Exists(context.Background())
}

func (d *DB) UpdateTicketQR(id string, qrPNG []byte) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("qr_code = ?", qrPNG).
		Where("id = ?", id).
		Exec(context.Background())
	return err
}

// BookedTicketsForPastVenues finds tickets still marked booked whose event
// occurrence already started. Only booked tickets qualify, which is what
// makes the expiry sweep idempotent.
func (d *DB) BookedTicketsForPastVenues(now time.Time) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Join("JOIN event_venues ev ON ev.id = ticket.event_venue_id").
		Where("ev.start_datetime < ?", now).
		Where("ticket.status = ?", models.TicketBooked).
		Order("ticket.created_at ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// transitionTicket moves a booked ticket to the given status and releases
// its seats, in one short transaction. The guarded update makes re-runs
// no-ops: a ticket that already left booked state releases nothing.
func (d *DB) transitionTicket(id, status string) (bool, error) {
	var transitioned bool
	err := d.Bun.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Ticket)(nil)).
			Set("status = ?", status).
			Where("id = ?", id).
			Where("status = ?", models.TicketBooked).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, _ := res.RowsAffected()
		if rows == 0 {
			return nil
		}
		transitioned = true

		var seatIDs []int64
		err = tx.NewSelect().
			Model((*models.TicketSeat)(nil)).
			Column("seat_id").
			Where("ticket_id = ?", id).
			Scan(ctx, &seatIDs)
		if err != nil {
			return err
		}

		return releaseSeatsTx(ctx, tx, seatIDs)
	})
	return transitioned, err
}

// ExpireTicket transitions one booked ticket to expired and frees its
// seats. Reports false when the ticket already left booked state.
func (d *DB) ExpireTicket(id string) (bool, error) {
	return d.transitionTicket(id, models.TicketExpired)
}

// CancelTicket follows the same seat-release contract as expiry.
func (d *DB) CancelTicket(id string) (bool, error) {
	return d.transitionTicket(id, models.TicketCancelled)
}
