package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-events/internal/models"
	"ms-events/internal/tickets/db"
)

type fixture struct {
	EventVenueID int64
	SeatIDs      []int64
}

func setupTestDB(t *testing.T) (*db.DB, *bun.DB, *fixture) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Venue)(nil),
		(*models.Seat)(nil),
		(*models.Event)(nil),
		(*models.EventVenue)(nil),
		(*models.Ticket)(nil),
		(*models.TicketSeat)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).Exec(ctx)
		if err != nil {
			t.Fatalf("Failed to create table for %T: %v", model, err)
		}
	}

	venue := &models.Venue{Name: "Test Hall", LocationID: 1, MaxSeats: 4, SeatPrice: 20}
	_, err = bunDB.NewInsert().Model(venue).Exec(ctx)
	require.NoError(t, err)

	seats := []*models.Seat{
		{VenueID: venue.ID, Price: 20},
		{VenueID: venue.ID, Price: 20},
		{VenueID: venue.ID, Price: 35},
		{VenueID: venue.ID, Price: 35},
	}
	_, err = bunDB.NewInsert().Model(&seats).Exec(ctx)
	require.NoError(t, err)

	event := &models.Event{Title: "Test Event", Description: "Fixture", Duration: "02:00:00", CategoryID: 1, AdminID: 1}
	_, err = bunDB.NewInsert().Model(event).Exec(ctx)
	require.NoError(t, err)

	ev := &models.EventVenue{
		EventID:       event.ID,
		VenueID:       venue.ID,
		LocationID:    1,
		StartDatetime: time.Now().AddDate(0, 0, 7),
	}
	_, err = bunDB.NewInsert().Model(ev).Exec(ctx)
	require.NoError(t, err)

	fix := &fixture{EventVenueID: ev.ID}
	for _, s := range seats {
		fix.SeatIDs = append(fix.SeatIDs, s.ID)
	}

	return &db.DB{Bun: bunDB}, bunDB, fix
}

func newTicket(id string, eventVenueID int64) *models.Ticket {
	return &models.Ticket{
		ID:           id,
		UserID:       1,
		EventVenueID: eventVenueID,
		Code:         "tkt_" + id,
		Status:       models.TicketBooked,
		CreatedAt:    time.Now(),
	}
}

// assertSeatInvariant checks that is_booked is true exactly for seats linked
// to a booked-status ticket.
func assertSeatInvariant(t *testing.T, bunDB *bun.DB) {
	t.Helper()
	ctx := context.Background()

	var seats []*models.Seat
	require.NoError(t, bunDB.NewSelect().Model(&seats).Scan(ctx))

	for _, seat := range seats {
		linked, err := bunDB.NewSelect().
			Model((*models.TicketSeat)(nil)).
			Join("JOIN tickets t ON t.id = ticket_seat.ticket_id").
			Where("ticket_seat.seat_id = ?", seat.ID).
			Where("t.status = ?", models.TicketBooked).
			Exists(ctx)
		require.NoError(t, err)
		assert.Equal(t, linked, seat.IsBooked, "seat %d booked flag out of sync", seat.ID)
	}
}

func TestCreateTicketBooksSeatsAndSumsPrice(t *testing.T) {
	ticketDB, bunDB, fix := setupTestDB(t)
	defer bunDB.Close()

	ticket := newTicket("t-1", fix.EventVenueID)
	err := ticketDB.CreateTicket(ticket, []int64{fix.SeatIDs[0], fix.SeatIDs[2]})
	assert.NoError(t, err)
	assert.Equal(t, 55.0, ticket.TotalPrice)

	got, err := ticketDB.GetTicketByID("t-1")
	require.NoError(t, err)
	assert.Equal(t, models.TicketBooked, got.Status)
	assert.Equal(t, 55.0, got.TotalPrice)
	require.Len(t, got.Seats, 2)

	assertSeatInvariant(t, bunDB)
}

func TestCreateTicketSeatConflictLeavesNoPartialState(t *testing.T) {
	ticketDB, bunDB, fix := setupTestDB(t)
	defer bunDB.Close()

	first := newTicket("t-1", fix.EventVenueID)
	require.NoError(t, ticketDB.CreateTicket(first, []int64{fix.SeatIDs[0]}))

	// Second booking overlaps on seat 0; seat 1 must stay free too.
	second := newTicket("t-2", fix.EventVenueID)
	err := ticketDB.CreateTicket(second, []int64{fix.SeatIDs[0], fix.SeatIDs[1]})

	var conflict *models.SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []int64{fix.SeatIDs[0]}, conflict.SeatIDs)

	_, err = ticketDB.GetTicketByID("t-2")
	assert.ErrorIs(t, err, models.ErrNotFound)

	assertSeatInvariant(t, bunDB)
}

func TestCreateTicketUnknownSeat(t *testing.T) {
	ticketDB, bunDB, fix := setupTestDB(t)
	defer bunDB.Close()

	ticket := newTicket("t-1", fix.EventVenueID)
	err := ticketDB.CreateTicket(ticket, []int64{fix.SeatIDs[0], 9999})
	assert.ErrorIs(t, err, models.ErrNotFound)

	assertSeatInvariant(t, bunDB)
}

func TestExpireTicketReleasesSeatsOnce(t *testing.T) {
	ticketDB, bunDB, fix := setupTestDB(t)
	defer bunDB.Close()

	ticket := newTicket("t-1", fix.EventVenueID)
	require.NoError(t, ticketDB.CreateTicket(ticket, []int64{fix.SeatIDs[0], fix.SeatIDs[1]}))

	transitioned, err := ticketDB.ExpireTicket("t-1")
	assert.NoError(t, err)
	assert.True(t, transitioned)

	got, err := ticketDB.GetTicketByID("t-1")
	require.NoError(t, err)
	assert.Equal(t, models.TicketExpired, got.Status)
	assertSeatInvariant(t, bunDB)

	// Second run is a no-op.
	transitioned, err = ticketDB.ExpireTicket("t-1")
	assert.NoError(t, err)
	assert.False(t, transitioned)
	assertSeatInvariant(t, bunDB)
}

func TestExpireDoesNotReleaseRebookedSeats(t *testing.T) {
	ticketDB, bunDB, fix := setupTestDB(t)
	defer bunDB.Close()

	first := newTicket("t-1", fix.EventVenueID)
	require.NoError(t, ticketDB.CreateTicket(first, []int64{fix.SeatIDs[0]}))

	transitioned, err := ticketDB.ExpireTicket("t-1")
	require.NoError(t, err)
	require.True(t, transitioned)

	// Seat 0 gets rebooked under a new ticket.
	second := newTicket("t-2", fix.EventVenueID)
	require.NoError(t, ticketDB.CreateTicket(second, []int64{fix.SeatIDs[0]}))

	// Re-expiring the old ticket must not free the rebooked seat.
	transitioned, err = ticketDB.ExpireTicket("t-1")
	assert.NoError(t, err)
	assert.False(t, transitioned)

	var seat models.Seat
	err = bunDB.NewSelect().Model(&seat).Where("id = ?", fix.SeatIDs[0]).Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, seat.IsBooked)
}

func TestCancelTicketFollowsExpiryContract(t *testing.T) {
	ticketDB, bunDB, fix := setupTestDB(t)
	defer bunDB.Close()

	ticket := newTicket("t-1", fix.EventVenueID)
	require.NoError(t, ticketDB.CreateTicket(ticket, []int64{fix.SeatIDs[3]}))

	transitioned, err := ticketDB.CancelTicket("t-1")
	assert.NoError(t, err)
	assert.True(t, transitioned)

	got, err := ticketDB.GetTicketByID("t-1")
	require.NoError(t, err)
	assert.Equal(t, models.TicketCancelled, got.Status)
	assertSeatInvariant(t, bunDB)

	// A cancelled ticket cannot expire afterwards.
	transitioned, err = ticketDB.ExpireTicket("t-1")
	assert.NoError(t, err)
	assert.False(t, transitioned)
}

func TestBookedTicketsForPastVenues(t *testing.T) {
	ticketDB, bunDB, fix := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	past := &models.EventVenue{EventID: 1, VenueID: 1, LocationID: 1, StartDatetime: time.Now().AddDate(0, 0, -1)}
	_, err := bunDB.NewInsert().Model(past).Exec(ctx)
	require.NoError(t, err)

	pastTicket := newTicket("t-past", past.ID)
	require.NoError(t, ticketDB.CreateTicket(pastTicket, []int64{fix.SeatIDs[0]}))
	futureTicket := newTicket("t-future", fix.EventVenueID)
	require.NoError(t, ticketDB.CreateTicket(futureTicket, []int64{fix.SeatIDs[1]}))

	expiredTicket := newTicket("t-done", past.ID)
	require.NoError(t, ticketDB.CreateTicket(expiredTicket, []int64{fix.SeatIDs[2]}))
	_, err = ticketDB.ExpireTicket("t-done")
	require.NoError(t, err)

	due, err := ticketDB.BookedTicketsForPastVenues(time.Now())
	assert.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "t-past", due[0].ID)
}

func TestSeatMapForVenue(t *testing.T) {
	ticketDB, bunDB, fix := setupTestDB(t)
	defer bunDB.Close()

	ticket := newTicket("t-1", fix.EventVenueID)
	require.NoError(t, ticketDB.CreateTicket(ticket, []int64{fix.SeatIDs[1]}))

	seats, err := ticketDB.SeatMapForVenue(1)
	assert.NoError(t, err)
	require.Len(t, seats, 4)
	assert.False(t, seats[0].IsBooked)
	assert.True(t, seats[1].IsBooked)
}

func TestEventVenueExists(t *testing.T) {
	ticketDB, bunDB, fix := setupTestDB(t)
	defer bunDB.Close()

	exists, err := ticketDB.EventVenueExists(fix.EventVenueID)
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = ticketDB.EventVenueExists(9999)
	assert.NoError(t, err)
	assert.False(t, exists)
}
