package ticket_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/tickets"
	"ms-events/internal/tickets/db"
	"ms-events/internal/tickets/ticket_api"
)

// setupServer wires a real service over an in-memory database behind the
// ticket routes, so the tests exercise the full request path including the
// error-to-status mapping.
func setupServer(t *testing.T) (*httptest.Server, []int64) {
	t.Chdir(t.TempDir()) // logger writes its log file under the test dir

	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Venue)(nil),
		(*models.Seat)(nil),
		(*models.EventVenue)(nil),
		(*models.Ticket)(nil),
		(*models.TicketSeat)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}

	venue := &models.Venue{Name: "API Hall", LocationID: 1, MaxSeats: 3, SeatPrice: 10}
	_, err = bunDB.NewInsert().Model(venue).Exec(ctx)
	require.NoError(t, err)

	seats := []*models.Seat{
		{VenueID: venue.ID, Price: 10},
		{VenueID: venue.ID, Price: 10},
		{VenueID: venue.ID, Price: 10},
	}
	_, err = bunDB.NewInsert().Model(&seats).Exec(ctx)
	require.NoError(t, err)

	ev := &models.EventVenue{EventID: 1, VenueID: venue.ID, LocationID: 1, StartDatetime: time.Now().AddDate(0, 0, 7)}
	_, err = bunDB.NewInsert().Model(ev).Exec(ctx)
	require.NoError(t, err)

	svc := tickets.NewTicketService(&db.DB{Bun: bunDB}, nil, nil, nil, tickets.Topics{})
	log := logger.NewLogger()
	t.Cleanup(log.Close)
	handler := &ticket_api.Handler{TicketService: svc, Logger: log}

	r := chi.NewRouter()
	r.Get("/venues/{venueID}/seats", handler.SeatMap)
	r.Route("/tickets", func(r chi.Router) {
		r.Post("/", handler.BookTicket)
		r.Get("/", handler.ListTicketsByUser)
		r.Get("/{ticketID}", handler.GetTicket)
		r.Delete("/{ticketID}", handler.CancelTicket)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	seatIDs := make([]int64, len(seats))
	for i, s := range seats {
		seatIDs[i] = s.ID
	}
	return srv, seatIDs
}

func bookBody(t *testing.T, userID, eventVenueID int64, seatIDs []int64) *bytes.Buffer {
	body, err := json.Marshal(models.BookingRequest{UserID: userID, EventVenueID: eventVenueID, SeatIDs: seatIDs})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestBookTicketEndpoint(t *testing.T) {
	srv, seatIDs := setupServer(t)

	resp, err := http.Post(srv.URL+"/tickets/", "application/json", bookBody(t, 1, 1, seatIDs[:2]))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Success bool `json:"success"`
		Data    struct {
			ID         string  `json:"id"`
			TotalPrice float64 `json:"total_price"`
			Status     string  `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.Data.ID)
	assert.Equal(t, 20.0, out.Data.TotalPrice)
	assert.Equal(t, models.TicketBooked, out.Data.Status)

	// The booked ticket is retrievable.
	getResp, err := http.Get(srv.URL + "/tickets/" + out.Data.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestBookTicketSeatConflictReturns409(t *testing.T) {
	srv, seatIDs := setupServer(t)

	resp, err := http.Post(srv.URL+"/tickets/", "application/json", bookBody(t, 1, 1, seatIDs[:1]))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/tickets/", "application/json", bookBody(t, 2, 1, seatIDs[:2]))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBookTicketValidationReturns422(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Post(srv.URL+"/tickets/", "application/json", bookBody(t, 1, 1, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/tickets/", "application/json", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestBookTicketUnknownOccurrenceReturns404(t *testing.T) {
	srv, seatIDs := setupServer(t)

	resp, err := http.Post(srv.URL+"/tickets/", "application/json", bookBody(t, 1, 999, seatIDs[:1]))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetTicketNotFound(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/tickets/no-such-ticket")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSeatMapShowsBookedSeats(t *testing.T) {
	srv, seatIDs := setupServer(t)

	resp, err := http.Post(srv.URL+"/tickets/", "application/json", bookBody(t, 1, 1, seatIDs[1:2]))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/venues/1/seats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data []models.Seat `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Data, 3)
	booked := 0
	for _, s := range out.Data {
		if s.IsBooked {
			booked++
		}
	}
	assert.Equal(t, 1, booked)
}

func TestCancelTicketEndpoint(t *testing.T) {
	srv, seatIDs := setupServer(t)

	resp, err := http.Post(srv.URL+"/tickets/", "application/json", bookBody(t, 1, 1, seatIDs[:1]))
	require.NoError(t, err)
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/tickets/%s", srv.URL, out.Data.ID), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Seat is free again.
	seatsResp, err := http.Get(srv.URL + "/venues/1/seats")
	require.NoError(t, err)
	defer seatsResp.Body.Close()
	var seatOut struct {
		Data []models.Seat `json:"data"`
	}
	require.NoError(t, json.NewDecoder(seatsResp.Body).Decode(&seatOut))
	for _, s := range seatOut.Data {
		assert.False(t, s.IsBooked)
	}
}
