package ticket_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/tickets"
	"ms-events/internal/utils"
)

type Handler struct {
	TicketService *tickets.TicketService
	Logger        *logger.Logger
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	var validation *models.ValidationError
	var seatConflict *models.SeatConflictError

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, utils.ErrorResponse("Validation failed", validation.Error()))
	case errors.As(err, &seatConflict):
		// Caller should re-fetch the seat map and retry its selection.
		writeJSON(w, http.StatusConflict, utils.ErrorResponse("Seats no longer available", seatConflict.Error()))
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Not found", err.Error()))
	default:
		log.Error("API", fmt.Sprintf("%s: %v", op, err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", ""))
	}
}

func (h *Handler) BookTicket(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.Logger, "BookTicket", &models.ValidationError{Field: "body", Message: "invalid JSON"})
		return
	}

	ticket, err := h.TicketService.BookTicket(req)
	if err != nil {
		writeError(w, h.Logger, "BookTicket", err)
		return
	}
	h.Logger.LogTicket("BOOK", ticket.ID, fmt.Sprintf("%d seats for venue occurrence %d", len(req.SeatIDs), req.EventVenueID))

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Ticket booked", ticket))
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	ticket, err := h.TicketService.GetTicket(ticketID)
	if err != nil {
		writeError(w, h.Logger, "GetTicket", err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Ticket retrieved", ticket))
}

func (h *Handler) ListTicketsByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, h.Logger, "ListTicketsByUser", &models.ValidationError{Field: "user_id", Message: "must be numeric"})
		return
	}

	list, err := h.TicketService.TicketsByUser(userID)
	if err != nil {
		writeError(w, h.Logger, "ListTicketsByUser", err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Tickets retrieved", list))
}

func (h *Handler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	if err := h.TicketService.CancelTicket(ticketID); err != nil {
		writeError(w, h.Logger, "CancelTicket", err)
		return
	}
	h.Logger.LogTicket("CANCEL", ticketID, "seats released")

	w.WriteHeader(http.StatusNoContent)
}

// SeatMap serves a venue's seats with their booked flags, so booking UIs
// can render a picker and conflicted callers can retry.
func (h *Handler) SeatMap(w http.ResponseWriter, r *http.Request) {
	venueID, err := strconv.ParseInt(chi.URLParam(r, "venueID"), 10, 64)
	if err != nil {
		writeError(w, h.Logger, "SeatMap", &models.ValidationError{Field: "venueID", Message: "must be numeric"})
		return
	}

	seats, err := h.TicketService.SeatMap(venueID)
	if err != nil {
		writeError(w, h.Logger, "SeatMap", err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Seat map retrieved", seats))
}
