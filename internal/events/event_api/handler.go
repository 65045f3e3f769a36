package event_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/events"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

type Handler struct {
	EventService *events.EventService
	Logger       *logger.Logger
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy onto HTTP statuses. Conflicts and
// validation problems carry enough detail to retry; anything unexpected is
// logged with context and surfaced generically.
func writeError(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	var validation *models.ValidationError
	var venueBooked *models.VenueBookedError
	var seatConflict *models.SeatConflictError

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, utils.ErrorResponse("Validation failed", validation.Error()))
	case errors.As(err, &venueBooked):
		writeJSON(w, http.StatusConflict, utils.ErrorResponse("Venue already booked", venueBooked.Error()))
	case errors.As(err, &seatConflict):
		writeJSON(w, http.StatusConflict, utils.ErrorResponse("Seats no longer available", seatConflict.Error()))
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Not found", err.Error()))
	case errors.Is(err, models.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", err.Error()))
	default:
		log.Error("API", fmt.Sprintf("%s: %v", op, err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", ""))
	}
}

// ListEvents serves the admin event table: sortable columns, text or
// status-keyword search, pagination.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	params := events.ListParams{
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Search:    q.Get("search"),
		Page:      page,
		BasePath:  r.URL.Path,
	}
	h.Logger.Info("API", fmt.Sprintf("ListEvents: sort_by=%s sort_order=%s search=%q page=%d",
		params.SortBy, params.SortOrder, params.Search, page))

	result, err := h.EventService.ListEvents(params)
	if err != nil {
		writeError(w, h.Logger, "ListEvents", err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Events retrieved", result))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		writeError(w, h.Logger, "GetEvent", &models.ValidationError{Field: "eventID", Message: "must be numeric"})
		return
	}

	event, err := h.EventService.GetEvent(id)
	if err != nil {
		writeError(w, h.Logger, "GetEvent", err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Event retrieved", event))
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var input events.EventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, h.Logger, "CreateEvent", &models.ValidationError{Field: "body", Message: "invalid JSON"})
		return
	}

	event, err := h.EventService.CreateEvent(input)
	if err != nil {
		writeError(w, h.Logger, "CreateEvent", err)
		return
	}
	h.Logger.LogEvent("CREATE", event.ID, "event created with venues")

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Event created successfully", event))
}

// UpdateEvent applies a full update (mode=full, the default) replacing the
// venue set, or a partial one (mode=partial) leaving venues untouched.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		writeError(w, h.Logger, "UpdateEvent", &models.ValidationError{Field: "eventID", Message: "must be numeric"})
		return
	}

	var input events.EventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, h.Logger, "UpdateEvent", &models.ValidationError{Field: "body", Message: "invalid JSON"})
		return
	}

	mode := r.URL.Query().Get("mode")
	full := mode != "partial"

	event, err := h.EventService.UpdateEvent(id, input, full)
	if err != nil {
		writeError(w, h.Logger, "UpdateEvent", err)
		return
	}
	h.Logger.LogEvent("UPDATE", id, fmt.Sprintf("event updated (mode=%s)", mode))

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Event updated successfully", event))
}

func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		writeError(w, h.Logger, "CancelEvent", &models.ValidationError{Field: "eventID", Message: "must be numeric"})
		return
	}

	if err := h.EventService.CancelEvent(id); err != nil {
		writeError(w, h.Logger, "CancelEvent", err)
		return
	}
	h.Logger.LogEvent("CANCEL", id, "all venues unlinked")

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Event cancelled successfully", nil))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		writeError(w, h.Logger, "DeleteEvent", &models.ValidationError{Field: "eventID", Message: "must be numeric"})
		return
	}

	if err := h.EventService.DeleteEvent(id); err != nil {
		writeError(w, h.Logger, "DeleteEvent", err)
		return
	}
	h.Logger.LogEvent("DELETE", id, "event deleted")

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateVenue(w http.ResponseWriter, r *http.Request) {
	var venue models.Venue
	if err := json.NewDecoder(r.Body).Decode(&venue); err != nil {
		writeError(w, h.Logger, "CreateVenue", &models.ValidationError{Field: "body", Message: "invalid JSON"})
		return
	}

	if err := h.EventService.CreateVenue(&venue); err != nil {
		writeError(w, h.Logger, "CreateVenue", err)
		return
	}

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Venue created with seats", venue))
}

func (h *Handler) EventsByLocation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "locationID"), 10, 64)
	if err != nil {
		writeError(w, h.Logger, "EventsByLocation", &models.ValidationError{Field: "locationID", Message: "must be numeric"})
		return
	}

	list, err := h.EventService.EventsByLocation(id)
	if err != nil {
		writeError(w, h.Logger, "EventsByLocation", err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Events retrieved", list))
}
