package events

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"ms-events/internal/models"
	"ms-events/internal/search"
	"ms-events/internal/utils"
)

const PerPage = 10

// newsletter jobs carry at most this many recipients each.
const newsletterChunkSize = 50

var durationPattern = regexp.MustCompile(`^\d{1,2}:\d{1,2}:\d{1,2}$`)

type DBLayer interface {
	ListEvents() ([]*models.Event, error)
	GetEventByID(id int64) (*models.Event, error)
	CreateEventWithVenues(event *models.Event, venues []*models.EventVenue) error
	UpdateEvent(event *models.Event, venues []*models.EventVenue, full bool) error
	HasBookedTickets(eventID int64) (bool, error)
	CancelEvent(eventID int64) error
	DeleteEvent(eventID int64) error
	CreateVenueWithSeats(venue *models.Venue) error
	UpcomingVenuesAtLocation(locationID int64, now time.Time) ([]*models.EventVenue, error)
	MinSeatPrice(venueID int64) (float64, error)
	SubscribedUserIDs() ([]int64, error)
}

type Publisher interface {
	Publish(topic string, key string, value []byte) error
}

// Topics names the Kafka topics the event service publishes to.
type Topics struct {
	EventCreated       string
	EventCancelled     string
	NewsletterDispatch string
}

// EventService owns the admin listing pipeline and the event/venue write
// paths. The listing searches an in-memory snapshot of the collection that
// is reloaded after CacheTTL; writes invalidate it immediately, so the
// staleness window only applies across service instances.
type EventService struct {
	DB       DBLayer
	Kafka    Publisher
	Topics   Topics
	CacheTTL time.Duration
	Logger   *log.Logger

	mu       sync.Mutex
	cached   []*models.Event
	cachedAt time.Time
}

func NewEventService(db DBLayer, kafka Publisher, topics Topics, cacheTTL time.Duration) *EventService {
	return &EventService{
		DB:       db,
		Kafka:    kafka,
		Topics:   topics,
		CacheTTL: cacheTTL,
		Logger:   log.Default(),
	}
}

// ---------------- LISTING ----------------

type ListParams struct {
	SortBy    string
	SortOrder string
	Search    string
	Page      int
	BasePath  string
}

// ListEvents runs the filter+search+sort+paginate pipeline over the loaded
// collection. A reserved status keyword in the search term becomes a status
// filter; otherwise the term is searched via the binary strategy when the
// active sort column permits it, and the linear strategy when not.
func (s *EventService) ListEvents(p ListParams) (*utils.Page[*models.Event], error) {
	loaded, err := s.collection()
	if err != nil {
		return nil, err
	}

	// Work on per-request copies of the event values: the snapshot is
	// shared across requests and status derivation writes to each event.
	events := make([]*models.Event, len(loaded))
	for i, e := range loaded {
		clone := *e
		events[i] = &clone
	}

	now := time.Now()
	for _, e := range events {
		e.Status = e.ComputeStatus(now)
	}

	key := search.ParseSortKey(p.SortBy)
	order := search.ParseSortOrder(p.SortOrder)
	term := strings.TrimSpace(p.Search)

	if status, ok := models.ParseEventStatus(strings.ToLower(term)); ok {
		term = ""
		filtered := events[:0:0]
		for _, e := range events {
			if e.Status == status {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	if term != "" {
		if search.BinaryEligible(key, term) {
			s.Logger.Printf("EVENTS: binary search for %q on sort key %v", term, p.SortBy)
			search.Sort(events, key, order)
			events = search.Binary(events, term, key, order)
		} else {
			s.Logger.Printf("EVENTS: linear search for %q", term)
			events = search.Linear(events, term)
		}
	}

	search.Sort(events, key, order)

	return utils.Paginate(events, p.Page, PerPage, p.BasePath), nil
}

func (s *EventService) collection() ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && time.Since(s.cachedAt) < s.CacheTTL {
		return s.cached, nil
	}

	events, err := s.DB.ListEvents()
	if err != nil {
		return nil, err
	}
	s.cached = events
	s.cachedAt = time.Now()
	return events, nil
}

func (s *EventService) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// GetEvent returns one event with venues and booked-ticket counts.
func (s *EventService) GetEvent(id int64) (*models.Event, error) {
	event, err := s.DB.GetEventByID(id)
	if err != nil {
		return nil, err
	}
	event.Status = event.ComputeStatus(time.Now())
	return event, nil
}

// ---------------- WRITES ----------------

type VenueInput struct {
	LocationID    int64     `json:"location_id"`
	VenueID       int64     `json:"venue_id"`
	StartDatetime time.Time `json:"start_datetime"`
}

type EventInput struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Duration    string       `json:"duration"`
	Thumbnail   string       `json:"thumbnail"`
	CategoryID  int64        `json:"category_id"`
	AdminID     int64        `json:"admin_id"`
	Venues      []VenueInput `json:"venues"`
}

func validateEventInput(in EventInput, venuesRequired bool) error {
	switch {
	case strings.TrimSpace(in.Title) == "" || len(in.Title) > 255:
		return &models.ValidationError{Field: "title", Message: "required, at most 255 characters"}
	case len(strings.TrimSpace(in.Description)) < 10:
		return &models.ValidationError{Field: "description", Message: "required, at least 10 characters"}
	case !durationPattern.MatchString(in.Duration):
		return &models.ValidationError{Field: "duration", Message: "must look like HH:MM:SS"}
	case in.CategoryID <= 0:
		return &models.ValidationError{Field: "category_id", Message: "required"}
	}

	if venuesRequired && len(in.Venues) == 0 {
		return &models.ValidationError{Field: "venues", Message: "at least one venue is required"}
	}
	for i, v := range in.Venues {
		if v.VenueID <= 0 || v.LocationID <= 0 || v.StartDatetime.IsZero() {
			return &models.ValidationError{
				Field:   fmt.Sprintf("venues[%d]", i),
				Message: "venue_id, location_id and start_datetime are required",
			}
		}
	}
	return nil
}

func venueRows(inputs []VenueInput) []*models.EventVenue {
	rows := make([]*models.EventVenue, len(inputs))
	for i, v := range inputs {
		rows[i] = &models.EventVenue{
			VenueID:       v.VenueID,
			LocationID:    v.LocationID,
			StartDatetime: v.StartDatetime,
		}
	}
	return rows
}

// CreateEvent creates the event and all its venue occurrences atomically,
// then fans out newsletter jobs for subscribed users.
func (s *EventService) CreateEvent(in EventInput) (*models.Event, error) {
	if err := validateEventInput(in, true); err != nil {
		return nil, err
	}
	for i, v := range in.Venues {
		if !v.StartDatetime.After(time.Now()) {
			return nil, &models.ValidationError{
				Field:   fmt.Sprintf("venues[%d].start_datetime", i),
				Message: "event date must be in the future",
			}
		}
	}

	event := &models.Event{
		Title:       in.Title,
		Description: in.Description,
		Duration:    in.Duration,
		Thumbnail:   in.Thumbnail,
		CategoryID:  in.CategoryID,
		AdminID:     in.AdminID,
		CreatedAt:   time.Now(),
	}

	if err := s.DB.CreateEventWithVenues(event, venueRows(in.Venues)); err != nil {
		return nil, err
	}
	s.invalidate()

	s.publish(s.Topics.EventCreated, event.ID, event)
	s.dispatchNewsletter(event)

	return event, nil
}

// UpdateEvent applies a full or partial update. Full mode replaces the
// venue set and is refused once any venue has booked tickets.
func (s *EventService) UpdateEvent(id int64, in EventInput, full bool) (*models.Event, error) {
	if err := validateEventInput(in, full); err != nil {
		return nil, err
	}

	if full {
		booked, err := s.DB.HasBookedTickets(id)
		if err != nil {
			return nil, err
		}
		if booked {
			return nil, &models.ValidationError{
				Field:   "mode",
				Message: "event has booked tickets; only a partial update may run",
			}
		}
	}

	event := &models.Event{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Duration:    in.Duration,
		Thumbnail:   in.Thumbnail,
		CategoryID:  in.CategoryID,
	}

	if err := s.DB.UpdateEvent(event, venueRows(in.Venues), full); err != nil {
		return nil, err
	}
	s.invalidate()

	return s.GetEvent(id)
}

// CancelEvent unlinks all venue occurrences. The event row stays and its
// status derives to Cancelled.
func (s *EventService) CancelEvent(id int64) error {
	event, err := s.DB.GetEventByID(id)
	if err != nil {
		return err
	}
	if len(event.Venues) == 0 {
		return &models.ValidationError{Field: "event", Message: "already cancelled or has no venues"}
	}

	if err := s.DB.CancelEvent(id); err != nil {
		return err
	}
	s.invalidate()

	s.publish(s.Topics.EventCancelled, id, event)
	return nil
}

// DeleteEvent removes the event entirely (distinct from cancelling).
func (s *EventService) DeleteEvent(id int64) error {
	if err := s.DB.DeleteEvent(id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// CreateVenue creates a venue and generates its seats.
func (s *EventService) CreateVenue(venue *models.Venue) error {
	if venue.Name == "" || venue.LocationID <= 0 || venue.MaxSeats <= 0 {
		return &models.ValidationError{Field: "venue", Message: "venue_name, location_id and max_seats are required"}
	}
	return s.DB.CreateVenueWithSeats(venue)
}

// LocationEvent is the public listing entry for one event at a location.
type LocationEvent struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Thumbnail     string    `json:"thumbnail"`
	Duration      string    `json:"duration"`
	Category      string    `json:"category"`
	StartDatetime time.Time `json:"start_datetime"`
	LowestPrice   float64   `json:"lowest_price"`
}

// EventsByLocation lists upcoming events at a location, each with its first
// occurrence and the lowest seat price at that occurrence's venue.
func (s *EventService) EventsByLocation(locationID int64) ([]LocationEvent, error) {
	venues, err := s.DB.UpcomingVenuesAtLocation(locationID, time.Now())
	if err != nil {
		return nil, err
	}

	out := []LocationEvent{}
	seen := map[int64]bool{}
	for _, v := range venues {
		if v.Event == nil || seen[v.EventID] {
			continue
		}
		seen[v.EventID] = true

		price, err := s.DB.MinSeatPrice(v.VenueID)
		if err != nil {
			return nil, err
		}

		out = append(out, LocationEvent{
			ID:            v.Event.ID,
			Title:         v.Event.Title,
			Thumbnail:     v.Event.Thumbnail,
			Duration:      v.Event.Duration,
			Category:      v.Event.CategoryName(),
			StartDatetime: v.StartDatetime,
			LowestPrice:   price,
		})
	}
	return out, nil
}

// ---------------- EVENTS OUT ----------------

func (s *EventService) publish(topic string, eventID int64, payload interface{}) {
	if s.Kafka == nil || topic == "" {
		return
	}
	value, err := json.Marshal(payload)
	if err != nil {
		s.Logger.Printf("EVENTS: marshal for topic %s failed: %v", topic, err)
		return
	}
	if err := s.Kafka.Publish(topic, fmt.Sprintf("%d", eventID), value); err != nil {
		s.Logger.Printf("EVENTS: publish to %s failed: %v", topic, err)
	}
}

type newsletterJob struct {
	EventID int64   `json:"event_id"`
	Title   string  `json:"title"`
	UserIDs []int64 `json:"user_ids"`
}

// dispatchNewsletter publishes chunked recipient lists after the event is
// committed. The mail sender consumes the topic; delivery is not our
// concern here.
func (s *EventService) dispatchNewsletter(event *models.Event) {
	if s.Kafka == nil || s.Topics.NewsletterDispatch == "" {
		return
	}

	userIDs, err := s.DB.SubscribedUserIDs()
	if err != nil {
		s.Logger.Printf("EVENTS: loading newsletter subscribers failed: %v", err)
		return
	}

	for start := 0; start < len(userIDs); start += newsletterChunkSize {
		end := start + newsletterChunkSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		job := newsletterJob{EventID: event.ID, Title: event.Title, UserIDs: userIDs[start:end]}
		value, err := json.Marshal(job)
		if err != nil {
			s.Logger.Printf("EVENTS: marshal newsletter job failed: %v", err)
			return
		}
		if err := s.Kafka.Publish(s.Topics.NewsletterDispatch, fmt.Sprintf("%d", event.ID), value); err != nil {
			s.Logger.Printf("EVENTS: newsletter dispatch failed: %v", err)
		}
	}
}
