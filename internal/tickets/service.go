package tickets

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ms-events/internal/models"
	"ms-events/internal/utils"
)

type DBLayer interface {
	CreateTicket(ticket *models.Ticket, seatIDs []int64) error
	GetTicketByID(id string) (*models.Ticket, error)
	GetTicketsByUser(userID int64) ([]*models.Ticket, error)
	EventVenueExists(id int64) (bool, error)
	UpdateTicketQR(id string, qrPNG []byte) error
	SeatMapForVenue(venueID int64) ([]*models.Seat, error)
	BookedTicketsForPastVenues(now time.Time) ([]*models.Ticket, error)
	ExpireTicket(id string) (bool, error)
	CancelTicket(id string) (bool, error)
}

// SeatLocker holds seats at selection time. The hold is advisory: the
// database transaction re-checks seat state at commit and stays the
// authority on conflicts.
type SeatLocker interface {
	HoldSeats(seatIDs []int64, ticketID string) (bool, error)
	ReleaseHolds(seatIDs []int64, ticketID string) error
}

type Publisher interface {
	Publish(topic string, key string, value []byte) error
}

type QREncoder interface {
	EncryptedTicketQR(ticket models.Ticket) ([]byte, error)
}

type Topics struct {
	TicketBooked    string
	TicketExpired   string
	TicketCancelled string
}

type TicketService struct {
	DB     DBLayer
	Locks  SeatLocker
	Kafka  Publisher
	QR     QREncoder
	Topics Topics
	Logger *log.Logger
}

func NewTicketService(db DBLayer, locks SeatLocker, kafka Publisher, qr QREncoder, topics Topics) *TicketService {
	return &TicketService{
		DB:     db,
		Locks:  locks,
		Kafka:  kafka,
		QR:     qr,
		Topics: topics,
		Logger: log.Default(),
	}
}

// BookTicket reserves the selected seats for one event occurrence. Seats
// are held in Redis first so concurrent pickers fail fast, then the
// database transaction re-checks and commits ticket, links and seat flags
// together. Either everything lands or nothing does.
func (s *TicketService) BookTicket(req models.BookingRequest) (*models.Ticket, error) {
	if req.UserID <= 0 || req.EventVenueID <= 0 || len(req.SeatIDs) == 0 {
		return nil, &models.ValidationError{Field: "booking", Message: "user_id, event_venue_id and seat_ids are required"}
	}
	seen := make(map[int64]bool, len(req.SeatIDs))
	for _, id := range req.SeatIDs {
		if seen[id] {
			return nil, &models.ValidationError{Field: "seat_ids", Message: fmt.Sprintf("seat %d selected twice", id)}
		}
		seen[id] = true
	}

	exists, err := s.DB.EventVenueExists(req.EventVenueID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.ErrNotFound
	}

	ticketID := uuid.NewString()

	if s.Locks != nil {
		ok, err := s.Locks.HoldSeats(req.SeatIDs, ticketID)
		if err != nil {
			return nil, fmt.Errorf("seat hold error: %w", err)
		}
		if !ok {
			return nil, &models.SeatConflictError{SeatIDs: req.SeatIDs}
		}
	}

	ticket := &models.Ticket{
		ID:           ticketID,
		UserID:       req.UserID,
		EventVenueID: req.EventVenueID,
		Code:         utils.GenerateTicketCode(),
		Status:       models.TicketBooked,
		CreatedAt:    time.Now(),
	}

	if err := s.DB.CreateTicket(ticket, req.SeatIDs); err != nil {
		if s.Locks != nil {
			_ = s.Locks.ReleaseHolds(req.SeatIDs, ticketID)
		}
		return nil, err
	}

	if s.QR != nil {
		qrPNG, err := s.QR.EncryptedTicketQR(*ticket)
		if err != nil {
			s.Logger.Printf("TICKETS: QR generation failed for %s: %v", ticket.ID, err)
		} else if err := s.DB.UpdateTicketQR(ticket.ID, qrPNG); err != nil {
			s.Logger.Printf("TICKETS: storing QR failed for %s: %v", ticket.ID, err)
		} else {
			ticket.QRCode = qrPNG
		}
	}

	s.publish(s.Topics.TicketBooked, ticket)

	return ticket, nil
}

func (s *TicketService) GetTicket(id string) (*models.Ticket, error) {
	return s.DB.GetTicketByID(id)
}

func (s *TicketService) TicketsByUser(userID int64) ([]*models.Ticket, error) {
	return s.DB.GetTicketsByUser(userID)
}

// SeatMap returns the venue's seats so a caller that hit a SeatConflict can
// re-fetch and retry its selection.
func (s *TicketService) SeatMap(venueID int64) ([]*models.Seat, error) {
	return s.DB.SeatMapForVenue(venueID)
}

// CancelTicket releases the ticket's seats under the same contract as
// expiry. Cancelling a ticket that is not booked is a no-op.
func (s *TicketService) CancelTicket(id string) error {
	ticket, err := s.DB.GetTicketByID(id)
	if err != nil {
		return err
	}

	transitioned, err := s.DB.CancelTicket(id)
	if err != nil {
		return err
	}
	if transitioned {
		ticket.Status = models.TicketCancelled
		s.publish(s.Topics.TicketCancelled, ticket)
	}
	return nil
}

// ExpireTicketsForPastEvents transitions booked tickets of past occurrences
// to expired and frees their seats. Each ticket runs in its own transaction
// so one failure is logged and skipped, never fatal to the sweep. Safe to
// re-run: already-expired tickets are not selected.
func (s *TicketService) ExpireTicketsForPastEvents(now time.Time) (int, error) {
	due, err := s.DB.BookedTicketsForPastVenues(now)
	if err != nil {
		return 0, fmt.Errorf("loading expirable tickets: %w", err)
	}

	count := 0
	for _, ticket := range due {
		transitioned, err := s.DB.ExpireTicket(ticket.ID)
		if err != nil {
			s.Logger.Printf("SWEEP: expiring ticket %s failed: %v", ticket.ID, err)
			continue
		}
		if !transitioned {
			continue
		}
		count++
		ticket.Status = models.TicketExpired
		s.publish(s.Topics.TicketExpired, ticket)
	}

	s.Logger.Printf("SWEEP: expired %d of %d due tickets", count, len(due))
	return count, nil
}

func (s *TicketService) publish(topic string, ticket *models.Ticket) {
	if s.Kafka == nil || topic == "" {
		return
	}
	payload := struct {
		ID           string  `json:"id"`
		UserID       int64   `json:"user_id"`
		EventVenueID int64   `json:"event_venue_id"`
		Status       string  `json:"status"`
		TotalPrice   float64 `json:"total_price"`
	}{ticket.ID, ticket.UserID, ticket.EventVenueID, ticket.Status, ticket.TotalPrice}

	value, err := json.Marshal(payload)
	if err != nil {
		s.Logger.Printf("TICKETS: marshal for topic %s failed: %v", topic, err)
		return
	}
	if err := s.Kafka.Publish(topic, ticket.ID, value); err != nil {
		s.Logger.Printf("TICKETS: publish to %s failed: %v", topic, err)
	}
}
