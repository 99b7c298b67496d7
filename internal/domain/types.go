package domain

import (
	"time"

	"github.com/google/uuid"
)

type Venue struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Capacity int    `json:"capacity"`
}

type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// Session is one scheduled occurrence of an Event at a Venue. It carries no
// capacity of its own; booking always reads the venue's.
type Session struct {
	ID         int64     `json:"id"`
	EventID    int64     `json:"event_id"`
	VenueID    int64     `json:"venue_id"`
	StartsAt   time.Time `json:"starts_at"`
	PriceCents int64     `json:"price_cents"`
}

// SessionCapacity is the slice of a session the reservation engine needs:
// its identity and the current capacity of its venue.
type SessionCapacity struct {
	SessionID int64
	VenueID   int64
	Capacity  int64
}

type Availability struct {
	SessionID      int64 `json:"session_id"`
	Capacity       int64 `json:"capacity"`
	ReservedActive int64 `json:"reserved_active"`
	Available      int64 `json:"available"`
}

// NewAvailability derives availability from capacity and the active reserved
// count. Available is floored at zero.
func NewAvailability(sessionID, capacity, reservedActive int64) Availability {
	available := capacity - reservedActive
	if available < 0 {
		available = 0
	}

	return Availability{
		SessionID:      sessionID,
		Capacity:       capacity,
		ReservedActive: reservedActive,
		Available:      available,
	}
}

type ReservationStatus string

const (
	ReservationActive   ReservationStatus = "ACTIVE"
	ReservationCanceled ReservationStatus = "CANCELED"
)

func (s ReservationStatus) Valid() bool {
	return s == ReservationActive || s == ReservationCanceled
}

type Reservation struct {
	ID            int64             `json:"id"`
	SessionID     int64             `json:"session_id"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	Quantity      int               `json:"quantity"`
	Status        ReservationStatus `json:"status"`
	TicketCode    uuid.UUID         `json:"ticket_code"`
	CreatedAt     time.Time         `json:"created_at"`
}
