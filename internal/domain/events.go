package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChangeType string

const (
	ChangeReservationCreated  ChangeType = "reservation.created"
	ChangeReservationCanceled ChangeType = "reservation.canceled"
)

// ReservationChange is published after a booking or cancellation commits.
type ReservationChange struct {
	Type          ChangeType `json:"type"`
	ReservationID int64      `json:"reservation_id"`
	SessionID     int64      `json:"session_id"`
	Quantity      int        `json:"quantity"`
	TicketCode    uuid.UUID  `json:"ticket_code"`
	CustomerEmail string     `json:"customer_email"`
	At            time.Time  `json:"at"`
}

func NewReservationChange(t ChangeType, r Reservation, at time.Time) ReservationChange {
	return ReservationChange{
		Type:          t,
		ReservationID: r.ID,
		SessionID:     r.SessionID,
		Quantity:      r.Quantity,
		TicketCode:    r.TicketCode,
		CustomerEmail: r.CustomerEmail,
		At:            at,
	}
}

type CatalogEntity string

const (
	CatalogVenue   CatalogEntity = "venue"
	CatalogEvent   CatalogEntity = "event"
	CatalogSession CatalogEntity = "session"
)

// CatalogChange tells other instances to drop their cached copy of one
// catalog entity.
type CatalogChange struct {
	Entity CatalogEntity `json:"entity"`
	ID     int64         `json:"id"`
}
