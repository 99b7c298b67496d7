package httpgin

import "time"

type BookRequest struct {
	SessionID     int64  `json:"session_id" binding:"required,gt=0"`
	CustomerName  string `json:"customer_name" binding:"required,max=120"`
	CustomerEmail string `json:"customer_email" binding:"required,email,max=160"`
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
}

type CreateVenueRequest struct {
	Name     string `json:"name" binding:"required,max=120"`
	Address  string `json:"address" binding:"max=200"`
	Capacity int    `json:"capacity" binding:"required,gt=0"`
}

type CreateEventRequest struct {
	Title       string `json:"title" binding:"required,max=140"`
	Description string `json:"description" binding:"max=600"`
	Category    string `json:"category" binding:"max=80"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
}

type SessionRequest struct {
	EventID    int64  `json:"event_id" binding:"required,gt=0"`
	VenueID    int64  `json:"venue_id" binding:"required,gt=0"`
	StartsAt   string `json:"starts_at" binding:"required"`
	PriceCents *int64 `json:"price_cents" binding:"required,gte=0"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// InsufficientAvailabilityResponse carries the seats left when a booking
// was rejected.
type InsufficientAvailabilityResponse struct {
	Error     string `json:"error"`
	Available int64  `json:"available"`
}

const dateLayout = "2006-01-02"

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return parseRFC3339(s)
}
