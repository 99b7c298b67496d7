package redisrepo

import "fmt"

const ns = "culturetix:v1"

func KeyVenue(venueID int64) string {
	return fmt.Sprintf("%s:venue:%d", ns, venueID)
}

func KeyEvent(eventID int64) string {
	return fmt.Sprintf("%s:event:%d", ns, eventID)
}

func KeySession(sessionID int64) string {
	return fmt.Sprintf("%s:session:%d", ns, sessionID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

// KeyIdemBooking scopes an Idempotency-Key to the caller that sent it.
func KeyIdemBooking(subject, idemKey string) string {
	return fmt.Sprintf("%s:idem:booking:%s:%s", ns, subject, idemKey)
}

func ChannelCatalogChanged() string {
	return ns + ":catalog:changed"
}

func ChannelReservationChanged() string {
	return ns + ":reservations:changed"
}
