package httpgin

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kirinyoku/culturetix/internal/auth"
	redisrepo "github.com/kirinyoku/culturetix/internal/repository/redis"
	"github.com/kirinyoku/culturetix/internal/service/reservation"
)

const idemLockTTL = 60 * time.Second

// @Summary  Book seats (idempotent)
// @Security BearerAuth
// @Param    Idempotency-Key header string false "replays the first response for the same key"
// @Param    req body BookRequest true "payload"
// @Success  201 {object} domain.Reservation
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse "session not found"
// @Failure  409 {object} InsufficientAvailabilityResponse "not enough seats / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Failure  503 {object} ErrorResponse "contention, retry"
// @Router   /api/v1/reservations [post]
func handleBook(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if d.Idem != nil && idemKey != "" {
			subject := "anonymous"
			if claims, ok := claimsFrom(c); ok {
				subject = claims.Subject
			}
			idemStorageKey = redisrepo.KeyIdemBooking(subject, idemKey)

			if replayed := replay(c, d.Idem, idemStorageKey, idemKey); replayed {
				return
			}

			locked, err := d.Idem.AcquireLock(ctx, idemStorageKey, idemLockTTL)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if replayed := replay(c, d.Idem, idemStorageKey, idemKey); replayed {
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		res, err := d.Reservations.Book(ctx, reservation.BookInput{
			SessionID:     req.SessionID,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			Quantity:      req.Quantity,
		})
		if err != nil {
			if idemStorageKey != "" {
				_ = d.Idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" {
			if b, err := json.Marshal(res); err == nil {
				_ = d.Idem.SaveResult(ctx, idemStorageKey, redisrepo.StoredResponse{
					Status: http.StatusCreated,
					Body:   b,
				})
			}
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, res)
	}
}

func replay(c *gin.Context, idem Idempotency, storageKey, idemKey string) bool {
	stored, ok, err := idem.GetResult(c.Request.Context(), storageKey)
	if err != nil || !ok {
		return false
	}

	c.Header("Idempotency-Key", idemKey)
	c.Header("Idempotent-Replayed", "true")
	c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)

	return true
}

// @Summary  List reservations by customer email, or all of them for admins
// @Security BearerAuth
// @Param    email  query string false "customer email"
// @Param    limit  query int    false "page size"
// @Param    offset query int    false "offset"
// @Success  200 {array} domain.Reservation
// @Failure  400 {object} ErrorResponse "email missing or blank and caller is not an admin"
// @Router   /api/v1/reservations [get]
func handleListReservations(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		// A blank email is no filter at all.
		if email := strings.TrimSpace(c.Query("email")); email != "" {
			out, err := d.Reservations.ListByCustomerEmail(c.Request.Context(), email)
			if err != nil {
				respondErr(c, err)
				return
			}
			c.JSON(http.StatusOK, out)
			return
		}

		claims, _ := claimsFrom(c)
		if claims == nil || !hasRole(claims, auth.RoleAdmin) {
			badRequest(c, "email is required")
			return
		}

		limit, offset := page(c)
		out, err := d.Reservations.List(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Get reservation
// @Security BearerAuth
// @Param    id  path  int  true  "Reservation ID"
// @Success  200 {object} domain.Reservation
// @Failure  404 {object} ErrorResponse
// @Router   /api/v1/reservations/{id} [get]
func handleGetReservation(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		res, err := d.Reservations.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary  Cancel reservation
// @Security BearerAuth
// @Param    id  path  int  true  "Reservation ID"
// @Success  200 {object} domain.Reservation
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "already canceled"
// @Router   /api/v1/reservations/{id}/cancel [post]
func handleCancel(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		res, err := d.Reservations.Cancel(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary  Look up a reservation by ticket code
// @Security BearerAuth
// @Param    code  path  string  true  "Ticket code (uuid)"
// @Success  200 {object} domain.Reservation
// @Failure  404 {object} ErrorResponse
// @Router   /api/v1/tickets/{code} [get]
func handleGetTicket(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		code, err := uuid.Parse(c.Param("code"))
		if err != nil {
			// Anything that is not a UUID cannot have been issued.
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
			return
		}
		res, err := d.Reservations.GetByTicketCode(c.Request.Context(), code)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary  Session availability
// @Param    id  path  int  true  "Session ID"
// @Success  200 {object} domain.Availability
// @Failure  404 {object} ErrorResponse
// @Router   /api/v1/sessions/{id}/availability [get]
func handleAvailability(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		a, err := d.Reservations.Availability(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, a)
	}
}
