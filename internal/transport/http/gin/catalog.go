package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/culturetix/internal/service/catalog"
)

const (
	cacheCatalogItem = "public, max-age=60"
	cacheCatalogList = "public, max-age=15"
)

// @Summary  List venues
// @Param    limit  query int false "page size"
// @Param    offset query int false "offset"
// @Success  200 {array} domain.Venue
// @Router   /api/v1/venues [get]
func handleListVenues(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := page(c)
		out, err := d.Catalog.ListVenues(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, cacheCatalogList, true)
	}
}

// @Summary  Get venue
// @Param    id  path  int  true  "Venue ID"
// @Success  200 {object} domain.Venue
// @Failure  404 {object} ErrorResponse
// @Router   /api/v1/venues/{id} [get]
func handleGetVenue(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		v, err := d.Catalog.GetVenue(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, v, cacheCatalogItem, true)
	}
}

// @Summary  Create venue
// @Security BearerAuth
// @Param    req body CreateVenueRequest true "payload"
// @Success  201 {object} domain.Venue
// @Failure  400 {object} ErrorResponse
// @Failure  403 {object} ErrorResponse
// @Router   /api/v1/venues [post]
func handleCreateVenue(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateVenueRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		v, err := d.Catalog.CreateVenue(c.Request.Context(), catalog.VenueInput{
			Name:     req.Name,
			Address:  req.Address,
			Capacity: req.Capacity,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, v)
	}
}

// @Summary  Delete venue
// @Security BearerAuth
// @Param    id  path int true "Venue ID"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "venue has sessions"
// @Router   /api/v1/venues/{id} [delete]
func handleDeleteVenue(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := d.Catalog.DeleteVenue(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List events
// @Param    limit  query int false "page size"
// @Param    offset query int false "offset"
// @Success  200 {array} domain.Event
// @Router   /api/v1/events [get]
func handleListEvents(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := page(c)
		out, err := d.Catalog.ListEvents(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, cacheCatalogList, true)
	}
}

// @Summary  Get event
// @Param    id  path  int  true  "Event ID"
// @Success  200 {object} domain.Event
// @Failure  404 {object} ErrorResponse
// @Router   /api/v1/events/{id} [get]
func handleGetEvent(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		e, err := d.Catalog.GetEvent(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, e, cacheCatalogItem, true)
	}
}

// @Summary  Create event
// @Security BearerAuth
// @Param    req body CreateEventRequest true "payload (dates as YYYY-MM-DD)"
// @Success  201 {object} domain.Event
// @Failure  400 {object} ErrorResponse
// @Router   /api/v1/events [post]
func handleCreateEvent(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindEvent(c)
		if !ok {
			return
		}
		e, err := d.Catalog.CreateEvent(c.Request.Context(), in)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, e)
	}
}

// @Summary  Update event
// @Security BearerAuth
// @Param    id  path int true "Event ID"
// @Param    req body CreateEventRequest true "payload (dates as YYYY-MM-DD)"
// @Success  200 {object} domain.Event
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /api/v1/events/{id} [put]
func handleUpdateEvent(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		in, ok := bindEvent(c)
		if !ok {
			return
		}
		e, err := d.Catalog.UpdateEvent(c.Request.Context(), id, in)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

// @Summary  Delete event
// @Security BearerAuth
// @Param    id  path int true "Event ID"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "event has sessions"
// @Router   /api/v1/events/{id} [delete]
func handleDeleteEvent(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := d.Catalog.DeleteEvent(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func bindEvent(c *gin.Context) (catalog.EventInput, bool) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return catalog.EventInput{}, false
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		badRequest(c, "invalid start_date (YYYY-MM-DD)")
		return catalog.EventInput{}, false
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		badRequest(c, "invalid end_date (YYYY-MM-DD)")
		return catalog.EventInput{}, false
	}
	return catalog.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		StartDate:   start,
		EndDate:     end,
	}, true
}

// @Summary  List sessions of an event
// @Param    id     path  int true  "Event ID"
// @Param    limit  query int false "page size"
// @Param    offset query int false "offset"
// @Success  200 {array} domain.Session
// @Failure  404 {object} ErrorResponse
// @Router   /api/v1/events/{id}/sessions [get]
func handleListEventSessions(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		limit, offset := page(c)
		out, err := d.Catalog.ListEventSessions(c.Request.Context(), id, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, cacheCatalogList, true)
	}
}

// @Summary  List sessions
// @Param    limit  query int false "page size"
// @Param    offset query int false "offset"
// @Success  200 {array} domain.Session
// @Router   /api/v1/sessions [get]
func handleListSessions(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := page(c)
		out, err := d.Catalog.ListSessions(c.Request.Context(), 0, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, cacheCatalogList, true)
	}
}

// @Summary  Get session
// @Param    id  path  int  true  "Session ID"
// @Success  200 {object} domain.Session
// @Failure  404 {object} ErrorResponse
// @Router   /api/v1/sessions/{id} [get]
func handleGetSession(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		s, err := d.Catalog.GetSession(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, s, cacheCatalogItem, true)
	}
}

// @Summary  Create session
// @Security BearerAuth
// @Param    req body SessionRequest true "payload (starts_at as RFC3339)"
// @Success  201 {object} domain.Session
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse "event or venue not found"
// @Router   /api/v1/sessions [post]
func handleCreateSession(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindSession(c)
		if !ok {
			return
		}
		s, err := d.Catalog.CreateSession(c.Request.Context(), in)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, s)
	}
}

// @Summary  Update session
// @Security BearerAuth
// @Param    id  path int true "Session ID"
// @Param    req body SessionRequest true "payload (starts_at as RFC3339)"
// @Success  200 {object} domain.Session
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /api/v1/sessions/{id} [put]
func handleUpdateSession(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		in, ok := bindSession(c)
		if !ok {
			return
		}
		s, err := d.Catalog.UpdateSession(c.Request.Context(), id, in)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// @Summary  Delete session
// @Security BearerAuth
// @Param    id  path int true "Session ID"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "session has reservations"
// @Router   /api/v1/sessions/{id} [delete]
func handleDeleteSession(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := d.Catalog.DeleteSession(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func bindSession(c *gin.Context) (catalog.SessionInput, bool) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return catalog.SessionInput{}, false
	}
	startsAt, err := parseRFC3339(req.StartsAt)
	if err != nil {
		badRequest(c, "invalid starts_at (RFC3339)")
		return catalog.SessionInput{}, false
	}
	return catalog.SessionInput{
		EventID:    req.EventID,
		VenueID:    req.VenueID,
		StartsAt:   startsAt,
		PriceCents: *req.PriceCents,
	}, true
}
