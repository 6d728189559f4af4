package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"weatherhub.app/distributor"
	"weatherhub.app/models"
	"weatherhub.app/pkg/errors"
)

// Chicago is the fallback location when the caller omits coordinates.
const (
	defaultLat = 41.8781
	defaultLon = -87.6298
)

func (s *Server) handleWeather(c *gin.Context) {
	lat, lon, err := parseCoordinates(c)
	if err != nil {
		s.handleError(c, err)
		return
	}

	displayName := c.Query("location")
	timezone := c.Query("timezone")

	obs, err := s.cache.GetOrFetch(c.Request.Context(), lat, lon, displayName, timezone)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, obs)
}

func parseCoordinates(c *gin.Context) (float64, float64, error) {
	lat, lon := defaultLat, defaultLon

	if raw := c.Query("lat"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, 0, errors.NewValidationError("lat must be a number")
		}
		lat = parsed
	}
	if raw := c.Query("lon"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, 0, errors.NewValidationError("lon must be a number")
		}
		lon = parsed
	}

	if lat < -90 || lat > 90 {
		return 0, 0, errors.NewValidationError("lat must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return 0, 0, errors.NewValidationError("lon must be between -180 and 180")
	}
	return lat, lon, nil
}

func (s *Server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.cache.Stats(c.Request.Context()))
}

func (s *Server) handleProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active":    s.failover.Active(),
		"providers": s.failover.Info(),
	})
}

// switchRequest is the provider switch request body.
type switchRequest struct {
	Provider string `json:"provider" binding:"required"`
}

func (s *Server) handleProviderSwitch(c *gin.Context) {
	var req switchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError("provider is required"))
		return
	}

	if err := s.failover.SwitchActive(req.Provider); err != nil {
		s.handleError(c, err)
		return
	}

	// Entries from the previous provider must not outlive the switch.
	s.cache.Clear(c.Request.Context())

	s.distributor.Broadcast(distributor.Event{
		Type:    distributor.EventProviderSwitched,
		Payload: gin.H{"provider": req.Provider},
	})

	slog.Info("active provider switched", "provider", req.Provider)
	c.JSON(http.StatusOK, gin.H{"active": req.Provider})
}

// createSessionRequest registers a poll session subscribed to one
// location. Push clients use the websocket endpoint instead.
type createSessionRequest struct {
	Lat      *float64 `json:"lat" binding:"required"`
	Lon      *float64 `json:"lon" binding:"required"`
	Location string   `json:"location"`
	Timezone string   `json:"timezone"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError("lat and lon are required"))
		return
	}
	if *req.Lat < -90 || *req.Lat > 90 || *req.Lon < -180 || *req.Lon > 180 {
		s.handleError(c, errors.NewValidationError("coordinates out of range"))
		return
	}

	sessionID, _ := s.distributor.Register(distributor.TransportPoll)
	loc := distributor.NewLocation(*req.Lat, *req.Lon, req.Location, req.Timezone)
	s.distributor.Subscribe(c.Request.Context(), sessionID, loc)

	c.JSON(http.StatusCreated, gin.H{"session_id": sessionID})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	s.distributor.Deregister(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// handlePollUpdates drains the poll mailbox for a registered poll
// session: the latest published observation since the previous drain.
func (s *Server) handlePollUpdates(c *gin.Context) {
	obs, ok := s.distributor.PollNext(c.Param("id"))
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, obs)
}

// handleError maps domain errors to HTTP responses. Upstream provider
// details never leak into 5xx bodies.
func (s *Server) handleError(c *gin.Context, err error) {
	switch {
	case errors.IsValidationError(err):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.IsUnknownProvider(err):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.IsAllProvidersFailed(err):
		slog.Error("all providers failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "weather data temporarily unavailable"})
	default:
		slog.Error("internal error", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal server error"})
	}
}
