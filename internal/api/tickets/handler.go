package tickets

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tickethub/internal/app/http/middleware"
	"tickethub/internal/domain/events"
	"tickethub/internal/ticketing"
)

type Scanner interface {
	Validate(ctx context.Context, eventID, raw string) (ticketing.Result, error)
	CheckIn(ctx context.Context, eventID, raw, operator string) (ticketing.Result, error)
}

type EventFinder interface {
	FindEvent(ctx context.Context, eventID string) (*events.Event, error)
}

type Handler struct {
	Tickets Scanner
	Events  EventFinder
	Log     *zap.Logger
}

func NewHandler(s Scanner, ev EventFinder, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Tickets: s, Events: ev, Log: log}
}

type validateRequest struct {
	QRData  string `json:"qrData"`
	CheckIn bool   `json:"checkIn"`
}

// POST /events/:id/tickets/validate
//
// A rejected ticket is still a 200: the scanner app reads valid/reason.
func (h *Handler) Validate(c *gin.Context) {
	eventID := c.Param("id")

	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.QRData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "qrData is required"})
		return
	}

	ev, err := h.Events.FindEvent(c.Request.Context(), eventID)
	if errors.Is(err, ticketing.ErrNotFound) {
		c.JSON(http.StatusOK, ticketing.Reject(ticketing.ReasonEventNotFound))
		return
	}
	if err != nil {
		h.Log.Error("event lookup failed", zap.String("event_id", eventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load event"})
		return
	}
	if !middleware.CanAccessOrganization(c, ev.OrganizationID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var res ticketing.Result
	if req.CheckIn {
		res, err = h.Tickets.CheckIn(c.Request.Context(), eventID, req.QRData, c.GetString(middleware.KeyEmail))
	} else {
		res, err = h.Tickets.Validate(c.Request.Context(), eventID, req.QRData)
	}
	if err != nil {
		h.Log.Error("ticket validation failed", zap.String("event_id", eventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate ticket"})
		return
	}
	c.JSON(http.StatusOK, res)
}
