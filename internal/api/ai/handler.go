package ai

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tickethub/internal/app/http/middleware"
	aiinfra "tickethub/internal/infra/ai"
)

type Writer interface {
	EventDescription(ctx context.Context, b aiinfra.Brief) (string, error)
	Announcement(ctx context.Context, b aiinfra.Brief) (string, error)
}

type Handler struct {
	AI  Writer
	Log *zap.Logger
}

func NewHandler(w Writer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{AI: w, Log: log}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, aiinfra.ErrEmptyBrief):
		return http.StatusBadRequest
	case errors.Is(err, aiinfra.ErrNotConfigured):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) generate(c *gin.Context, kind string, fn func(context.Context, aiinfra.Brief) (string, error)) {
	var brief aiinfra.Brief
	if err := c.ShouldBindJSON(&brief); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	text, err := fn(c.Request.Context(), brief)
	if err != nil {
		h.Log.Warn("ai generation failed", zap.String("kind", kind), zap.String("org_id", middleware.OrgID(c)), zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": text})
}

// POST /ai/event-description
func (h *Handler) EventDescription(c *gin.Context) {
	h.generate(c, "event_description", h.AI.EventDescription)
}

// POST /ai/announcement
func (h *Handler) Announcement(c *gin.Context) {
	h.generate(c, "announcement", h.AI.Announcement)
}
