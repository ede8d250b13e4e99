package events

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tickethub/internal/app/http/middleware"
	"tickethub/internal/domain/access"
	"tickethub/internal/domain/events"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/plans"
	"tickethub/internal/domain/registrations"
	"tickethub/internal/notify"
)

type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type Notifier interface {
	NotifyEventCancelled(ctx context.Context, in notify.EventNotice) (notify.NoticeResult, error)
}

type Handler struct {
	DB      *gorm.DB
	Store   ObjectStore
	Notify  Notifier
	Catalog plans.Catalog
	Log     *zap.Logger
	now     func() time.Time
}

// NewHandler wires the events API. store may be nil when object storage is
// not configured; uploads then fail and OG images use the plain background.
func NewHandler(db *gorm.DB, store ObjectStore, n Notifier, catalog plans.Catalog, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{DB: db, Store: store, Notify: n, Catalog: catalog, Log: log, now: time.Now}
}

type eventRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Venue       string     `json:"venue"`
	StartsAt    *time.Time `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
	Capacity    *int       `json:"capacity"`
}

var (
	errTitleRequired  = errors.New("title is required")
	errStartRequired  = errors.New("startsAt is required")
	errEndBeforeStart = errors.New("endsAt must be after startsAt")
	errBadCapacity    = errors.New("capacity cannot be negative")
	errCapacityLimit  = errors.New("capacity exceeds your plan's attendee limit")
	errEventLimit     = errors.New("event limit reached for your plan")
	errEventCancelled = errors.New("event has been cancelled")
)

// apply copies the request onto ev. Fields left out of the request keep
// their value.
func (r eventRequest) apply(ev *events.Event) error {
	if r.Title != "" {
		ev.Title = strings.TrimSpace(r.Title)
	}
	if r.Description != "" {
		ev.Description = r.Description
	}
	if r.Venue != "" {
		ev.Venue = strings.TrimSpace(r.Venue)
	}
	if r.StartsAt != nil {
		ev.StartsAt = r.StartsAt.UTC()
	}
	if r.EndsAt != nil {
		end := r.EndsAt.UTC()
		ev.EndsAt = &end
	}
	if r.Capacity != nil {
		ev.Capacity = *r.Capacity
	}

	switch {
	case ev.Title == "":
		return errTitleRequired
	case ev.StartsAt.IsZero():
		return errStartRequired
	case ev.EndsAt != nil && ev.EndsAt.Before(ev.StartsAt):
		return errEndBeforeStart
	case ev.Capacity < 0:
		return errBadCapacity
	}
	return nil
}

// effectiveCapacity fits a requested capacity (0 = unlimited) inside the
// plan's per-event attendee limit (0 = unlimited).
func effectiveCapacity(requested, limit int) (int, error) {
	if limit <= 0 {
		return requested, nil
	}
	if requested == 0 {
		return limit, nil
	}
	if requested > limit {
		return 0, errCapacityLimit
	}
	return requested, nil
}

func (h *Handler) policy(c *gin.Context) (access.Policy, bool) {
	var org organizations.Organization
	if err := h.DB.WithContext(c.Request.Context()).First(&org, "id = ?", middleware.OrgID(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return access.Policy{}, false
	}
	return access.ComputePolicy(h.now(), org, h.Catalog), true
}

// load fetches an event the caller's organization owns.
func (h *Handler) load(c *gin.Context) (events.Event, bool) {
	var ev events.Event
	err := h.DB.WithContext(c.Request.Context()).First(&ev, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return ev, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load event"})
		return ev, false
	}
	if !middleware.CanAccessOrganization(c, ev.OrganizationID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return ev, false
	}
	return ev, true
}

// GET /events
func (h *Handler) List(c *gin.Context) {
	var list []events.Event
	q := h.DB.WithContext(c.Request.Context()).Where("organization_id = ?", middleware.OrgID(c))
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("starts_at ASC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load events"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /events/:id
func (h *Handler) Get(c *gin.Context) {
	ev, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ev)
}

// GET /public/events/:id
func (h *Handler) GetPublic(c *gin.Context) {
	var ev events.Event
	if err := h.DB.WithContext(c.Request.Context()).First(&ev, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	c.JSON(http.StatusOK, ev)
}

// POST /events
func (h *Handler) Create(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	ev := events.Event{
		ID:             uuid.NewString(),
		OrganizationID: middleware.OrgID(c),
		Status:         events.StatusPublished,
	}
	if err := req.apply(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy, ok := h.policy(c)
	if !ok {
		return
	}
	capacity, err := effectiveCapacity(ev.Capacity, policy.Limits.MaxAttendeesPerEvent)
	if err != nil {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
		return
	}
	ev.Capacity = capacity

	if max := policy.Limits.MaxEvents; max > 0 {
		var count int64
		h.DB.WithContext(c.Request.Context()).Model(&events.Event{}).
			Where("organization_id = ? AND status <> ?", ev.OrganizationID, events.StatusCancelled).
			Count(&count)
		if count >= int64(max) {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": errEventLimit.Error(), "limit": max})
			return
		}
	}

	if err := h.DB.WithContext(c.Request.Context()).Create(&ev).Error; err != nil {
		h.Log.Error("create event failed", zap.String("org_id", ev.OrganizationID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create event"})
		return
	}
	c.JSON(http.StatusCreated, ev)
}

// PUT /events/:id
func (h *Handler) Update(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	ev, ok := h.load(c)
	if !ok {
		return
	}
	if ev.IsCancelled() {
		c.JSON(http.StatusConflict, gin.H{"error": errEventCancelled.Error()})
		return
	}
	if err := req.apply(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Capacity != nil {
		policy, ok := h.policy(c)
		if !ok {
			return
		}
		capacity, err := effectiveCapacity(ev.Capacity, policy.Limits.MaxAttendeesPerEvent)
		if err != nil {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
			return
		}
		ev.Capacity = capacity
	}

	if err := h.DB.WithContext(c.Request.Context()).Save(&ev).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update event"})
		return
	}
	c.JSON(http.StatusOK, ev)
}

type cancelRequest struct {
	Message string `json:"message"`
	SMS     bool   `json:"sms"`
}

// POST /events/:id/cancel
//
// Attendees are told by email (and SMS when asked and the plan allows it).
// Notification failures do not undo the cancellation.
func (h *Handler) Cancel(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}
	}
	ev, ok := h.load(c)
	if !ok {
		return
	}
	if ev.IsCancelled() {
		c.JSON(http.StatusConflict, gin.H{"error": errEventCancelled.Error()})
		return
	}

	if req.SMS {
		policy, ok := h.policy(c)
		if !ok {
			return
		}
		req.SMS = policy.Allows(plans.FeatureSMS)
	}

	ev.Status = events.StatusCancelled
	if err := h.DB.WithContext(c.Request.Context()).Model(&ev).Update("status", events.StatusCancelled).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel event"})
		return
	}

	resp := gin.H{"event": ev}
	notice, err := h.Notify.NotifyEventCancelled(c.Request.Context(), notify.EventNotice{Event: ev, Message: req.Message, SMS: req.SMS})
	if err != nil {
		h.Log.Warn("cancellation notice failed", zap.String("event_id", ev.ID), zap.Error(err))
		resp["notificationError"] = err.Error()
	} else {
		resp["notifications"] = notice
	}
	c.JSON(http.StatusOK, resp)
}

// DELETE /events/:id
//
// Only events nobody registered for can be deleted; others are cancelled.
func (h *Handler) Delete(c *gin.Context) {
	ev, ok := h.load(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var web, mobile int64
	h.DB.WithContext(ctx).Model(&registrations.Booking{}).Where("event_id = ?", ev.ID).Count(&web)
	h.DB.WithContext(ctx).Model(&registrations.RSVP{}).Where("event_id = ?", ev.ID).Count(&mobile)
	if web+mobile > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Event has registrations; cancel it instead"})
		return
	}

	if err := h.DB.WithContext(ctx).Delete(&ev).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete event"})
		return
	}
	if ev.ImageKey != "" && h.Store != nil {
		if err := h.Store.Delete(ctx, ev.ImageKey); err != nil {
			h.Log.Warn("cover image delete failed", zap.String("key", ev.ImageKey), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
}

type attendee struct {
	registrations.Registration
	Source registrations.Source `json:"source"`
}

func (h *Handler) attendees(ctx context.Context, eventID string) ([]attendee, error) {
	out := []attendee{}
	for _, src := range []registrations.Source{registrations.SourceWeb, registrations.SourceMobile} {
		var rows []registrations.Registration
		if err := h.DB.WithContext(ctx).Table(string(src)).
			Where("event_id = ?", eventID).
			Order("created_at ASC").
			Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, attendee{Registration: r, Source: src})
		}
	}
	return out, nil
}

// GET /events/:id/attendees
func (h *Handler) Attendees(c *gin.Context) {
	ev, ok := h.load(c)
	if !ok {
		return
	}
	out, err := h.attendees(c.Request.Context(), ev.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load attendees"})
		return
	}
	c.JSON(http.StatusOK, out)
}
