package bookings

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tickethub/internal/app/http/middleware"
	"tickethub/internal/domain/access"
	"tickethub/internal/domain/events"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/plans"
	"tickethub/internal/domain/registrations"
	"tickethub/internal/domain/users"
	"tickethub/internal/notify"
	"tickethub/internal/ticketing"
)

type TicketMailer interface {
	SendTicket(ctx context.Context, in notify.Ticket) error
}

type Handler struct {
	DB      *gorm.DB
	Mail    TicketMailer
	Catalog plans.Catalog
	Log     *zap.Logger
	now     func() time.Time
}

func NewHandler(db *gorm.DB, mail TicketMailer, catalog plans.Catalog, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{DB: db, Mail: mail, Catalog: catalog, Log: log, now: time.Now}
}

var (
	errEventNotFound     = errors.New("event not found")
	errEventCancelled    = errors.New("event has been cancelled")
	errEventFull         = errors.New("event is full")
	errAlreadyRegistered = errors.New("this email is already registered for the event")
	errInvalidAttendee   = errors.New("name and a valid email are required")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// hasRoom applies the event capacity and the organization's plan limit,
// either of which may be 0 for unlimited.
func hasRoom(capacity, planLimit int, confirmed int64) bool {
	limit := capacity
	if planLimit > 0 && (limit == 0 || planLimit < limit) {
		limit = planLimit
	}
	return limit == 0 || confirmed < int64(limit)
}

type registrationResponse struct {
	Registration registrations.Registration `json:"registration"`
	Source       registrations.Source       `json:"source"`
	QRData       string                     `json:"qrData"`
	EmailSent    bool                       `json:"emailSent"`
}

// register stores a confirmed registration. The event row is locked so
// concurrent sign-ups cannot overshoot capacity.
func (h *Handler) register(ctx context.Context, src registrations.Source, eventID string, reg registrations.Registration) (registrations.Registration, events.Event, error) {
	var ev events.Event
	err := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ev, "id = ?", eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errEventNotFound
			}
			return err
		}
		if ev.IsCancelled() {
			return errEventCancelled
		}

		var dup int64
		if err := tx.Table(string(src)).
			Where("event_id = ? AND LOWER(email) = ? AND status = ?", ev.ID, strings.ToLower(reg.Email), registrations.StatusConfirmed).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return errAlreadyRegistered
		}

		var confirmed int64
		for _, s := range []registrations.Source{registrations.SourceWeb, registrations.SourceMobile} {
			var n int64
			if err := tx.Table(string(s)).Where("event_id = ? AND status = ?", ev.ID, registrations.StatusConfirmed).Count(&n).Error; err != nil {
				return err
			}
			confirmed += n
		}

		var org organizations.Organization
		if err := tx.First(&org, "id = ?", ev.OrganizationID).Error; err != nil {
			return err
		}
		policy := access.ComputePolicy(h.now(), org, h.Catalog)
		if !hasRoom(ev.Capacity, policy.Limits.MaxAttendeesPerEvent, confirmed) {
			return errEventFull
		}

		reg.ID = uuid.NewString()
		reg.EventID = ev.ID
		reg.Status = registrations.StatusConfirmed
		reg.TicketID = ticketing.GenerateTicketID()
		if src == registrations.SourceMobile {
			row := registrations.RSVP{Registration: reg}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			reg = row.Registration
		} else {
			row := registrations.Booking{Registration: reg}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			reg = row.Registration
		}
		return nil
	})
	return reg, ev, err
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidAttendee):
		return http.StatusBadRequest
	case errors.Is(err, errEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, errEventCancelled),
		errors.Is(err, errEventFull),
		errors.Is(err, errAlreadyRegistered):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respond(c *gin.Context, src registrations.Source, eventID string, reg registrations.Registration) {
	ctx := c.Request.Context()
	reg, ev, err := h.register(ctx, src, eventID, reg)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.Log.Error("registration failed", zap.String("event_id", eventID), zap.String("source", string(src)), zap.Error(err))
			c.JSON(status, gin.H{"error": "Failed to register"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	qr, err := ticketing.EncodePayload(reg.ID, reg.EventID, reg.TicketID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build ticket"})
		return
	}

	sent := true
	if err := h.Mail.SendTicket(ctx, notify.Ticket{To: reg.Email, Name: reg.Name, Event: ev, TicketID: reg.TicketID, QRPayload: qr}); err != nil {
		sent = false
		h.Log.Warn("ticket email failed", zap.String("ticket_id", reg.TicketID), zap.Error(err))
	}

	c.JSON(http.StatusCreated, registrationResponse{Registration: reg, Source: src, QRData: qr, EmailSent: sent})
}

type bookingRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (r bookingRequest) registration() (registrations.Registration, error) {
	name := strings.TrimSpace(r.Name)
	email := strings.ToLower(strings.TrimSpace(r.Email))
	if name == "" || !emailPattern.MatchString(email) {
		return registrations.Registration{}, errInvalidAttendee
	}
	return registrations.Registration{Name: name, Email: email, Phone: strings.TrimSpace(r.Phone)}, nil
}

// POST /events/:id/bookings
func (h *Handler) Book(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	reg, err := req.registration()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c, registrations.SourceWeb, c.Param("id"), reg)
}

type rsvpRequest struct {
	Phone string `json:"phone"`
}

// POST /events/:id/rsvps
func (h *Handler) RSVP(c *gin.Context) {
	var req rsvpRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}
	}

	var user users.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, middleware.UserID(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	userID := user.ID
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		phone = user.Tel
	}
	reg := registrations.Registration{
		UserID: &userID,
		Name:   strings.TrimSpace(user.Name + " " + user.Lastname),
		Email:  user.Email,
		Phone:  phone,
	}
	h.respond(c, registrations.SourceMobile, c.Param("id"), reg)
}

// find loads a registration by id from either table.
func (h *Handler) find(ctx context.Context, id string) (registrations.Registration, registrations.Source, error) {
	for _, src := range []registrations.Source{registrations.SourceWeb, registrations.SourceMobile} {
		var reg registrations.Registration
		err := h.DB.WithContext(ctx).Table(string(src)).Where("id = ?", id).First(&reg).Error
		if err == nil {
			return reg, src, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return reg, src, err
		}
	}
	return registrations.Registration{}, "", gorm.ErrRecordNotFound
}

// POST /bookings/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()
	reg, src, err := h.find(ctx, c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load booking"})
		return
	}

	owner := reg.UserID != nil && *reg.UserID == middleware.UserID(c)
	if !owner {
		var ev events.Event
		if err := h.DB.WithContext(ctx).Select("id", "organization_id").First(&ev, "id = ?", reg.EventID).Error; err != nil ||
			!middleware.CanAccessOrganization(c, ev.OrganizationID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
	}

	if reg.Status == registrations.StatusCancelled {
		c.JSON(http.StatusOK, gin.H{"message": "Booking already cancelled"})
		return
	}
	if err := h.DB.WithContext(ctx).Table(string(src)).Where("id = ?", reg.ID).
		Updates(map[string]interface{}{"status": registrations.StatusCancelled, "updated_at": h.now()}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel booking"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled"})
}

type myTicket struct {
	registrations.Registration
	Source registrations.Source `json:"source"`
	QRData string               `json:"qrData"`
}

// GET /me/tickets
func (h *Handler) MyTickets(c *gin.Context) {
	userID := middleware.UserID(c)
	email := c.GetString(middleware.KeyEmail)

	out := []myTicket{}
	for _, src := range []registrations.Source{registrations.SourceWeb, registrations.SourceMobile} {
		var rows []registrations.Registration
		if err := h.DB.WithContext(c.Request.Context()).Table(string(src)).
			Where("user_id = ? OR LOWER(email) = ?", userID, strings.ToLower(email)).
			Order("created_at DESC").
			Find(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tickets"})
			return
		}
		for _, r := range rows {
			qr, _ := ticketing.EncodePayload(r.ID, r.EventID, r.TicketID)
			out = append(out, myTicket{Registration: r, Source: src, QRData: qr})
		}
	}
	c.JSON(http.StatusOK, out)
}
