package messaging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tickethub/internal/app/http/middleware"
	"tickethub/internal/domain/events"
	"tickethub/internal/domain/plans"
	"tickethub/internal/domain/registrations"
	"tickethub/internal/infra/brevo"
	"tickethub/internal/notify"
)

type Messenger interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendTicket(ctx context.Context, in notify.Ticket) error
	SendBulk(ctx context.Context, in notify.BulkEmail) (notify.BulkResult, error)
	NotifyEventUpdate(ctx context.Context, in notify.EventNotice) (notify.NoticeResult, error)
	NotifyEventCancelled(ctx context.Context, in notify.EventNotice) (notify.NoticeResult, error)
	SendTestEmail(ctx context.Context, to string) error
	SendTestSMS(ctx context.Context, phone string) error
}

// Directory is the read access messaging needs: events, their
// registrations and confirmed attendees.
type Directory interface {
	FindEvent(ctx context.Context, eventID string) (*events.Event, error)
	FindRegistration(ctx context.Context, id string) (*registrations.Registration, error)
	notify.AttendeeStore
}

type Handler struct {
	Notify Messenger
	Dir    Directory
	Log    *zap.Logger
}

func NewHandler(m Messenger, dir Directory, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Notify: m, Dir: dir, Log: log}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, notify.ErrMissingFields),
		errors.Is(err, notify.ErrNoRecipients):
		return http.StatusBadRequest
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, notify.ErrEmailNotConfigured),
		errors.Is(err, notify.ErrSMSNotConfigured):
		return http.StatusInternalServerError
	case errors.Is(err, notify.ErrDelivery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error("messaging request failed", zap.String("op", op), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// event loads an event the caller's organization owns, answering the
// request itself when it cannot.
func (h *Handler) event(c *gin.Context, id string) (*events.Event, bool) {
	ev, err := h.Dir.FindEvent(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load event"})
		}
		return nil, false
	}
	if !middleware.CanAccessOrganization(c, ev.OrganizationID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return nil, false
	}
	return ev, true
}

type welcomeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// POST /messaging/welcome
func (h *Handler) Welcome(c *gin.Context) {
	var req welcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	to := strings.TrimSpace(req.Email)
	self := c.GetString(middleware.KeyEmail)
	if to == "" {
		to = self
	}
	if !strings.EqualFold(to, self) && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	if err := h.Notify.SendWelcome(c.Request.Context(), to, strings.TrimSpace(req.Name)); err != nil {
		h.fail(c, "welcome", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Welcome email sent"})
}

type ticketRequest struct {
	BookingID string `json:"bookingId"`
}

// POST /messaging/ticket
func (h *Handler) Ticket(c *gin.Context) {
	var req ticketRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.BookingID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bookingId is required"})
		return
	}

	reg, err := h.Dir.FindRegistration(c.Request.Context(), strings.TrimSpace(req.BookingID))
	if err != nil {
		h.fail(c, "ticket", err)
		return
	}
	ev, ok := h.event(c, reg.EventID)
	if !ok {
		return
	}

	qr, err := encodeTicket(reg)
	if err != nil {
		h.fail(c, "ticket", err)
		return
	}
	if err := h.Notify.SendTicket(c.Request.Context(), notify.Ticket{
		To:        reg.Email,
		Name:      reg.Name,
		Event:     *ev,
		TicketID:  reg.TicketID,
		QRPayload: qr,
	}); err != nil {
		h.fail(c, "ticket", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ticket sent"})
}

type recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type bulkRequest struct {
	Recipients []recipient `json:"recipients"`
	EventID    string      `json:"eventId"`
	Subject    string      `json:"subject"`
	HTML       string      `json:"html"`
}

// POST /messaging/bulk
//
// Recipients are either listed or, with eventId, every confirmed attendee of
// that event.
func (h *Handler) Bulk(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	to := make([]brevo.Address, 0, len(req.Recipients))
	for i, r := range req.Recipients {
		e := strings.TrimSpace(r.Email)
		if e == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Recipient %d has no email", i+1)})
			return
		}
		to = append(to, brevo.Address{Email: e, Name: strings.TrimSpace(r.Name)})
	}
	if len(to) == 0 && req.EventID != "" {
		ev, ok := h.event(c, req.EventID)
		if !ok {
			return
		}
		list, err := h.Dir.ConfirmedAttendees(c.Request.Context(), ev.ID)
		if err != nil {
			h.fail(c, "bulk", err)
			return
		}
		for _, a := range registrations.DedupeByEmail(list) {
			to = append(to, brevo.Address{Email: a.Email, Name: a.Name})
		}
	}

	res, err := h.Notify.SendBulk(c.Request.Context(), notify.BulkEmail{Recipients: to, Subject: req.Subject, HTML: req.HTML})
	if err != nil {
		h.fail(c, "bulk", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type noticeRequest struct {
	Message string `json:"message"`
	SMS     bool   `json:"sms"`
}

func (h *Handler) notice(c *gin.Context, op string, send func(context.Context, notify.EventNotice) (notify.NoticeResult, error)) {
	var req noticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	ev, ok := h.event(c, c.Param("id"))
	if !ok {
		return
	}
	if req.SMS {
		if policy, ok := middleware.Policy(c); !ok || !policy.Allows(plans.FeatureSMS) {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "Your plan does not include SMS", "feature": plans.FeatureSMS})
			return
		}
	}

	res, err := send(c.Request.Context(), notify.EventNotice{Event: *ev, Message: req.Message, SMS: req.SMS})
	if err != nil {
		h.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /events/:id/notify/update
func (h *Handler) EventUpdate(c *gin.Context) {
	h.notice(c, "event_update", h.Notify.NotifyEventUpdate)
}

// POST /events/:id/notify/cancellation
func (h *Handler) EventCancelled(c *gin.Context) {
	h.notice(c, "event_cancelled", h.Notify.NotifyEventCancelled)
}

type testEmailRequest struct {
	To string `json:"to"`
}

// POST /admin/messaging/test-email
func (h *Handler) TestEmail(c *gin.Context) {
	var req testEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.To) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to is required"})
		return
	}
	if err := h.Notify.SendTestEmail(c.Request.Context(), strings.TrimSpace(req.To)); err != nil {
		h.fail(c, "test_email", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test email sent"})
}

type testSMSRequest struct {
	Phone string `json:"phone"`
}

// POST /admin/messaging/test-sms
func (h *Handler) TestSMS(c *gin.Context) {
	var req testSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Phone) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}
	if err := h.Notify.SendTestSMS(c.Request.Context(), req.Phone); err != nil {
		h.fail(c, "test_sms", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test SMS sent"})
}
