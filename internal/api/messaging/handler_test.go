package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickethub/internal/app/http/middleware"
	"tickethub/internal/domain/access"
	"tickethub/internal/domain/events"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/plans"
	"tickethub/internal/domain/registrations"
	"tickethub/internal/domain/users"
	"tickethub/internal/notify"
)

type fakeMessenger struct {
	mu      sync.Mutex
	bulk    notify.BulkEmail
	ticket  notify.Ticket
	notice  notify.EventNotice
	welcome string
	err     error
}

func (f *fakeMessenger) SendWelcome(_ context.Context, to, _ string) error {
	f.welcome = to
	return f.err
}

func (f *fakeMessenger) SendTicket(_ context.Context, in notify.Ticket) error {
	f.ticket = in
	return f.err
}

func (f *fakeMessenger) SendBulk(_ context.Context, in notify.BulkEmail) (notify.BulkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulk = in
	if f.err != nil {
		return notify.BulkResult{}, f.err
	}
	if len(in.Recipients) == 0 {
		return notify.BulkResult{}, notify.ErrNoRecipients
	}
	return notify.BulkResult{Total: len(in.Recipients), EmailsSent: int64(len(in.Recipients))}, nil
}

func (f *fakeMessenger) NotifyEventUpdate(_ context.Context, in notify.EventNotice) (notify.NoticeResult, error) {
	f.notice = in
	return notify.NoticeResult{Recipients: 2}, f.err
}

func (f *fakeMessenger) NotifyEventCancelled(_ context.Context, in notify.EventNotice) (notify.NoticeResult, error) {
	f.notice = in
	return notify.NoticeResult{Recipients: 2}, f.err
}

func (f *fakeMessenger) SendTestEmail(context.Context, string) error { return f.err }
func (f *fakeMessenger) SendTestSMS(context.Context, string) error   { return f.err }

type fakeDirectory struct{}

func (fakeDirectory) FindEvent(_ context.Context, id string) (*events.Event, error) {
	switch id {
	case "e1":
		return &events.Event{ID: "e1", OrganizationID: "org1", Title: "Launch"}, nil
	case "e2":
		return &events.Event{ID: "e2", OrganizationID: "org2"}, nil
	}
	return nil, errNotFound
}

func (fakeDirectory) FindRegistration(_ context.Context, id string) (*registrations.Registration, error) {
	if id == "b1" {
		return &registrations.Registration{ID: "b1", EventID: "e1", Email: "ama@example.com", Name: "Ama", TicketID: "TKT-ABC"}, nil
	}
	return nil, errNotFound
}

func (fakeDirectory) ConfirmedAttendees(context.Context, string) ([]registrations.Attendee, error) {
	return []registrations.Attendee{
		{Email: "ama@example.com", Source: registrations.SourceWeb},
		{Email: "AMA@example.com", Source: registrations.SourceMobile},
		{Email: "kofi@example.com", Source: registrations.SourceMobile},
	}, nil
}

func router(m Messenger, plan string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(m, fakeDirectory{}, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.KeyUserID, uint(1))
		c.Set(middleware.KeyEmail, "owner@org1.com")
		c.Set(middleware.KeyRole, users.RoleUser)
		c.Set(middleware.KeyOrgID, "org1")
		org := organizations.NewOrganization("org1", "Org", "owner@org1.com", nil)
		org.Subscription.Plan = plan
		c.Set(middleware.KeyPolicy, access.ComputePolicy(time.Now(), org, plans.NewCatalog("PLN_x", "PLN_biz")))
	})
	r.POST("/messaging/welcome", h.Welcome)
	r.POST("/messaging/ticket", h.Ticket)
	r.POST("/messaging/bulk", h.Bulk)
	r.POST("/events/:id/notify/update", h.EventUpdate)
	r.POST("/events/:id/notify/cancellation", h.EventCancelled)
	r.POST("/admin/messaging/test-email", h.TestEmail)
	r.POST("/admin/messaging/test-sms", h.TestSMS)
	return r
}

func post(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBulkListedRecipients(t *testing.T) {
	m := &fakeMessenger{}
	r := router(m, plans.Pro)

	recipients := make([]gin.H, 0, 25)
	for i := 0; i < 25; i++ {
		recipients = append(recipients, gin.H{"email": fmt.Sprintf("u%d@example.com", i)})
	}
	w := post(r, "/messaging/bulk", gin.H{"recipients": recipients, "subject": "Hi", "html": "<p>Hello</p>"})
	require.Equal(t, http.StatusOK, w.Code)

	var res notify.BulkResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 25, res.Total)
	assert.Len(t, m.bulk.Recipients, 25)
}

func TestBulkRejectsBlankRecipient(t *testing.T) {
	m := &fakeMessenger{}
	w := post(router(m, plans.Pro), "/messaging/bulk", gin.H{
		"recipients": []gin.H{{"email": "a@b.com"}, {"email": "  ", "name": "Kofi"}},
		"subject":    "Hi",
		"html":       "<p>Hello</p>",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Recipient 2 has no email")
	assert.Empty(t, m.bulk.Recipients)
}

func TestBulkToEventAttendeesDedupes(t *testing.T) {
	m := &fakeMessenger{}
	r := router(m, plans.Pro)

	w := post(r, "/messaging/bulk", gin.H{"eventId": "e1", "subject": "Hi", "html": "<p>Hello</p>"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, m.bulk.Recipients, 2)
	assert.Equal(t, "ama@example.com", m.bulk.Recipients[0].Email)
	assert.Equal(t, "kofi@example.com", m.bulk.Recipients[1].Email)

	assert.Equal(t, http.StatusForbidden, post(r, "/messaging/bulk", gin.H{"eventId": "e2", "subject": "Hi", "html": "x"}).Code)
}

func TestBulkErrorStatuses(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, post(router(&fakeMessenger{}, plans.Pro), "/messaging/bulk", gin.H{"subject": "Hi"}).Code)
	assert.Equal(t, http.StatusInternalServerError,
		post(router(&fakeMessenger{err: notify.ErrEmailNotConfigured}, plans.Pro), "/messaging/bulk", gin.H{"recipients": []gin.H{{"email": "a@b.com"}}}).Code)
}

func TestTicketResend(t *testing.T) {
	m := &fakeMessenger{}
	r := router(m, plans.Starter)

	w := post(r, "/messaging/ticket", gin.H{"bookingId": "b1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ama@example.com", m.ticket.To)
	assert.Equal(t, "TKT-ABC", m.ticket.TicketID)
	assert.JSONEq(t, `{"bookingId":"b1","eventId":"e1","ticketId":"TKT-ABC"}`, m.ticket.QRPayload)

	assert.Equal(t, http.StatusNotFound, post(r, "/messaging/ticket", gin.H{"bookingId": "nope"}).Code)
}

func TestEventNoticeSMSNeedsPlan(t *testing.T) {
	m := &fakeMessenger{}

	w := post(router(m, plans.Pro), "/events/e1/notify/update", gin.H{"message": "Moved to 7pm", "sms": true})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	w = post(router(m, plans.Business), "/events/e1/notify/update", gin.H{"message": "Moved to 7pm", "sms": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, m.notice.SMS)
	assert.Equal(t, "Launch", m.notice.Event.Title)

	w = post(router(m, plans.Starter), "/events/e1/notify/cancellation", gin.H{"message": "Sorry"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, m.notice.SMS)
}

func TestWelcomeOnlyToSelf(t *testing.T) {
	m := &fakeMessenger{}
	r := router(m, plans.Starter)

	assert.Equal(t, http.StatusOK, post(r, "/messaging/welcome", gin.H{}).Code)
	assert.Equal(t, "owner@org1.com", m.welcome)
	assert.Equal(t, http.StatusForbidden, post(r, "/messaging/welcome", gin.H{"email": "x@y.com"}).Code)
}

func TestDiagnostics(t *testing.T) {
	r := router(&fakeMessenger{}, plans.Starter)
	assert.Equal(t, http.StatusOK, post(r, "/admin/messaging/test-email", gin.H{"to": "a@b.com"}).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/admin/messaging/test-sms", gin.H{}).Code)

	r = router(&fakeMessenger{err: fmt.Errorf("%w: boom", notify.ErrDelivery)}, plans.Starter)
	w := post(r, "/admin/messaging/test-sms", gin.H{"phone": "0241234567"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "boom")
}
