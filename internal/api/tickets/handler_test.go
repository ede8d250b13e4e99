package tickets

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickethub/internal/app/http/middleware"
	"tickethub/internal/domain/events"
	"tickethub/internal/domain/users"
	"tickethub/internal/ticketing"
)

type fakeScanner struct {
	checkedInBy string
	validated   int
}

func (f *fakeScanner) Validate(_ context.Context, eventID, raw string) (ticketing.Result, error) {
	f.validated++
	p, err := ticketing.ParsePayload(raw)
	if err != nil {
		return ticketing.Result{Reason: ticketing.ReasonInvalidPayload}, nil
	}
	if p.EventID != eventID {
		return ticketing.Result{Reason: ticketing.ReasonEventMismatch}, nil
	}
	return ticketing.Result{Valid: true, Ticket: &ticketing.Ticket{TicketID: p.TicketID}}, nil
}

func (f *fakeScanner) CheckIn(ctx context.Context, eventID, raw, operator string) (ticketing.Result, error) {
	res, err := f.Validate(ctx, eventID, raw)
	if res.Valid {
		f.checkedInBy = operator
		res.CheckedIn = true
	}
	return res, err
}

type fakeEvents map[string]events.Event

func (f fakeEvents) FindEvent(_ context.Context, id string) (*events.Event, error) {
	ev, ok := f[id]
	if !ok {
		return nil, ticketing.ErrNotFound
	}
	return &ev, nil
}

func router(s Scanner, orgID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.KeyRole, users.RoleUser)
		c.Set(middleware.KeyOrgID, orgID)
		c.Set(middleware.KeyEmail, "door@org1.com")
	})
	evs := fakeEvents{
		"e1": {ID: "e1", OrganizationID: "org1"},
		"e2": {ID: "e2", OrganizationID: "org1"},
	}
	r.POST("/events/:id/tickets/validate", NewHandler(s, evs, nil).Validate)
	return r
}

func scan(r *gin.Engine, eventID string, body interface{}) *httptest.ResponseRecorder {
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/events/"+eventID+"/tickets/validate", bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestValidateMismatchedEvent(t *testing.T) {
	r := router(&fakeScanner{}, "org1")
	qr := `{"bookingId":"b1","eventId":"e1","ticketId":"t1"}`

	w := scan(r, "e2", gin.H{"qrData": qr})
	require.Equal(t, http.StatusOK, w.Code)

	var res ticketing.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Valid)
	assert.Equal(t, ticketing.ReasonEventMismatch, res.Reason)
}

func TestCheckInRecordsOperator(t *testing.T) {
	s := &fakeScanner{}
	r := router(s, "org1")
	qr := `{"bookingId":"b1","eventId":"e1","ticketId":"t1"}`

	w := scan(r, "e1", gin.H{"qrData": qr, "checkIn": true})
	require.Equal(t, http.StatusOK, w.Code)

	var res ticketing.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Valid)
	assert.True(t, res.CheckedIn)
	assert.Equal(t, "door@org1.com", s.checkedInBy)
}

func TestValidateRequiresAccessAndPayload(t *testing.T) {
	s := &fakeScanner{}

	assert.Equal(t, http.StatusBadRequest, scan(router(s, "org1"), "e1", gin.H{}).Code)
	assert.Equal(t, http.StatusForbidden, scan(router(s, "org9"), "e1", gin.H{"qrData": "x"}).Code)
	assert.Zero(t, s.validated)
}

func TestValidateUnknownEventIsRejectedTicket(t *testing.T) {
	s := &fakeScanner{}

	w := scan(router(s, "org1"), "nope", gin.H{"qrData": "x"})
	require.Equal(t, http.StatusOK, w.Code)

	var res ticketing.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Valid)
	assert.Equal(t, ticketing.ReasonEventNotFound, res.Reason)
	assert.Equal(t, "Event not found", res.Message)
	assert.Zero(t, s.validated)
}
