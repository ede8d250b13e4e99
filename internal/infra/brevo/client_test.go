package brevo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/smtp/email", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("api-key"))

		var body sendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "events@example.com", body.Sender.Email)
		assert.Equal(t, "Hello", body.Subject)
		require.Len(t, body.To, 1)
		assert.Equal(t, "a@b.com", body.To[0].Email)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"messageId":"<m1@brevo>"}`)
	}))
	defer srv.Close()

	c := NewClient("key-1", "events@example.com", "Events")
	c.BaseURL = srv.URL

	id, err := c.Send(context.Background(), Email{To: []Address{{Email: "a@b.com"}}, Subject: "Hello", HTMLContent: "<p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, "<m1@brevo>", id)
}

func TestSendSurfacesAPIMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":"unauthorized","message":"Key not found"}`)
	}))
	defer srv.Close()

	c := NewClient("bad", "events@example.com", "")
	c.BaseURL = srv.URL

	_, err := c.Send(context.Background(), Email{To: []Address{{Email: "a@b.com"}}, Subject: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Key not found")
}

func TestSendNotConfigured(t *testing.T) {
	_, err := NewClient("", "", "").Send(context.Background(), Email{To: []Address{{Email: "a@b.com"}}})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
