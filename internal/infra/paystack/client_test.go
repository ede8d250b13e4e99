package paystack

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

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("sk_test_key", srv.URL)
}

func TestInitializeTransaction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2000", body["amount"])
		assert.Equal(t, "PLN_x", body["plan"])

		_, _ = io.WriteString(w, `{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"ref_1"}}`)
	})

	res, err := c.InitializeTransaction(context.Background(), InitializeRequest{
		Email: "a@b.com", Amount: "2000", Plan: "PLN_x", Reference: "ref_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc", res.AuthorizationURL)
	assert.Equal(t, "abc", res.AccessCode)
	assert.Equal(t, "ref_1", res.Reference)
}

func TestVerifyTransaction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/ref_9", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":true,"message":"Verification successful","data":{
			"status":"success","reference":"ref_9","amount":2000,"currency":"GHS",
			"customer":{"customer_code":"CUS_1","email":"a@b.com"},
			"authorization":{"authorization_code":"AUTH_1"},
			"plan":"PLN_x","metadata":{"orgId":"org1","planId":"pro"}}}`)
	})

	tx, err := c.VerifyTransaction(context.Background(), "ref_9")
	require.NoError(t, err)
	assert.Equal(t, "success", tx.Status)
	assert.Equal(t, "CUS_1", tx.Customer.CustomerCode)
	assert.Equal(t, "AUTH_1", tx.Authorization.AuthorizationCode)
	assert.Equal(t, "PLN_x", tx.PlanCode())
	assert.Equal(t, "org1", tx.MetadataMap().Get("orgId"))
}

func TestAPIErrorIsSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"status":false,"message":"Invalid plan code"}`)
	})

	_, err := c.InitializeTransaction(context.Background(), InitializeRequest{Email: "a@b.com"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid plan code", apiErr.Message)
}

func TestStatusFalseWithOKIsAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":false,"message":"Subscription not found"}`)
	})
	err := c.DisableSubscription(context.Background(), "SUB_1", "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Subscription not found")
}

func TestNotConfigured(t *testing.T) {
	c := NewClient("", "")
	assert.False(t, c.Configured())
	_, err := c.VerifyTransaction(context.Background(), "ref")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestManageLink(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subscription/SUB_abc/manage/link", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":true,"message":"Link generated","data":{"link":"https://paystack.com/manage/subscriptions/x"}}`)
	})
	link, err := c.ManageLink(context.Background(), "SUB_abc")
	require.NoError(t, err)
	assert.Equal(t, "https://paystack.com/manage/subscriptions/x", link)
}
