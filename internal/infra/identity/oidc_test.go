package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discoveryServer(t *testing.T, failFirst int32) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		if atomic.AddInt32(&calls, 1) <= failFirst {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"issuer":"` + srv.URL + `","jwks_uri":"` + srv.URL + `/keys","id_token_signing_alg_values_supported":["RS256"]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestLazyVerifierRetriesAfterFailedDiscovery(t *testing.T) {
	srv, calls := discoveryServer(t, 1)
	l := &lazyVerifier{issuer: srv.URL, clientID: "app"}

	_, err := l.get()
	require.Error(t, err)

	v, err := l.get()
	require.NoError(t, err)
	assert.NotNil(t, v)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))

	// Cached once discovery succeeds.
	_, err = l.get()
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestFirebaseVerifyIgnoresCancelledRequestForDiscovery(t *testing.T) {
	srv, calls := discoveryServer(t, 0)
	f := &FirebaseVerifier{lazy: lazyVerifier{issuer: srv.URL, clientID: "proj"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Verify(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	// The verifier stays usable for later requests.
	_, err = f.Verify(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestNilVerifiersReportUnconfigured(t *testing.T) {
	assert.Nil(t, NewFirebaseVerifier(" "))
	assert.Nil(t, NewGoogleVerifier(""))

	var g *GoogleVerifier
	_, err := g.Verify(context.Background(), "x")
	assert.Error(t, err)
}
