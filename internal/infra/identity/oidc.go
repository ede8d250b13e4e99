package identity

import (
	"context"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

const discoveryTimeout = 10 * time.Second

// lazyVerifier discovers an OIDC provider on first use. Only a successful
// discovery is kept; a failed one is retried on the next call.
type lazyVerifier struct {
	issuer   string
	clientID string

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

func (l *lazyVerifier) get() (*oidc.IDTokenVerifier, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.verifier != nil {
		return l.verifier, nil
	}

	// Discovery outlives the request that triggered it.
	ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
	defer cancel()
	provider, err := oidc.NewProvider(ctx, l.issuer)
	if err != nil {
		return nil, err
	}
	l.verifier = provider.Verifier(&oidc.Config{ClientID: l.clientID})
	return l.verifier, nil
}
