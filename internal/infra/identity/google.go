package identity

import (
	"context"
	"errors"
	"strings"
)

const googleIssuer = "https://accounts.google.com"

type GoogleClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// GoogleVerifier checks ID tokens returned by the Google OAuth code exchange.
type GoogleVerifier struct {
	lazy lazyVerifier
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil
	}
	return &GoogleVerifier{lazy: lazyVerifier{issuer: googleIssuer, clientID: clientID}}
}

func (g *GoogleVerifier) Verify(ctx context.Context, raw string) (GoogleClaims, error) {
	if g == nil {
		return GoogleClaims{}, errors.New("google sign-in not configured")
	}
	v, err := g.lazy.get()
	if err != nil {
		return GoogleClaims{}, err
	}

	tok, err := v.Verify(ctx, raw)
	if err != nil {
		return GoogleClaims{}, ErrInvalidToken
	}
	var c GoogleClaims
	if err := tok.Claims(&c); err != nil {
		return GoogleClaims{}, ErrInvalidToken
	}
	if c.Sub == "" || c.Email == "" {
		return GoogleClaims{}, errors.New("token missing required claims")
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	return c, nil
}
