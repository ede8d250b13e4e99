package identity

import (
	"context"
	"errors"
	"strings"
)

// FirebaseClaims are the fields read from a Firebase Authentication ID token.
type FirebaseClaims struct {
	UID           string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// FirebaseVerifier checks ID tokens minted by Firebase Authentication for
// the mobile app. The OIDC provider is discovered lazily on first use.
type FirebaseVerifier struct {
	lazy lazyVerifier
}

func NewFirebaseVerifier(projectID string) *FirebaseVerifier {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil
	}
	return &FirebaseVerifier{lazy: lazyVerifier{
		issuer:   "https://securetoken.google.com/" + projectID,
		clientID: projectID,
	}}
}

func (f *FirebaseVerifier) Verify(ctx context.Context, raw string) (FirebaseClaims, error) {
	if f == nil {
		return FirebaseClaims{}, errors.New("firebase auth not configured")
	}
	v, err := f.lazy.get()
	if err != nil {
		return FirebaseClaims{}, err
	}
	tok, err := v.Verify(ctx, raw)
	if err != nil {
		return FirebaseClaims{}, ErrInvalidToken
	}
	var c FirebaseClaims
	if err := tok.Claims(&c); err != nil {
		return FirebaseClaims{}, ErrInvalidToken
	}
	if c.UID == "" {
		c.UID = tok.Subject
	}
	if c.Email == "" {
		return FirebaseClaims{}, errors.New("firebase token has no email")
	}
	return c, nil
}
