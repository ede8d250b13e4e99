package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"tickethub/config"
	"tickethub/internal/domain/users"
	"tickethub/internal/infra/identity"
)

const stateCookie = "oauth_state"

// GoogleSignIn holds the OAuth client and the ID token verifier for the
// browser sign-in flow.
type GoogleSignIn struct {
	OAuth    *oauth2.Config
	Verifier *identity.GoogleVerifier
	// FrontendRedirect receives ?token=<jwt>; empty answers JSON instead.
	FrontendRedirect string
	SecureCookie     bool
}

// NewGoogleSignIn returns nil when no client id is set, which turns the
// /auth/google routes into 500s.
func NewGoogleSignIn(clientID, clientSecret, redirectURL, frontendRedirect string, secure bool) *GoogleSignIn {
	if strings.TrimSpace(clientID) == "" {
		return nil
	}
	return &GoogleSignIn{
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		Verifier:         identity.NewGoogleVerifier(clientID),
		FrontendRedirect: frontendRedirect,
		SecureCookie:     secure,
	}
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GET /auth/google
func (h *Handler) GoogleStart(c *gin.Context) {
	if h.Google == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google sign-in not configured"})
		return
	}
	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}
	c.SetCookie(stateCookie, state, 300, "/", "", h.Google.SecureCookie, true)
	c.Redirect(http.StatusFound, h.Google.OAuth.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// GET /auth/google/callback
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.Google == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google sign-in not configured"})
		return
	}
	state, code := c.Query("state"), c.Query("code")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code/state"})
		return
	}
	if cookieState, err := c.Cookie(stateCookie); err != nil || cookieState != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", h.Google.SecureCookie, true)

	ctx := c.Request.Context()
	tok, err := h.Google.OAuth.Exchange(ctx, code)
	if err != nil {
		h.Log.Warn("google code exchange failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to exchange code"})
		return
	}
	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing id_token"})
		return
	}
	claims, err := h.Google.Verifier.Verify(ctx, rawIDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	user, created, err := linkGoogleUser(h.DB.WithContext(ctx), claims)
	if errors.Is(err, identity.ErrInvalidToken) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Google email is not verified"})
		return
	}
	if err != nil {
		h.Log.Error("google user upsert failed", zap.String("email", claims.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}
	if created {
		if err := h.Mail.SendWelcome(ctx, user.Email, user.Name); err != nil {
			h.Log.Warn("welcome email failed", zap.String("email", user.Email), zap.Error(err))
		}
	}

	token, err := identity.IssueAppJWT(user, config.JWT_SECRET)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create token"})
		return
	}
	if h.Google.FrontendRedirect == "" {
		c.JSON(http.StatusOK, gin.H{"token": token})
		return
	}
	c.Redirect(http.StatusFound, h.Google.FrontendRedirect+"?token="+url.QueryEscape(token))
}

// linkGoogleUser finds the account for a Google identity. A password
// account with the same email gets the Google subject attached; otherwise a
// verified account is created. created reports the latter.
func linkGoogleUser(db *gorm.DB, gc identity.GoogleClaims) (user users.User, created bool, err error) {
	if !gc.EmailVerified {
		return users.User{}, false, identity.ErrInvalidToken
	}
	if err = db.Where("google_sub = ?", gc.Sub).First(&user).Error; err == nil {
		return user, false, nil
	}
	if err = db.Where("email = ?", gc.Email).First(&user).Error; err == nil {
		if user.GoogleSub == nil {
			sub := gc.Sub
			user.GoogleSub = &sub
			user.IsVerified = true
			err = db.Save(&user).Error
		}
		return user, false, err
	}

	sub := gc.Sub
	user = users.User{
		Name:         firstNonEmpty(gc.GivenName, gc.Name),
		Lastname:     gc.FamilyName,
		Email:        gc.Email,
		AuthProvider: "google",
		GoogleSub:    &sub,
		Role:         users.RoleUser,
		IsVerified:   true,
	}
	if err = db.Create(&user).Error; err != nil {
		return users.User{}, false, err
	}
	return user, true, nil
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
