package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tickethub/internal/domain/users"
	"tickethub/internal/infra/identity"
)

// Context keys set by AuthMiddleware.
const (
	KeyUserID  = "user_id"
	KeyEmail   = "email"
	KeyRole    = "role"
	KeyOrgID   = "org_id"
	KeyOrgRole = "org_role"
)

// AuthMiddleware accepts an app token issued at login or, when fb is set, a
// Firebase ID token from the mobile app. The user row is loaded on every
// request so organization membership is never stale.
func AuthMiddleware(db *gorm.DB, secret string, fb *identity.FirebaseVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
			c.Abort()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token malformed"})
			c.Abort()
			return
		}
		tokenString = strings.TrimSpace(tokenString)

		user, err := resolveUser(c, db, secret, fb, tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(KeyUserID, user.ID)
		c.Set(KeyEmail, user.Email)
		c.Set(KeyRole, user.Role)
		c.Set(KeyOrgID, user.OrgID())
		c.Set(KeyOrgRole, user.OrgRole)
		c.Next()
	}
}

func resolveUser(c *gin.Context, db *gorm.DB, secret string, fb *identity.FirebaseVerifier, token string) (users.User, error) {
	var user users.User

	claims, err := identity.ParseAppJWT(token, secret)
	if err == nil {
		if err := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
			return users.User{}, err
		}
		return user, nil
	}
	if fb == nil {
		return users.User{}, err
	}

	fc, ferr := fb.Verify(c.Request.Context(), token)
	if ferr != nil {
		return users.User{}, ferr
	}
	return firebaseUser(c, db, fc)
}

// firebaseUser finds the user linked to a Firebase uid, linking an existing
// account with the same email on first sight, or creating one.
func firebaseUser(c *gin.Context, db *gorm.DB, fc identity.FirebaseClaims) (users.User, error) {
	// Accounts are matched by email, so the address must be proven.
	if !fc.EmailVerified {
		return users.User{}, identity.ErrInvalidToken
	}
	tx := db.WithContext(c.Request.Context())
	var user users.User

	err := tx.Where("firebase_uid = ?", fc.UID).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return users.User{}, err
	}

	email := strings.ToLower(strings.TrimSpace(fc.Email))
	if email == "" {
		return users.User{}, identity.ErrInvalidToken
	}
	uid := fc.UID

	err = tx.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		user.FirebaseUID = &uid
		user.IsVerified = true
		return user, tx.Save(&user).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = users.User{
			Name:         fc.Name,
			Email:        email,
			AuthProvider: "firebase",
			FirebaseUID:  &uid,
			Role:         users.RoleUser,
			IsVerified:   true,
		}
		return user, tx.Create(&user).Error
	default:
		return users.User{}, err
	}
}

func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(KeyRole)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Role not found in token"})
			c.Abort()
			return
		}

		if value != role {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func UserID(c *gin.Context) uint {
	return c.GetUint(KeyUserID)
}

func OrgID(c *gin.Context) string {
	return c.GetString(KeyOrgID)
}

func IsAdmin(c *gin.Context) bool {
	return c.GetString(KeyRole) == users.RoleAdmin
}

// CanAccessOrganization reports whether the caller may act on orgID: members
// of that organization and platform admins.
func CanAccessOrganization(c *gin.Context, orgID string) bool {
	if orgID == "" {
		return false
	}
	return IsAdmin(c) || OrgID(c) == orgID
}
