package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"tickethub/internal/domain/users"
	"tickethub/internal/infra/identity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withClaims(role, orgID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(KeyUserID, uint(7))
		c.Set(KeyRole, role)
		c.Set(KeyOrgID, orgID)
		c.Next()
	}
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.GET("/user", withClaims(users.RoleUser, ""), RequireRole(users.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/admin", withClaims(users.RoleAdmin, ""), RequireRole(users.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/anon", RequireRole(users.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/user").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/admin").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/anon").Code)
}

func TestRequireOrganization(t *testing.T) {
	r := gin.New()
	r.GET("/none", withClaims(users.RoleUser, ""), RequireOrganization(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/org", withClaims(users.RoleUser, "org1"), RequireOrganization(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/none").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/org").Code)
}

func TestCanAccessOrganization(t *testing.T) {
	r := gin.New()
	var member, other, admin bool
	r.GET("/m", withClaims(users.RoleUser, "org1"), func(c *gin.Context) {
		member = CanAccessOrganization(c, "org1")
		other = CanAccessOrganization(c, "org2")
	})
	r.GET("/a", withClaims(users.RoleAdmin, ""), func(c *gin.Context) {
		admin = CanAccessOrganization(c, "org2")
	})
	serve(r, http.MethodGet, "/m")
	serve(r, http.MethodGet, "/a")

	assert.True(t, member)
	assert.False(t, other)
	assert.True(t, admin)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	r := gin.New()
	r.GET("/x", AuthMiddleware(nil, "secret", nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/x").Code)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Token abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Bearer token malformed")
}

func TestFirebaseUserRefusesUnverifiedEmail(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	// Rejected before any lookup, so no database is needed.
	_, err := firebaseUser(c, nil, identity.FirebaseClaims{
		UID:   "fb-1",
		Email: "admin@tickethub.io",
	})
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}
