package organizations

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"tickethub/internal/app/http/middleware"
	"tickethub/internal/domain/access"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/plans"
	"tickethub/internal/domain/users"
)

var catalog = plans.NewCatalog("PLN_x", "PLN_biz")

func policyFor(plan string) access.Policy {
	org := organizations.NewOrganization("org1", "Org", "a@b.com", nil)
	org.Subscription.Plan = plan
	return access.ComputePolicy(time.Now(), org, catalog)
}

func seats(members, pending int64) func() (int64, int64, error) {
	return func() (int64, int64, error) { return members, pending, nil }
}

func TestCheckSeats(t *testing.T) {
	assert.ErrorIs(t, checkSeats(policyFor(plans.Starter), seats(1, 0)), errInvitesLocked)

	pro := policyFor(plans.Pro)
	assert.NoError(t, checkSeats(pro, seats(1, 0)))
	assert.NoError(t, checkSeats(pro, seats(3, 1)))
	assert.ErrorIs(t, checkSeats(pro, seats(4, 1)), errTeamFull)
	assert.ErrorIs(t, checkSeats(pro, seats(5, 0)), errTeamFull)
}

func TestCheckSeatsSurfacesCountFailure(t *testing.T) {
	boom := errors.New("connection reset")
	err := checkSeats(policyFor(plans.Pro), func() (int64, int64, error) { return 0, 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, errTeamFull)

	// A plan without invites never reaches the count.
	called := false
	err = checkSeats(policyFor(plans.Starter), func() (int64, int64, error) {
		called = true
		return 0, 0, boom
	})
	assert.ErrorIs(t, err, errInvitesLocked)
	assert.False(t, called)
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, users.OrgRoleOwner, normalizeRole(" Owner "))
	assert.Equal(t, users.OrgRoleMember, normalizeRole("admin"))
	assert.Equal(t, users.OrgRoleMember, normalizeRole(""))
}

func TestInviteMessage(t *testing.T) {
	org := organizations.NewOrganization("org1", "Accra Tech", "a@b.com", nil)
	exp := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	inv := organizations.Invitation{Email: "kofi@example.com", Role: users.OrgRoleMember, Token: "tok", ExpiresAt: exp}

	msg := inviteMessage(org, inv, "Ama Mensah")
	assert.Equal(t, "kofi@example.com", msg.To)
	assert.Equal(t, "Accra Tech", msg.OrgName)
	assert.Equal(t, "Ama Mensah", msg.InviterName)
	assert.Equal(t, "tok", msg.Token)
	assert.Equal(t, exp, msg.ExpiresAt)
}

func TestGuardsRunBeforeStorage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, catalog, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.KeyUserID, uint(3))
		c.Set(middleware.KeyOrgID, "org1")
		c.Set(middleware.KeyOrgRole, users.OrgRoleMember)
	})
	r.POST("/organizations", h.Create)
	r.PUT("/organizations/current", h.Update)
	r.POST("/organizations/current/invitations", h.Invite)
	r.POST("/invitations/accept", h.AcceptInvite)

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/organizations", `{"name":"x"}`, http.StatusConflict},
		{http.MethodPut, "/organizations/current", `{"name":"x"}`, http.StatusForbidden},
		{http.MethodPost, "/organizations/current/invitations", `{"email":"a@b.com"}`, http.StatusForbidden},
		{http.MethodPost, "/invitations/accept", `{}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, tc.path)
	}
}
