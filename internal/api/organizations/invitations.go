package organizations

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tickethub/internal/app/http/middleware"
	"tickethub/internal/domain/access"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/plans"
	"tickethub/internal/domain/users"
)

var (
	errTeamFull      = errors.New("team member limit reached for your plan")
	errInvitesLocked = errors.New("your plan does not include team invites")
)

// checkSeats decides whether one more invitation fits the plan. Pending
// invitations hold a seat until they expire. usage is only consulted when
// the plan allows invites at all.
func checkSeats(p access.Policy, usage func() (members, pending int64, err error)) error {
	if !p.Allows(plans.FeatureTeamInvites) {
		return errInvitesLocked
	}
	members, pending, err := usage()
	if err != nil {
		return err
	}
	max := int64(p.Limits.MaxTeamMembers)
	if max > 0 && members+pending >= max {
		return errTeamFull
	}
	return nil
}

func (h *Handler) seatUsage(ctx context.Context, orgID string) (members, pending int64, err error) {
	err = h.DB.WithContext(ctx).Model(&users.User{}).Where("organization_id = ?", orgID).Count(&members).Error
	if err != nil {
		return 0, 0, err
	}
	err = h.DB.WithContext(ctx).Model(&organizations.Invitation{}).
		Where("organization_id = ? AND status = ? AND expires_at > ?", orgID, organizations.InvitationPending, h.now()).
		Count(&pending).Error
	return members, pending, err
}

func normalizeRole(role string) string {
	if strings.EqualFold(strings.TrimSpace(role), users.OrgRoleOwner) {
		return users.OrgRoleOwner
	}
	return users.OrgRoleMember
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// POST /organizations/current/invitations
func (h *Handler) Invite(c *gin.Context) {
	if !isOwner(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can invite members"})
		return
	}
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A valid email is required"})
		return
	}

	org, ok := h.current(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	err := checkSeats(access.ComputePolicy(h.now(), org, h.Catalog), func() (int64, int64, error) {
		return h.seatUsage(ctx, org.ID)
	})
	switch {
	case errors.Is(err, errInvitesLocked), errors.Is(err, errTeamFull):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.Log.Error("seat count failed", zap.String("organization_id", org.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check team size"})
		return
	}

	inv := organizations.Invitation{
		OrganizationID: org.ID,
		Email:          email,
		Role:           normalizeRole(req.Role),
		Token:          strings.ReplaceAll(uuid.NewString(), "-", ""),
		Status:         organizations.InvitationPending,
		InvitedBy:      middleware.UserID(c),
		ExpiresAt:      h.now().Add(invitationTTL),
	}
	if err := h.DB.WithContext(ctx).Create(&inv).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invitation"})
		return
	}

	emailSent := true
	if err := h.Mail.SendInvite(ctx, inviteMessage(org, inv, h.inviterName(c))); err != nil {
		emailSent = false
		h.Log.Warn("invite email failed", zap.String("org_id", org.ID), zap.String("email", email), zap.Error(err))
	}

	c.JSON(http.StatusCreated, gin.H{"invitation": inv, "emailSent": emailSent})
}

// POST /organizations/current/invitations/:id/resend
func (h *Handler) ResendInvite(c *gin.Context) {
	if !isOwner(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can invite members"})
		return
	}
	org, ok := h.current(c)
	if !ok {
		return
	}

	var inv organizations.Invitation
	if err := h.DB.WithContext(c.Request.Context()).
		Where("id = ? AND organization_id = ?", c.Param("id"), org.ID).
		First(&inv).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
		return
	}
	if !inv.Usable(h.now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invitation is no longer valid"})
		return
	}

	if err := h.Mail.SendInvite(c.Request.Context(), inviteMessage(org, inv, h.inviterName(c))); err != nil {
		h.Log.Error("invite email failed", zap.String("org_id", org.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation sent"})
}

func (h *Handler) inviterName(c *gin.Context) string {
	var u users.User
	if err := h.DB.WithContext(c.Request.Context()).Select("name", "lastname").First(&u, middleware.UserID(c)).Error; err != nil {
		return ""
	}
	return strings.TrimSpace(u.Name + " " + u.Lastname)
}

type acceptRequest struct {
	Token string `json:"token"`
}

var (
	errInvitationInvalid = errors.New("invitation is invalid or has expired")
	errInvitationEmail   = errors.New("invitation was sent to a different email")
	errAlreadyMember     = errors.New("you already belong to an organization")
)

// POST /invitations/accept
func (h *Handler) AcceptInvite(c *gin.Context) {
	var req acceptRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}
	userID := middleware.UserID(c)
	email := c.GetString(middleware.KeyEmail)
	now := h.now()

	var orgID string
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var inv organizations.Invitation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token = ?", strings.TrimSpace(req.Token)).
			First(&inv).Error; err != nil {
			return errInvitationInvalid
		}
		if !inv.Usable(now) {
			return errInvitationInvalid
		}
		if !strings.EqualFold(inv.Email, email) {
			return errInvitationEmail
		}

		var user users.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		if user.OrgID() != "" && user.OrgID() != inv.OrganizationID {
			return errAlreadyMember
		}

		if err := tx.Model(&user).Updates(map[string]interface{}{
			"organization_id": inv.OrganizationID,
			"org_role":        inv.Role,
		}).Error; err != nil {
			return err
		}
		orgID = inv.OrganizationID
		return tx.Model(&inv).Update("status", organizations.InvitationAccepted).Error
	})

	switch {
	case errors.Is(err, errInvitationInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errInvitationEmail):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, errAlreadyMember):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		h.Log.Error("accept invitation failed", zap.Uint("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept invitation"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Invitation accepted", "organizationId": orgID})
	}
}
