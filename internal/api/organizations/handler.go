package organizations

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tickethub/internal/app/http/middleware"
	"tickethub/internal/domain/access"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/plans"
	"tickethub/internal/domain/users"
	"tickethub/internal/notify"
)

const invitationTTL = 7 * 24 * time.Hour

type Inviter interface {
	SendInvite(ctx context.Context, in notify.Invite) error
}

type Handler struct {
	DB      *gorm.DB
	Mail    Inviter
	Catalog plans.Catalog
	Log     *zap.Logger
	now     func() time.Time
}

func NewHandler(db *gorm.DB, mail Inviter, catalog plans.Catalog, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{DB: db, Mail: mail, Catalog: catalog, Log: log, now: time.Now}
}

type organizationRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type organizationResponse struct {
	Organization organizations.Organization `json:"organization"`
	Access       access.AccessState         `json:"access"`
	Plan         plans.Plan                 `json:"plan"`
	Capabilities []string                   `json:"capabilities"`
	Limits       plans.Limits               `json:"limits"`
}

func (h *Handler) describe(org organizations.Organization) organizationResponse {
	p := access.ComputePolicy(h.now(), org, h.Catalog)
	return organizationResponse{
		Organization: org,
		Access:       p.State,
		Plan:         p.Plan,
		Capabilities: p.Capabilities,
		Limits:       p.Limits,
	}
}

func (h *Handler) current(c *gin.Context) (organizations.Organization, bool) {
	var org organizations.Organization
	err := h.DB.WithContext(c.Request.Context()).First(&org, "id = ?", middleware.OrgID(c)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return org, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load organization"})
		return org, false
	}
	return org, true
}

func isOwner(c *gin.Context) bool {
	return c.GetString(middleware.KeyOrgRole) == users.OrgRoleOwner || middleware.IsAdmin(c)
}

// POST /organizations
func (h *Handler) Create(c *gin.Context) {
	if middleware.OrgID(c) != "" {
		c.JSON(http.StatusConflict, gin.H{"error": "You already belong to an organization"})
		return
	}

	var req organizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Organization name is required"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		email = c.GetString(middleware.KeyEmail)
	}

	userID := middleware.UserID(c)
	org := organizations.NewOrganization(uuid.NewString(), req.Name, email, &userID)
	org.Phone = strings.TrimSpace(req.Phone)

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		return tx.Model(&users.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"organization_id": org.ID,
			"org_role":        users.OrgRoleOwner,
		}).Error
	})
	if err != nil {
		h.Log.Error("create organization failed", zap.Uint("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
		return
	}

	c.JSON(http.StatusCreated, h.describe(org))
}

// GET /organizations/current
func (h *Handler) Get(c *gin.Context) {
	org, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.describe(org))
}

// PUT /organizations/current
func (h *Handler) Update(c *gin.Context) {
	if !isOwner(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can edit the organization"})
		return
	}
	var req organizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	org, ok := h.current(c)
	if !ok {
		return
	}
	if v := strings.TrimSpace(req.Name); v != "" {
		org.Name = v
	}
	if v := strings.ToLower(strings.TrimSpace(req.Email)); v != "" {
		org.Email = v
	}
	org.Phone = strings.TrimSpace(req.Phone)

	// subscription columns belong to billing
	err := h.DB.WithContext(c.Request.Context()).Model(&org).Select("name", "email", "phone").Updates(map[string]interface{}{
		"name":  org.Name,
		"email": org.Email,
		"phone": org.Phone,
	}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update organization"})
		return
	}
	c.JSON(http.StatusOK, h.describe(org))
}

type member struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	OrgRole string `json:"role"`
}

// GET /organizations/current/members
func (h *Handler) Members(c *gin.Context) {
	var list []users.User
	if err := h.DB.WithContext(c.Request.Context()).
		Where("organization_id = ?", middleware.OrgID(c)).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load members"})
		return
	}

	var pending []organizations.Invitation
	h.DB.WithContext(c.Request.Context()).
		Where("organization_id = ? AND status = ? AND expires_at > ?", middleware.OrgID(c), organizations.InvitationPending, h.now()).
		Find(&pending)

	out := make([]member, 0, len(list))
	for _, u := range list {
		out = append(out, member{ID: u.ID, Name: strings.TrimSpace(u.Name + " " + u.Lastname), Email: u.Email, OrgRole: u.OrgRole})
	}
	c.JSON(http.StatusOK, gin.H{"members": out, "invitations": pending})
}
