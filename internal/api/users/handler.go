package users

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tickethub/internal/app/http/middleware"
	"tickethub/internal/domain/access"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/plans"
	"tickethub/internal/domain/users"
)

type Handler struct {
	DB      *gorm.DB
	Catalog plans.Catalog
}

func NewHandler(db *gorm.DB, catalog plans.Catalog) *Handler {
	return &Handler{DB: db, Catalog: catalog}
}

// buildMe assembles the /me payload. Users without an organization get the
// "none" access state and no billing block.
func buildMe(now time.Time, user users.User, org *organizations.Organization, catalog plans.Catalog) MeResponse {
	resp := MeResponse{
		User:   BuildUserDTO(user),
		Access: AccessDTO{State: "none", Capabilities: []string{}},
	}
	if org == nil {
		return resp
	}

	policy := access.ComputePolicy(now, *org, catalog)
	resp.Organization = BuildOrganizationDTO(org, user.OrgRole)
	resp.Billing = &BillingDTO{
		Plan:         BuildPlanDTO(policy.Plan),
		Subscription: BuildSubscriptionDTO(now, org.Subscription),
	}
	resp.Access = BuildAccessDTO(policy)
	return resp
}

// GET /me
func (h *Handler) GetCurrentUser(c *gin.Context) {
	var user users.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, middleware.UserID(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var org *organizations.Organization
	if id := user.OrgID(); id != "" {
		var o organizations.Organization
		err := h.DB.WithContext(c.Request.Context()).First(&o, "id = ?", id).Error
		switch {
		case err == nil:
			org = &o
		case !errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load organization"})
			return
		}
	}

	c.JSON(http.StatusOK, buildMe(time.Now(), user, org, h.Catalog))
}

type updateMeRequest struct {
	Name     *string `json:"name"`
	Lastname *string `json:"lastname"`
	Tel      *string `json:"tel"`
}

// PUT /me
func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Lastname != nil {
		updates["lastname"] = strings.TrimSpace(*req.Lastname)
	}
	if req.Tel != nil {
		updates["tel"] = strings.TrimSpace(*req.Tel)
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	if err := h.DB.WithContext(c.Request.Context()).Model(&users.User{}).
		Where("id = ?", middleware.UserID(c)).
		Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	h.GetCurrentUser(c)
}
