package billing

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tickethub/internal/app/http/middleware"
	billingsvc "tickethub/internal/billing"
	domainbilling "tickethub/internal/domain/billing"
	"tickethub/internal/domain/organizations"
)

// Service is the part of the billing service the HTTP layer drives.
type Service interface {
	Initialize(ctx context.Context, planID, orgID string) (*billingsvc.InitializeResult, error)
	Verify(ctx context.Context, reference, orgID string) (*billingsvc.VerifyResult, error)
	Manage(ctx context.Context, orgID string) (*billingsvc.ManageResult, error)
	Cancel(ctx context.Context, orgID string) (*organizations.Organization, error)
	ListPayments(ctx context.Context, orgID string, limit int) ([]domainbilling.Payment, error)
}

type Handler struct {
	Billing Service
	Log     *zap.Logger
}

func NewHandler(svc Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Billing: svc, Log: log}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, billingsvc.ErrMissingFields),
		errors.Is(err, billingsvc.ErrInvalidPlan),
		errors.Is(err, billingsvc.ErrMissingEmail),
		errors.Is(err, billingsvc.ErrPaymentNotSuccessful):
		return http.StatusBadRequest
	case errors.Is(err, billingsvc.ErrReferenceMismatch):
		return http.StatusForbidden
	case errors.Is(err, billingsvc.ErrOrganizationNotFound):
		return http.StatusNotFound
	case errors.Is(err, billingsvc.ErrPlanNotConfigured),
		errors.Is(err, billingsvc.ErrGatewayNotConfigured):
		return http.StatusInternalServerError
	case errors.Is(err, billingsvc.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error("billing request failed", zap.String("op", op), zap.String("org_id", middleware.OrgID(c)), zap.Error(err))
	}
	body := gin.H{"error": err.Error()}
	var pse *billingsvc.PaymentStatusError
	if errors.As(err, &pse) {
		body["status"] = pse.Status
	}
	c.JSON(status, body)
}

// targetOrg picks the organization a request acts on. Members act on their
// own organization, admins may name any.
func targetOrg(c *gin.Context, requested string) (string, bool) {
	if requested == "" {
		return middleware.OrgID(c), true
	}
	return requested, middleware.CanAccessOrganization(c, requested)
}

type initializeRequest struct {
	PlanID string `json:"planId"`
	OrgID  string `json:"orgId"`
}

// POST /billing/initialize
func (h *Handler) Initialize(c *gin.Context) {
	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	orgID, ok := targetOrg(c, req.OrgID)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	res, err := h.Billing.Initialize(c.Request.Context(), req.PlanID, orgID)
	if err != nil {
		h.fail(c, "initialize", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type verifyRequest struct {
	Reference string `json:"reference"`
	OrgID     string `json:"orgId"`
}

// POST /billing/verify, GET /billing/verify?reference=
func (h *Handler) Verify(c *gin.Context) {
	var req verifyRequest
	if c.Request.Method == http.MethodGet {
		req.Reference = firstNonEmpty(c.Query("reference"), c.Query("trxref"))
		req.OrgID = c.Query("orgId")
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	orgID, ok := targetOrg(c, req.OrgID)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	if orgID == "" && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Create or join an organization first"})
		return
	}

	res, err := h.Billing.Verify(c.Request.Context(), req.Reference, orgID)
	if err != nil {
		h.fail(c, "verify", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reference":    res.Reference,
		"plan":         res.Plan,
		"subscription": res.Organization.Subscription,
	})
}

// GET /billing/manage
func (h *Handler) Manage(c *gin.Context) {
	orgID, ok := targetOrg(c, c.Query("orgId"))
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	res, err := h.Billing.Manage(c.Request.Context(), orgID)
	if err != nil {
		h.fail(c, "manage", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type cancelRequest struct {
	OrgID string `json:"orgId"`
}

// POST /billing/manage/cancel
func (h *Handler) Cancel(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}
	}
	orgID, ok := targetOrg(c, req.OrgID)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	org, err := h.Billing.Cancel(c.Request.Context(), orgID)
	if err != nil {
		h.fail(c, "cancel", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Subscription cancelled",
		"subscription": org.Subscription,
	})
}

// GET /billing/payments
func (h *Handler) Payments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.Billing.ListPayments(c.Request.Context(), middleware.OrgID(c), limit)
	if err != nil {
		h.fail(c, "payments", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
