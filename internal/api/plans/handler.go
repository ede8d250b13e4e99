package plans

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tickethub/internal/domain/plans"
	"tickethub/internal/infra/paystack"
)

// Gateway reads plan definitions from the payment provider.
type Gateway interface {
	Configured() bool
	FetchPlan(ctx context.Context, code string) (*paystack.Plan, error)
}

type Handler struct {
	Catalog plans.Catalog
	Gateway Gateway
	Log     *zap.Logger
}

func NewHandler(catalog plans.Catalog, gateway Gateway, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Catalog: catalog, Gateway: gateway, Log: log}
}

func (h *Handler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, h.Catalog.List())
}

const (
	checkOK           = "ok"
	checkMismatch     = "mismatch"
	checkMissing      = "missing"
	checkUnconfigured = "unconfigured"
)

type PlanCheck struct {
	PlanID         string `json:"planId"`
	PlanCode       string `json:"planCode,omitempty"`
	Result         string `json:"result"`
	ExpectedAmount int64  `json:"expectedAmount"`
	GatewayAmount  int64  `json:"gatewayAmount,omitempty"`
	Currency       string `json:"currency"`
	GatewayCurr    string `json:"gatewayCurrency,omitempty"`
	Detail         string `json:"detail,omitempty"`
}

func compare(p plans.Plan, remote *paystack.Plan) PlanCheck {
	out := PlanCheck{
		PlanID:         p.ID,
		PlanCode:       p.PaystackPlanCode,
		Result:         checkOK,
		ExpectedAmount: p.AmountMinor(),
		Currency:       p.Currency,
		GatewayAmount:  remote.Amount,
		GatewayCurr:    remote.Currency,
	}
	if remote.Amount != out.ExpectedAmount {
		out.Result = checkMismatch
		out.Detail = "amount differs"
	} else if remote.Currency != "" && !strings.EqualFold(remote.Currency, p.Currency) {
		out.Result = checkMismatch
		out.Detail = "currency differs"
	}
	return out
}

// CheckPlans compares every paid catalog plan with the plan the gateway
// holds under its configured code.
func (h *Handler) CheckPlans(c *gin.Context) {
	if h.Gateway == nil || !h.Gateway.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment gateway not configured"})
		return
	}

	checks := []PlanCheck{}
	counts := map[string]int{checkOK: 0, checkMismatch: 0, checkMissing: 0, checkUnconfigured: 0}

	for _, p := range h.Catalog.List() {
		if !p.IsPaid() {
			continue
		}
		if p.PaystackPlanCode == "" {
			checks = append(checks, PlanCheck{PlanID: p.ID, Result: checkUnconfigured, ExpectedAmount: p.AmountMinor(), Currency: p.Currency})
			counts[checkUnconfigured]++
			continue
		}

		remote, err := h.Gateway.FetchPlan(c.Request.Context(), p.PaystackPlanCode)
		if err != nil {
			h.Log.Warn("plan lookup failed", zap.String("plan", p.ID), zap.String("code", p.PaystackPlanCode), zap.Error(err))
			checks = append(checks, PlanCheck{
				PlanID:         p.ID,
				PlanCode:       p.PaystackPlanCode,
				Result:         checkMissing,
				ExpectedAmount: p.AmountMinor(),
				Currency:       p.Currency,
				Detail:         err.Error(),
			})
			counts[checkMissing]++
			continue
		}

		check := compare(p, remote)
		checks = append(checks, check)
		counts[check.Result]++
	}

	c.JSON(http.StatusOK, gin.H{
		"plans":        checks,
		"ok":           counts[checkOK],
		"mismatch":     counts[checkMismatch],
		"missing":      counts[checkMissing],
		"unconfigured": counts[checkUnconfigured],
	})
}
