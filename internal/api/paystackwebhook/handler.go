package paystackwebhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tickethub/internal/billing"
	"tickethub/internal/infra/paystack"
)

const maxBodyBytes = 1 << 20

type Processor interface {
	WebhookConfigured() bool
	HandleWebhook(ctx context.Context, body []byte, signature string) (billing.WebhookResult, error)
}

type Handler struct {
	Billing Processor
	Log     *zap.Logger
}

func NewHandler(p Processor, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Billing: p, Log: log}
}

// POST /webhooks/paystack
//
// Anything that passed signature verification is acknowledged with 200 so
// Paystack does not keep redelivering it; failures are logged and recorded
// on the stored event instead.
func (h *Handler) Receive(c *gin.Context) {
	if !h.Billing.WebhookConfigured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "PAYSTACK_SECRET_KEY not configured"})
		return
	}

	payload, err := readBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Error reading request body"})
		return
	}

	res, err := h.Billing.HandleWebhook(c.Request.Context(), payload, c.GetHeader(paystack.SignatureHeader))
	if errors.Is(err, billing.ErrInvalidSignature) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}
	if err != nil {
		h.Log.Error("paystack webhook", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"status": "received", "outcome": res.Outcome})
}

func readBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
