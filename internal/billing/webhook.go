package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	domainbilling "tickethub/internal/domain/billing"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/infra/paystack"
	"tickethub/internal/metrics"
)

const provider = "paystack"

// Paystack event types acted upon.
const (
	EventSubscriptionCreate   = "subscription.create"
	EventChargeSuccess        = "charge.success"
	EventSubscriptionNotRenew = "subscription.not_renew"
	EventSubscriptionDisable  = "subscription.disable"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// Webhook outcomes, also used as metric labels.
const (
	OutcomeApplied    = "applied"
	OutcomeIgnored    = "ignored"
	OutcomeDuplicate  = "duplicate"
	OutcomeUnresolved = "unresolved"
	OutcomeMalformed  = "malformed"
	OutcomeFailed     = "failed"
)

var errUnresolved = errors.New("organization not resolved")

type webhookEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type subscriptionRef struct {
	SubscriptionCode string `json:"subscription_code"`
	EmailToken       string `json:"email_token"`
	Status           string `json:"status"`
	NextPaymentDate  string `json:"next_payment_date"`
}

// webhookData covers the fields used across charge, subscription and
// invoice payloads.
type webhookData struct {
	Status           string                 `json:"status"`
	Reference        string                 `json:"reference"`
	Amount           int64                  `json:"amount"`
	Currency         string                 `json:"currency"`
	PaidAt           string                 `json:"paid_at"`
	SubscriptionCode string                 `json:"subscription_code"`
	EmailToken       string                 `json:"email_token"`
	NextPaymentDate  string                 `json:"next_payment_date"`
	Customer         paystack.Customer      `json:"customer"`
	Authorization    paystack.Authorization `json:"authorization"`
	Plan             json.RawMessage        `json:"plan"`
	Metadata         json.RawMessage        `json:"metadata"`
	Subscription     *subscriptionRef       `json:"subscription"`
}

type WebhookResult struct {
	Event          string `json:"event"`
	Outcome        string `json:"outcome"`
	OrganizationID string `json:"organizationId,omitempty"`
}

// HandleWebhook verifies and applies one Paystack delivery. The only error
// it returns is ErrInvalidSignature; every other failure is logged and
// reported through the result so the caller can still acknowledge it.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) (WebhookResult, error) {
	if !paystack.VerifySignature(body, signature, s.secret) {
		metrics.WebhookEvents.WithLabelValues("unknown", "invalid_signature").Inc()
		s.log.Warn("paystack webhook rejected: invalid signature")
		return WebhookResult{}, ErrInvalidSignature
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil || strings.TrimSpace(env.Event) == "" {
		metrics.WebhookEvents.WithLabelValues("unknown", OutcomeMalformed).Inc()
		s.log.Warn("paystack webhook malformed", zap.Error(err))
		return WebhookResult{Outcome: OutcomeMalformed}, nil
	}

	stored, created, recErr := s.recordWebhookEvent(ctx, env.Event, body)
	if recErr != nil {
		s.log.Error("failed to record webhook event", zap.String("event", env.Event), zap.Error(recErr))
	} else if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		metrics.WebhookEvents.WithLabelValues(env.Event, OutcomeDuplicate).Inc()
		return WebhookResult{Event: env.Event, Outcome: OutcomeDuplicate}, nil
	}

	res, err := s.applyWebhook(ctx, env)
	switch {
	case errors.Is(err, errUnresolved):
		metrics.WebhookUnresolved.Inc()
		s.log.Error("paystack webhook dropped: organization not resolved", zap.String("event", env.Event))
	case err != nil:
		s.log.Error("paystack webhook processing failed",
			zap.String("event", env.Event),
			zap.String("org_id", res.OrganizationID),
			zap.Error(err))
	}

	if stored != nil {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		if mErr := s.repo.MarkWebhookProcessed(ctx, stored.ID, msg); mErr != nil {
			s.log.Warn("failed to mark webhook processed", zap.Uint("id", stored.ID), zap.Error(mErr))
		}
	}
	metrics.WebhookEvents.WithLabelValues(env.Event, res.Outcome).Inc()
	return res, nil
}

func (s *Service) recordWebhookEvent(ctx context.Context, eventType string, body []byte) (*domainbilling.WebhookEvent, bool, error) {
	sum := sha256.Sum256(body)
	event := &domainbilling.WebhookEvent{
		Provider:       provider,
		EventID:        "hash:" + hex.EncodeToString(sum[:]),
		EventType:      eventType,
		PayloadJSON:    string(body),
		SignatureValid: true,
	}
	created, stored, err := s.repo.CreateWebhookEventIfNotExists(ctx, event)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (s *Service) applyWebhook(ctx context.Context, env webhookEnvelope) (WebhookResult, error) {
	res := WebhookResult{Event: env.Event}

	switch env.Event {
	case EventSubscriptionCreate, EventChargeSuccess, EventSubscriptionNotRenew,
		EventSubscriptionDisable, EventInvoicePaymentFailed:
	default:
		s.log.Info("paystack webhook ignored", zap.String("event", env.Event))
		res.Outcome = OutcomeIgnored
		return res, nil
	}

	var data webhookData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		res.Outcome = OutcomeMalformed
		return res, fmt.Errorf("decode data: %w", err)
	}

	// Only recurring charges touch the subscription.
	if env.Event == EventChargeSuccess && paystack.PlanCode(data.Plan) == "" {
		res.Outcome = OutcomeIgnored
		return res, nil
	}

	org, err := s.resolveOrganization(ctx, data)
	if err != nil {
		if errors.Is(err, ErrOrganizationNotFound) {
			res.Outcome = OutcomeUnresolved
			return res, errUnresolved
		}
		res.Outcome = OutcomeFailed
		return res, err
	}
	res.OrganizationID = org.ID

	release, err := s.locker.Acquire(ctx, "org:"+org.ID, 30*time.Second)
	if err != nil {
		s.log.Warn("webhook lock not acquired, continuing", zap.String("org_id", org.ID), zap.Error(err))
		release = func() {}
	}
	defer release()

	now := s.now().UTC()
	mutate := s.transition(env.Event, data, now)
	if _, err := s.repo.UpdateSubscription(ctx, org.ID, mutate); err != nil {
		res.Outcome = OutcomeFailed
		return res, err
	}

	if env.Event == EventChargeSuccess {
		plan, _ := s.catalog.ByPlanCode(paystack.PlanCode(data.Plan))
		s.recordPayment(ctx, org.ID, plan.ID, "webhook", &paystack.Transaction{
			Status:    data.Status,
			Reference: data.Reference,
			Amount:    data.Amount,
			Currency:  data.Currency,
			PaidAt:    data.PaidAt,
		})
	}

	s.log.Info("paystack webhook applied", zap.String("event", env.Event), zap.String("org_id", org.ID))
	res.Outcome = OutcomeApplied
	return res, nil
}

// transition returns the subscription change for an event.
func (s *Service) transition(event string, data webhookData, now time.Time) func(*organizations.Subscription) {
	planCode := paystack.PlanCode(data.Plan)

	switch event {
	case EventSubscriptionCreate:
		return func(sub *organizations.Subscription) {
			sub.Status = organizations.StatusActive
			sub.CancelAtPeriodEnd = false
			if data.SubscriptionCode != "" {
				sub.PaystackSubscriptionCode = data.SubscriptionCode
			}
			if data.EmailToken != "" {
				sub.PaystackEmailToken = data.EmailToken
			}
			if next := paystack.ParseTime(data.NextPaymentDate); next != nil {
				sub.NextPaymentDate = next
				sub.EndDate = next
			}
			if sub.PaystackCustomerCode == "" && data.Customer.CustomerCode != "" {
				sub.PaystackCustomerCode = data.Customer.CustomerCode
			}
			s.applyPlanCode(sub, planCode)
		}

	case EventChargeSuccess:
		return func(sub *organizations.Subscription) {
			next := now.AddDate(0, 1, 0)
			sub.Status = organizations.StatusActive
			sub.LastPaymentDate = &now
			sub.NextPaymentDate = &next
			sub.EndDate = &next
			if code := data.Authorization.AuthorizationCode; code != "" {
				sub.PaystackAuthorizationCode = code
			}
			s.applyPlanCode(sub, planCode)
		}

	case EventSubscriptionNotRenew:
		return func(sub *organizations.Subscription) {
			sub.CancelAtPeriodEnd = true
		}

	case EventSubscriptionDisable:
		return func(sub *organizations.Subscription) {
			sub.DowngradeToStarter(now)
		}

	case EventInvoicePaymentFailed:
		return func(sub *organizations.Subscription) {
			sub.Status = organizations.StatusPastDue
		}
	}
	return func(*organizations.Subscription) {}
}

func (s *Service) applyPlanCode(sub *organizations.Subscription, code string) {
	if code == "" {
		return
	}
	sub.PaystackPlanCode = code
	if p, ok := s.catalog.ByPlanCode(code); ok {
		sub.Plan = p.ID
	}
}

// resolveOrganization tries metadata orgId, then the customer code, then
// the customer email.
func (s *Service) resolveOrganization(ctx context.Context, data webhookData) (*organizations.Organization, error) {
	if id := paystack.ParseMetadata(data.Metadata).Get("orgId", "org_id", "organizationId"); id != "" {
		org, err := s.repo.GetOrganization(ctx, id)
		if err == nil {
			return org, nil
		}
		if !errors.Is(err, ErrOrganizationNotFound) {
			return nil, err
		}
	}
	if code := strings.TrimSpace(data.Customer.CustomerCode); code != "" {
		org, err := s.repo.FindOrganizationByCustomerCode(ctx, code)
		if err == nil {
			return org, nil
		}
		if !errors.Is(err, ErrOrganizationNotFound) {
			return nil, err
		}
	}
	if email := strings.TrimSpace(data.Customer.Email); email != "" {
		return s.repo.FindOrganizationByEmail(ctx, email)
	}
	return nil, ErrOrganizationNotFound
}
