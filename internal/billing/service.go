package billing

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tickethub/internal/domain/access"
	domainbilling "tickethub/internal/domain/billing"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/plans"
	"tickethub/internal/infra/lock"
	"tickethub/internal/infra/paystack"
	"tickethub/internal/metrics"
)

// Gateway is the subset of the Paystack API the billing flows use.
type Gateway interface {
	Configured() bool
	CreateCustomer(ctx context.Context, req paystack.CustomerRequest) (*paystack.Customer, error)
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
	FetchSubscription(ctx context.Context, code string) (*paystack.Subscription, error)
	ManageLink(ctx context.Context, code string) (string, error)
	DisableSubscription(ctx context.Context, code, emailToken string) error
}

type Options struct {
	Catalog plans.Catalog
	// CallbackURL is where Paystack sends the customer after checkout.
	CallbackURL string
	// WebhookSecret signs webhook deliveries; Paystack uses the secret key.
	WebhookSecret string
	Locker        lock.Locker
	Logger        *zap.Logger
}

// Service owns the subscription state of organizations.
type Service struct {
	repo    Repository
	gateway Gateway
	catalog plans.Catalog
	cbURL   string
	secret  string
	locker  lock.Locker
	log     *zap.Logger
	now     func() time.Time
}

func NewService(repo Repository, gateway Gateway, opts Options) *Service {
	s := &Service{
		repo:    repo,
		gateway: gateway,
		catalog: opts.Catalog,
		cbURL:   opts.CallbackURL,
		secret:  opts.WebhookSecret,
		locker:  opts.Locker,
		log:     opts.Logger,
		now:     time.Now,
	}
	if s.locker == nil {
		s.locker = lock.Noop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *Service) Catalog() plans.Catalog { return s.catalog }

// WebhookConfigured reports whether deliveries can be authenticated.
func (s *Service) WebhookConfigured() bool { return strings.TrimSpace(s.secret) != "" }

func (s *Service) gatewayReady() bool {
	return s.gateway != nil && s.gateway.Configured()
}

func newReference() string {
	return "sub_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
	Reference        string `json:"reference"`
}

// Initialize starts a hosted checkout for a paid plan and remembers the
// transaction reference on the organization.
func (s *Service) Initialize(ctx context.Context, planID, orgID string) (res *InitializeResult, err error) {
	defer func() { metrics.BillingOperations.WithLabelValues("initialize", metrics.Outcome(err)).Inc() }()

	planID = strings.TrimSpace(planID)
	orgID = strings.TrimSpace(orgID)
	if planID == "" || orgID == "" {
		return nil, ErrMissingFields
	}
	plan, ok := s.catalog.Get(planID)
	if !ok || !plan.IsPaid() {
		return nil, ErrInvalidPlan
	}
	if plan.PaystackPlanCode == "" {
		return nil, ErrPlanNotConfigured
	}
	if !s.gatewayReady() {
		return nil, ErrGatewayNotConfigured
	}

	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(org.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}

	customerCode := org.Subscription.PaystackCustomerCode
	if customerCode == "" {
		cust, err := s.gateway.CreateCustomer(ctx, paystack.CustomerRequest{
			Email:     email,
			FirstName: org.Name,
			Phone:     org.Phone,
			Metadata:  map[string]string{"orgId": org.ID},
		})
		if err != nil {
			return nil, gatewayErr("create customer", err)
		}
		customerCode = cust.CustomerCode
	}

	ref := newReference()
	checkout, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       email,
		Amount:      strconv.FormatInt(plan.AmountMinor(), 10),
		Currency:    plan.Currency,
		Plan:        plan.PaystackPlanCode,
		Reference:   ref,
		CallbackURL: s.cbURL,
		Metadata:    map[string]string{"orgId": org.ID, "planId": plan.ID},
	})
	if err != nil {
		return nil, gatewayErr("initialize transaction", err)
	}
	if checkout.Reference != "" {
		ref = checkout.Reference
	}

	if _, err := s.repo.UpdateSubscription(ctx, org.ID, func(sub *organizations.Subscription) {
		sub.PendingReference = ref
		if customerCode != "" {
			sub.PaystackCustomerCode = customerCode
		}
	}); err != nil {
		return nil, err
	}

	s.log.Info("checkout initialized",
		zap.String("org_id", org.ID),
		zap.String("plan", plan.ID),
		zap.String("reference", ref))

	return &InitializeResult{
		AuthorizationURL: checkout.AuthorizationURL,
		AccessCode:       checkout.AccessCode,
		Reference:        ref,
	}, nil
}

type VerifyResult struct {
	Organization *organizations.Organization `json:"organization"`
	Plan         plans.Plan                  `json:"plan"`
	Reference    string                      `json:"reference"`
}

// Verify confirms a checkout with the gateway and activates the plan. A
// transaction that is not "success" leaves the organization untouched.
//
// The billing period is set to one calendar month from now; the
// subscription.create webhook later replaces it with the gateway's
// next_payment_date.
func (s *Service) Verify(ctx context.Context, reference, orgID string) (res *VerifyResult, err error) {
	defer func() { metrics.BillingOperations.WithLabelValues("verify", metrics.Outcome(err)).Inc() }()

	reference = strings.TrimSpace(reference)
	orgID = strings.TrimSpace(orgID)
	if reference == "" {
		return nil, ErrMissingFields
	}
	if !s.gatewayReady() {
		return nil, ErrGatewayNotConfigured
	}

	tx, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, gatewayErr("verify transaction", err)
	}
	if !strings.EqualFold(tx.Status, "success") {
		return nil, &PaymentStatusError{Status: tx.Status}
	}

	meta := tx.MetadataMap()
	metaOrg := meta.Get("orgId", "org_id", "organizationId")
	switch {
	case orgID != "" && metaOrg != "" && orgID != metaOrg:
		return nil, ErrReferenceMismatch
	case orgID == "":
		orgID = metaOrg
	}
	if orgID == "" {
		org, err := s.repo.FindOrganizationByPendingReference(ctx, reference)
		if err != nil {
			return nil, err
		}
		orgID = org.ID
	}

	plan, ok := s.catalog.Get(meta.Get("planId", "plan_id"))
	if !ok || !plan.IsPaid() {
		plan, ok = s.catalog.ByPlanCode(tx.PlanCode())
	}
	if !ok || !plan.IsPaid() {
		return nil, ErrInvalidPlan
	}

	now := s.now().UTC()
	next := now.AddDate(0, 1, 0)
	org, err := s.repo.UpdateSubscription(ctx, orgID, func(sub *organizations.Subscription) {
		sub.Plan = plan.ID
		sub.Status = organizations.StatusActive
		sub.StartDate = &now
		sub.EndDate = &next
		sub.LastPaymentDate = &now
		sub.NextPaymentDate = &next
		sub.CancelAtPeriodEnd = false
		sub.PendingReference = ""
		if code := tx.Customer.CustomerCode; code != "" {
			sub.PaystackCustomerCode = code
		}
		if code := tx.Authorization.AuthorizationCode; code != "" {
			sub.PaystackAuthorizationCode = code
		}
		if code := tx.PlanCode(); code != "" {
			sub.PaystackPlanCode = code
		}
	})
	if err != nil {
		return nil, err
	}

	s.recordPayment(ctx, org.ID, plan.ID, "verify", tx)
	s.log.Info("subscription activated",
		zap.String("org_id", org.ID),
		zap.String("plan", plan.ID),
		zap.String("reference", reference))

	return &VerifyResult{Organization: org, Plan: plan, Reference: reference}, nil
}

func (s *Service) recordPayment(ctx context.Context, orgID, planID, source string, tx *paystack.Transaction) {
	paidAt := paystack.ParseTime(tx.PaidAt)
	if paidAt == nil {
		now := s.now().UTC()
		paidAt = &now
	}
	p := &domainbilling.Payment{
		OrganizationID: orgID,
		Plan:           planID,
		Reference:      tx.Reference,
		AmountMinor:    tx.Amount,
		Currency:       tx.Currency,
		Status:         strings.ToLower(tx.Status),
		Source:         source,
		PaidAt:         paidAt,
	}
	if p.Reference == "" {
		return
	}
	if err := s.repo.RecordPayment(ctx, p); err != nil {
		s.log.Warn("failed to record payment", zap.String("reference", p.Reference), zap.Error(err))
	}
}

type ManageResult struct {
	Subscription  organizations.Subscription `json:"subscription"`
	Plan          plans.Plan                 `json:"plan"`
	Access        access.AccessState         `json:"access"`
	Capabilities  []string                   `json:"capabilities"`
	Limits        plans.Limits               `json:"limits"`
	GatewayStatus string                     `json:"gatewayStatus,omitempty"`
	ManageLink    string                     `json:"manageLink,omitempty"`
}

// Manage describes the current subscription. Gateway details are fetched
// best effort and omitted when the gateway is unreachable.
func (s *Service) Manage(ctx context.Context, orgID string) (*ManageResult, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, ErrMissingFields
	}
	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	policy := access.ComputePolicy(s.now(), *org, s.catalog)
	out := &ManageResult{
		Subscription: org.Subscription,
		Plan:         policy.Plan,
		Access:       policy.State,
		Capabilities: policy.Capabilities,
		Limits:       policy.Limits,
	}

	code := org.Subscription.PaystackSubscriptionCode
	if code == "" || !s.gatewayReady() {
		return out, nil
	}
	if sub, err := s.gateway.FetchSubscription(ctx, code); err != nil {
		s.log.Warn("fetch subscription failed", zap.String("org_id", orgID), zap.Error(err))
	} else {
		out.GatewayStatus = paystack.NormalizeSubscriptionStatus(sub.Status)
	}
	if link, err := s.gateway.ManageLink(ctx, code); err != nil {
		s.log.Warn("manage link failed", zap.String("org_id", orgID), zap.Error(err))
	} else {
		out.ManageLink = link
	}
	return out, nil
}

// Cancel disables the recurring subscription at the gateway and moves the
// organization to starter. The local downgrade happens even if the gateway
// call fails, and cancelling a starter organization succeeds.
func (s *Service) Cancel(ctx context.Context, orgID string) (org *organizations.Organization, err error) {
	defer func() { metrics.BillingOperations.WithLabelValues("cancel", metrics.Outcome(err)).Inc() }()

	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, ErrMissingFields
	}
	current, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	sub := current.Subscription
	if sub.PaystackSubscriptionCode != "" && sub.PaystackEmailToken != "" && s.gatewayReady() {
		if err := s.gateway.DisableSubscription(ctx, sub.PaystackSubscriptionCode, sub.PaystackEmailToken); err != nil {
			s.log.Warn("gateway disable failed, downgrading locally",
				zap.String("org_id", orgID),
				zap.String("subscription_code", sub.PaystackSubscriptionCode),
				zap.Error(err))
		}
	}

	now := s.now().UTC()
	org, err = s.repo.UpdateSubscription(ctx, orgID, func(sub *organizations.Subscription) {
		sub.DowngradeToStarter(now)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("subscription cancelled", zap.String("org_id", orgID))
	return org, nil
}

func (s *Service) ListPayments(ctx context.Context, orgID string, limit int) ([]domainbilling.Payment, error) {
	if strings.TrimSpace(orgID) == "" {
		return nil, ErrMissingFields
	}
	return s.repo.ListPayments(ctx, orgID, limit)
}

// IsNotFound reports whether err means the organization does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrganizationNotFound)
}
