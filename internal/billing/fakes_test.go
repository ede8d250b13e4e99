package billing

import (
	"context"
	"strings"
	"sync"

	domainbilling "tickethub/internal/domain/billing"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/plans"
	"tickethub/internal/infra/paystack"
)

type fakeRepo struct {
	mu       sync.Mutex
	orgs     map[string]*organizations.Organization
	payments []domainbilling.Payment
	events   []*domainbilling.WebhookEvent
	updates  int
}

func newFakeRepo(orgs ...organizations.Organization) *fakeRepo {
	r := &fakeRepo{orgs: map[string]*organizations.Organization{}}
	for i := range orgs {
		o := orgs[i]
		r.orgs[o.ID] = &o
	}
	return r
}

func (r *fakeRepo) find(match func(*organizations.Organization) bool) (*organizations.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orgs {
		if match(o) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrOrganizationNotFound
}

func (r *fakeRepo) org(id string) organizations.Organization {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.orgs[id]
}

func (r *fakeRepo) GetOrganization(_ context.Context, id string) (*organizations.Organization, error) {
	return r.find(func(o *organizations.Organization) bool { return o.ID == id })
}

func (r *fakeRepo) FindOrganizationByCustomerCode(_ context.Context, code string) (*organizations.Organization, error) {
	return r.find(func(o *organizations.Organization) bool { return o.Subscription.PaystackCustomerCode == code })
}

func (r *fakeRepo) FindOrganizationByEmail(_ context.Context, email string) (*organizations.Organization, error) {
	return r.find(func(o *organizations.Organization) bool { return strings.EqualFold(o.Email, email) })
}

func (r *fakeRepo) FindOrganizationByPendingReference(_ context.Context, ref string) (*organizations.Organization, error) {
	return r.find(func(o *organizations.Organization) bool { return o.Subscription.PendingReference == ref })
}

func (r *fakeRepo) UpdateSubscription(_ context.Context, orgID string, mutate func(*organizations.Subscription)) (*organizations.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orgs[orgID]
	if !ok {
		return nil, ErrOrganizationNotFound
	}
	mutate(&o.Subscription)
	r.updates++
	cp := *o
	return &cp, nil
}

func (r *fakeRepo) RecordPayment(_ context.Context, p *domainbilling.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payments {
		if existing.Reference == p.Reference {
			return nil
		}
	}
	r.payments = append(r.payments, *p)
	return nil
}

func (r *fakeRepo) ListPayments(_ context.Context, orgID string, _ int) ([]domainbilling.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domainbilling.Payment
	for _, p := range r.payments {
		if p.OrganizationID == orgID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(_ context.Context, ev *domainbilling.WebhookEvent) (bool, *domainbilling.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Provider == ev.Provider && e.EventID == ev.EventID {
			cp := *e
			return false, &cp, nil
		}
	}
	ev.ID = uint(len(r.events) + 1)
	stored := *ev
	r.events = append(r.events, &stored)
	cp := stored
	return true, &cp, nil
}

func (r *fakeRepo) MarkWebhookProcessed(_ context.Context, id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			now := e.CreatedAt
			e.ProcessedAt = &now
			e.ProcessingError = processingError
		}
	}
	return nil
}

type fakeGateway struct {
	configured bool

	customer    *paystack.Customer
	customerErr error
	customers   int

	initReq paystack.InitializeRequest
	initErr error

	tx        *paystack.Transaction
	verifyErr error

	sub        *paystack.Subscription
	disableErr error
	disabled   []string
}

func (g *fakeGateway) Configured() bool { return g.configured }

func (g *fakeGateway) CreateCustomer(_ context.Context, req paystack.CustomerRequest) (*paystack.Customer, error) {
	g.customers++
	if g.customerErr != nil {
		return nil, g.customerErr
	}
	if g.customer != nil {
		return g.customer, nil
	}
	return &paystack.Customer{CustomerCode: "CUS_new", Email: req.Email}, nil
}

func (g *fakeGateway) InitializeTransaction(_ context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error) {
	g.initReq = req
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &paystack.InitializeResult{
		AuthorizationURL: "https://checkout.paystack.com/" + req.Reference,
		AccessCode:       "ac_1",
		Reference:        req.Reference,
	}, nil
}

func (g *fakeGateway) VerifyTransaction(_ context.Context, ref string) (*paystack.Transaction, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.tx, nil
}

func (g *fakeGateway) FetchSubscription(_ context.Context, code string) (*paystack.Subscription, error) {
	if g.sub == nil {
		return nil, &paystack.APIError{StatusCode: 404, Message: "Subscription not found"}
	}
	return g.sub, nil
}

func (g *fakeGateway) ManageLink(_ context.Context, code string) (string, error) {
	return "https://paystack.com/manage/" + code, nil
}

func (g *fakeGateway) DisableSubscription(_ context.Context, code, token string) error {
	g.disabled = append(g.disabled, code)
	return g.disableErr
}

const testSecret = "sk_test_secret"

func testCatalog() plans.Catalog {
	return plans.NewCatalog("PLN_x", "PLN_biz")
}

func newTestService(repo *fakeRepo, gw *fakeGateway) *Service {
	return NewService(repo, gw, Options{
		Catalog:       testCatalog(),
		CallbackURL:   "https://app.example.com/billing/callback",
		WebhookSecret: testSecret,
	})
}
