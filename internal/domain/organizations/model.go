package organizations

import "time"

// Subscription statuses stored on an organization.
const (
	StatusActive  = "active"
	StatusPastDue = "past_due"
)

type Organization struct {
	ID          string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Email       string `gorm:"index" json:"email"`
	Phone       string `json:"phone,omitempty"`
	OwnerUserID *uint  `gorm:"index" json:"ownerUserId,omitempty"`

	Subscription Subscription `gorm:"embedded;embeddedPrefix:subscription_" json:"subscription"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Subscription is the billing state of an organization. Only the billing
// service and the payment webhook write to it.
type Subscription struct {
	Plan              string     `gorm:"type:varchar(32);not null;default:'starter'" json:"plan"`
	Status            string     `gorm:"type:varchar(32);not null;default:'active'" json:"status"`
	StartDate         *time.Time `json:"startDate,omitempty"`
	EndDate           *time.Time `json:"endDate,omitempty"`
	NextPaymentDate   *time.Time `json:"nextPaymentDate,omitempty"`
	LastPaymentDate   *time.Time `json:"lastPaymentDate,omitempty"`
	CancelAtPeriodEnd bool       `gorm:"not null;default:false" json:"cancelAtPeriodEnd"`

	PaystackCustomerCode      string `gorm:"index" json:"paystackCustomerCode,omitempty"`
	PaystackSubscriptionCode  string `gorm:"index" json:"paystackSubscriptionCode,omitempty"`
	PaystackEmailToken        string `json:"-"`
	PaystackAuthorizationCode string `json:"-"`
	PaystackPlanCode          string `json:"paystackPlanCode,omitempty"`
	PendingReference          string `gorm:"index" json:"pendingReference,omitempty"`
}

// NewOrganization returns an organization on the free tier.
func NewOrganization(id, name, email string, owner *uint) Organization {
	return Organization{
		ID:          id,
		Name:        name,
		Email:       email,
		OwnerUserID: owner,
		Subscription: Subscription{
			Plan:   "starter",
			Status: StatusActive,
		},
	}
}

// DowngradeToStarter resets the subscription to the free tier and forgets
// every gateway identifier tied to the recurring subscription. The customer
// code is kept so a later checkout reuses the same gateway customer.
// Calling it on an organization that is already on starter is a no-op apart
// from the end date.
func (s *Subscription) DowngradeToStarter(now time.Time) {
	s.Plan = "starter"
	s.Status = StatusActive
	s.EndDate = &now
	s.NextPaymentDate = nil
	s.CancelAtPeriodEnd = false
	s.PaystackSubscriptionCode = ""
	s.PaystackEmailToken = ""
	s.PaystackAuthorizationCode = ""
	s.PaystackPlanCode = ""
	s.PendingReference = ""
}
