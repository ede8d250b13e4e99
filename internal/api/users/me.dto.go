package users

import "time"

type MeResponse struct {
	User         UserDTO          `json:"user"`
	Organization *OrganizationDTO `json:"organization"`
	Billing      *BillingDTO      `json:"billing"`
	Access       AccessDTO        `json:"access"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID           uint    `json:"id"`
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	Lastname     string  `json:"lastname"`
	Tel          *string `json:"tel"`
	Role         string  `json:"role"`
	IsVerified   bool    `json:"is_verified"`
	AuthProvider string  `json:"auth_provider"`
}

/* ---------- ORGANIZATION ---------- */

type OrganizationDTO struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone"`
	Role  string  `json:"role"` // owner|member
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	Plan         PlanDTO          `json:"plan"`
	Subscription *SubscriptionDTO `json:"subscription"`
}

type PlanDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

type SubscriptionDTO struct {
	Status            string     `json:"status"`
	StartDate         *time.Time `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
	NextPaymentDate   *time.Time `json:"next_payment_date"`
	LastPaymentDate   *time.Time `json:"last_payment_date"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	DaysLeft          *int       `json:"days_left"`
	Pending           bool       `json:"pending"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	State        string     `json:"state"` // full|grace|free|none
	Capabilities []string   `json:"capabilities"`
	Limits       *LimitsDTO `json:"limits,omitempty"`
}

type LimitsDTO struct {
	MaxEvents            int `json:"max_events"`
	MaxAttendeesPerEvent int `json:"max_attendees_per_event"`
	MaxTeamMembers       int `json:"max_team_members"`
}
