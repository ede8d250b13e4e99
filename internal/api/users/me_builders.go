package users

import (
	"time"

	"tickethub/internal/domain/access"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/plans"
	"tickethub/internal/domain/users"
	"tickethub/internal/infra/paystack"
)

func BuildUserDTO(u users.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Lastname:     u.Lastname,
		Tel:          stringPtrIfNotEmpty(u.Tel),
		Role:         u.Role,
		IsVerified:   u.IsVerified,
		AuthProvider: u.AuthProvider,
	}
}

func BuildOrganizationDTO(org *organizations.Organization, role string) *OrganizationDTO {
	if org == nil {
		return nil
	}
	return &OrganizationDTO{
		ID:    org.ID,
		Name:  org.Name,
		Email: org.Email,
		Phone: stringPtrIfNotEmpty(org.Phone),
		Role:  role,
	}
}

func BuildPlanDTO(p plans.Plan) PlanDTO {
	return PlanDTO{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price.StringFixed(2),
		Currency: p.Currency,
	}
}

// BuildSubscriptionDTO returns nil for organizations on the free tier.
func BuildSubscriptionDTO(now time.Time, sub organizations.Subscription) *SubscriptionDTO {
	if plans.NormalizeID(sub.Plan) == plans.Starter {
		return nil
	}

	var daysLeft *int
	if end := sub.NextPaymentDate; end != nil {
		d := 0
		if now.Before(*end) {
			d = int(end.Sub(now).Hours() / 24)
		}
		daysLeft = &d
	}

	return &SubscriptionDTO{
		Status:            paystack.NormalizeSubscriptionStatus(sub.Status),
		StartDate:         sub.StartDate,
		EndDate:           sub.EndDate,
		NextPaymentDate:   sub.NextPaymentDate,
		LastPaymentDate:   sub.LastPaymentDate,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		DaysLeft:          daysLeft,
		Pending:           sub.PendingReference != "",
	}
}

func BuildAccessDTO(p access.Policy) AccessDTO {
	return AccessDTO{
		State:        string(p.State),
		Capabilities: p.Capabilities,
		Limits: &LimitsDTO{
			MaxEvents:            p.Limits.MaxEvents,
			MaxAttendeesPerEvent: p.Limits.MaxAttendeesPerEvent,
			MaxTeamMembers:       p.Limits.MaxTeamMembers,
		},
	}
}

func stringPtrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
