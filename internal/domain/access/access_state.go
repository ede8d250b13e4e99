package access

import (
	"time"

	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/plans"
	"tickethub/internal/infra/paystack"
)

// ComputeEffectiveAccessState decides what an organization may use right now.
func ComputeEffectiveAccessState(now time.Time, sub organizations.Subscription) AccessState {
	if plans.NormalizeID(sub.Plan) == plans.Starter {
		return AccessFree
	}

	switch paystack.NormalizeSubscriptionStatus(sub.Status) {
	case organizations.StatusActive:
		// cancelled at period end keeps access until the paid-through date
		if sub.CancelAtPeriodEnd && sub.NextPaymentDate != nil && now.After(*sub.NextPaymentDate) {
			return AccessFree
		}
		return AccessFull
	case organizations.StatusPastDue:
		return AccessGrace
	default:
		return AccessFree
	}
}
