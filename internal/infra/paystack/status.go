package paystack

import "strings"

// NormalizeSubscriptionStatus folds gateway subscription states onto the
// statuses stored on an organization.
func NormalizeSubscriptionStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "none"
	case "active", "non-renewing":
		return "active"
	case "attention", "past_due":
		return "past_due"
	case "completed", "cancelled", "canceled":
		return "cancelled"
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}
