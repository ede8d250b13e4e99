package plans

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Plan ids (single source of truth)
const (
	Starter  = "starter"
	Pro      = "pro"
	Business = "business"
)

// Features gated by plan.
const (
	FeatureBulkEmail     = "bulk_email"
	FeatureSMS           = "sms"
	FeatureAIContent     = "ai_content"
	FeatureCustomBanner  = "custom_banner"
	FeatureTeamInvites   = "team_invites"
	FeatureCheckInExport = "check_in_export"
)

type Limits struct {
	MaxEvents            int `json:"maxEvents"`            // 0 = unlimited
	MaxAttendeesPerEvent int `json:"maxAttendeesPerEvent"` // 0 = unlimited
	MaxTeamMembers       int `json:"maxTeamMembers"`
}

type Plan struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	PaystackPlanCode string          `json:"paystackPlanCode,omitempty"`
	Features         []string        `json:"features"`
	Limits           Limits          `json:"limits"`
}

func (p Plan) IsPaid() bool {
	return p.Price.GreaterThan(decimal.Zero)
}

// AmountMinor is the price in the currency's minor unit (pesewas, kobo),
// which is what the payment gateway expects.
func (p Plan) AmountMinor() int64 {
	return p.Price.Shift(2).Round(0).IntPart()
}

func (p Plan) Has(feature string) bool {
	for _, f := range p.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// NormalizeID maps free-form plan ids onto the catalog ids. Unknown values
// fall back to starter.
func NormalizeID(id string) string {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case Pro:
		return Pro
	case Business:
		return Business
	case Starter, "free", "":
		return Starter
	default:
		return Starter
	}
}

func Rank(id string) int {
	switch NormalizeID(id) {
	case Business:
		return 2
	case Pro:
		return 1
	default:
		return 0
	}
}
