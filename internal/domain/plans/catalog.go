package plans

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Catalog is the static, read-only plan list. Gateway plan codes are
// injected from configuration because they differ per environment.
type Catalog struct {
	plans map[string]Plan
}

// NewCatalog builds the catalog. Empty plan codes leave the paid plan
// unconfigured; checkout for it fails until the code is set.
func NewCatalog(proPlanCode, businessPlanCode string) Catalog {
	return Catalog{plans: map[string]Plan{
		Starter: {
			ID:       Starter,
			Name:     "Starter",
			Price:    decimal.Zero,
			Currency: "GHS",
			Features: []string{},
			Limits:   Limits{MaxEvents: 3, MaxAttendeesPerEvent: 100, MaxTeamMembers: 1},
		},
		Pro: {
			ID:               Pro,
			Name:             "Pro",
			Price:            decimal.NewFromInt(20),
			Currency:         "GHS",
			PaystackPlanCode: strings.TrimSpace(proPlanCode),
			Features:         []string{FeatureBulkEmail, FeatureAIContent, FeatureCustomBanner, FeatureTeamInvites},
			Limits:           Limits{MaxEvents: 25, MaxAttendeesPerEvent: 1000, MaxTeamMembers: 5},
		},
		Business: {
			ID:               Business,
			Name:             "Business",
			Price:            decimal.NewFromInt(75),
			Currency:         "GHS",
			PaystackPlanCode: strings.TrimSpace(businessPlanCode),
			Features: []string{FeatureBulkEmail, FeatureSMS, FeatureAIContent, FeatureCustomBanner,
				FeatureTeamInvites, FeatureCheckInExport},
			Limits: Limits{MaxEvents: 0, MaxAttendeesPerEvent: 0, MaxTeamMembers: 25},
		},
	}}
}

// Get returns the plan with the exact id.
func (c Catalog) Get(id string) (Plan, bool) {
	p, ok := c.plans[strings.ToLower(strings.TrimSpace(id))]
	return p, ok
}

// Effective returns the plan for a stored plan id, defaulting to starter.
func (c Catalog) Effective(id string) Plan {
	return c.plans[NormalizeID(id)]
}

// ByPlanCode finds the plan configured with a gateway plan code.
func (c Catalog) ByPlanCode(code string) (Plan, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Plan{}, false
	}
	for _, p := range c.plans {
		if p.PaystackPlanCode == code {
			return p, true
		}
	}
	return Plan{}, false
}

// List returns all plans cheapest first.
func (c Catalog) List() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return Rank(out[i].ID) < Rank(out[j].ID) })
	return out
}
