package access

import (
	"time"

	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/plans"
)

type Policy struct {
	State        AccessState
	Plan         plans.Plan
	Capabilities []string
	Limits       plans.Limits
}

// ComputePolicy resolves the effective plan for an organization. Outside of
// AccessFull the starter limits apply.
func ComputePolicy(now time.Time, org organizations.Organization, catalog plans.Catalog) Policy {
	state := ComputeEffectiveAccessState(now, org.Subscription)
	plan := catalog.Effective(org.Subscription.Plan)

	limits := plan.Limits
	if state != AccessFull {
		limits = catalog.Effective(plans.Starter).Limits
	}

	return Policy{
		State:        state,
		Plan:         plan,
		Capabilities: CapabilitiesFor(state, plan),
		Limits:       limits,
	}
}

func (p Policy) Allows(feature string) bool {
	for _, f := range p.Capabilities {
		if f == feature {
			return true
		}
	}
	return false
}
