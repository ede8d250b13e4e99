package access

import "tickethub/internal/domain/plans"

// CapabilitiesFor lists the features an organization can use in a state.
func CapabilitiesFor(state AccessState, plan plans.Plan) []string {
	if state != AccessFull {
		return []string{}
	}
	out := make([]string, len(plan.Features))
	copy(out, plan.Features)
	return out
}
