package warden

import "context"

// Decision forces the outcome of IsGranted without touching grants, rules,
// or graph data. Migration and backfill jobs use it to walk every object
// regardless of visibility, and tests use it to exercise authorized and
// unauthorized code paths without graph setup:
//
//	resolver := warden.New(tx, registry, warden.WithDecision(warden.DecisionAllow))
//
// The decision mechanism has two layers:
//  1. Resolver-level: set via WithDecision() at Resolver construction
//  2. Context-level: set via WithDecisionContext() and opt-in via WithContextDecision()
//
// Context-based decisions are opt-in by design. Applications must explicitly
// enable WithContextDecision() when creating the Resolver to prevent
// accidental authorization bypasses from propagating through middleware.
type Decision int

// decisionContextKey is a custom type for context keys to avoid collisions.
type decisionContextKey struct{}

var decisionKey = decisionContextKey{}

const (
	// DecisionUnset means no override - run the full resolution order.
	DecisionUnset Decision = iota

	// DecisionAllow bypasses resolution and always grants.
	// Use for migration jobs, graph repair tooling, or testing authorized
	// code paths.
	DecisionAllow

	// DecisionDeny bypasses resolution and always denies, before even the
	// superuser short-circuit. Use for testing unauthorized code paths
	// without graph setup.
	DecisionDeny
)

// WithDecisionContext returns a new context with the given decision.
//
// IMPORTANT: the Resolver does NOT automatically consult this value.
// Applications must opt-in via WithContextDecision() when creating the
// Resolver. Prefer the WithDecision option for explicit control; use
// context-based decisions when the override needs to propagate through
// layers where passing a Resolver instance is impractical.
func WithDecisionContext(ctx context.Context, decision Decision) context.Context {
	return context.WithValue(ctx, decisionKey, decision)
}

// GetDecisionContext retrieves the decision from context.
// Returns DecisionUnset if no decision is set.
func GetDecisionContext(ctx context.Context) Decision {
	if decision, ok := ctx.Value(decisionKey).(Decision); ok {
		return decision
	}
	return DecisionUnset
}
