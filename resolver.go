package warden

import (
	"context"
	"fmt"
)

// DefaultMaxTraversalDepth is the hard ceiling on propagation recursion.
// The visited-set discipline terminates traversal on any graph; the ceiling
// only exists so that a future regression surfaces as ErrTraversalDepth
// instead of a hang.
const DefaultMaxTraversalDepth = 1000

// Resolver is the permission resolution facade. All object access (queries,
// property reads and writes, deletion) decides through IsGranted; grant and
// revoke mutations go through Grant and Revoke.
//
// Resolvers are lightweight and safe to create per transaction. They hold no
// state beyond the Store handle, the rule registry, an optional cache, and a
// decision override, and are reentrant: concurrent resolvers bound to
// different transactions do not share mutable state. The registry is
// concurrency-safe and typically process-wide.
type Resolver struct {
	store              Store
	reg                *Registry
	cache              Cache
	decision           Decision
	useContextDecision bool
	maxDepth           int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache enables caching of permission check results. The cache must be
// scoped to the Store's transaction; see Cache.
func WithCache(c Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithDecision sets a decision override that bypasses graph checks.
// Use DecisionAllow for admin tools or testing authorized paths,
// DecisionDeny for testing unauthorized paths.
func WithDecision(d Decision) Option {
	return func(r *Resolver) {
		r.decision = d
	}
}

// WithContextDecision enables context-based decision overrides. When
// enabled, IsGranted consults GetDecisionContext(ctx) before resolving.
//
// Decision precedence when enabled:
//  1. Context decision (via WithDecisionContext)
//  2. Resolver decision (via WithDecision)
//  3. Graph resolution
func WithContextDecision() Option {
	return func(r *Resolver) {
		r.useContextDecision = true
	}
}

// WithMaxTraversalDepth overrides the propagation depth ceiling.
func WithMaxTraversalDepth(n int) Option {
	return func(r *Resolver) {
		r.maxDepth = n
	}
}

// New creates a resolver over a transaction-bound Store and a rule registry.
// A nil registry is treated as empty: no propagation rules, no schema grants.
func New(store Store, reg *Registry, opts ...Option) *Resolver {
	if reg == nil {
		reg = NewRegistry()
	}
	r := &Resolver{
		store:    store,
		reg:      reg,
		decision: DecisionUnset,
		maxDepth: DefaultMaxTraversalDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the transaction-bound store the resolver operates on.
func (r *Resolver) Store() Store {
	return r.store
}

// Registry returns the rule registry the resolver consults.
func (r *Resolver) Registry() *Registry {
	return r.reg
}

// IsGranted reports whether the security context holds the permission on the
// object. Denial is (false, nil); errors indicate configuration or
// transaction-context problems, never denial.
//
// Evaluation order (first definitive result wins):
//  1. Decision overrides (context, then resolver-level)
//  2. SuperUser access mode
//  3. Effective administrative principal (explicit or inherited flag)
//  4. Ownership
//  5. Static visibility flags (read only)
//  6. Custom permission query (read/write only, definitive both ways)
//  7. Direct grants, for the principal and its transitive groups
//  8. Schema propagation over typed relationships (a Remove result denies)
//  9. Schema grants
//  10. Deny
func (r *Resolver) IsGranted(ctx context.Context, object Object, perm Permission, sctx SecurityContext) (bool, error) {
	if r.useContextDecision {
		if d := GetDecisionContext(ctx); d != DecisionUnset {
			return d == DecisionAllow, nil
		}
	}
	if r.decision != DecisionUnset {
		return r.decision == DecisionAllow, nil
	}

	if !perm.Valid() {
		return false, fmt.Errorf("%w: permission out of range", ErrInvalidRule)
	}
	if !sctx.Mode.Valid() {
		return false, fmt.Errorf("%w: access mode out of range", ErrMalformedContext)
	}

	if sctx.Mode == AccessSuperUser {
		return true, nil
	}

	if r.store == nil {
		return false, ErrNoTransaction
	}

	// Fail fast on objects outside the transaction snapshot: returning
	// false here would be indistinguishable from a denial.
	if _, ok, err := r.store.GetObject(ctx, object.ID); err != nil {
		return false, err
	} else if !ok {
		return false, fmt.Errorf("%w: %s", ErrObjectNotVisible, object)
	}

	if sctx.Authenticated() {
		if _, ok, err := ResolvePrincipal(ctx, r.store, sctx.PrincipalID); err != nil {
			return false, err
		} else if !ok {
			return false, fmt.Errorf("%w: principal %q not resolvable", ErrMalformedContext, sctx.PrincipalID)
		}

		admin, err := IsAdmin(ctx, r.store, sctx.PrincipalID)
		if err != nil {
			return false, err
		}
		if admin {
			return true, nil
		}
	}

	if r.cache != nil {
		if granted, ok := r.cache.Get(sctx, perm, object); ok {
			return granted, nil
		}
	}

	tr := newTraversal(r.maxDepth)
	granted, err := r.grantedOn(ctx, object, perm, sctx, tr, true)
	if err != nil {
		return false, err
	}

	if r.cache != nil {
		r.cache.Set(sctx, perm, object, granted)
	}

	return granted, nil
}

// grantedOn evaluates steps 4-9 of the resolution order for one object.
// It is re-entered recursively by the propagation traversal; tr carries the
// visited set across the whole resolution. withPropagation is false when
// computing the base (non-propagated) decision a Remove rule tests against.
func (r *Resolver) grantedOn(ctx context.Context, object Object, perm Permission, sctx SecurityContext, tr *traversal, withPropagation bool) (bool, error) {
	// Ownership: owners hold every permission on their objects.
	owner, err := propString(ctx, r.store, object.ID, PropOwner)
	if err != nil {
		return false, err
	}
	if owner != "" && owner == sctx.PrincipalID {
		return true, nil
	}

	if perm == PermissionRead {
		visible, err := r.visibleByFlags(ctx, object, sctx)
		if err != nil {
			return false, err
		}
		if visible {
			return true, nil
		}
	}

	// Everything below needs a principal.
	if !sctx.Authenticated() {
		return false, nil
	}

	if result, present, err := r.customQueryResult(ctx, perm, sctx.PrincipalID, object.ID); err != nil {
		return false, err
	} else if present {
		return result, nil
	}

	if granted, err := r.directlyGranted(ctx, object, perm, sctx.PrincipalID); err != nil {
		return false, err
	} else if granted {
		return true, nil
	}

	if withPropagation {
		switch state, err := r.resolvePropagated(ctx, object, perm, sctx, tr); {
		case err != nil:
			return false, err
		case state == propagationGranted:
			return true, nil
		case state == propagationDenied:
			// A Remove rule overrides the remaining steps.
			return false, nil
		}
	}

	return r.SchemaGrantAllows(ctx, perm, sctx.PrincipalID, object.Type)
}

// visibleByFlags applies the static visibility flags. Hidden objects never
// become visible through flags, regardless of mode; grants still apply.
func (r *Resolver) visibleByFlags(ctx context.Context, object Object, sctx SecurityContext) (bool, error) {
	hidden, err := propBool(ctx, r.store, object.ID, PropHidden)
	if err != nil {
		return false, err
	}
	if hidden {
		return false, nil
	}

	if sctx.Mode == AccessPublic || sctx.Mode == AccessFrontend {
		public, err := propBool(ctx, r.store, object.ID, PropVisibleToPublic)
		if err != nil {
			return false, err
		}
		if public {
			return true, nil
		}
	}

	if sctx.Authenticated() {
		auth, err := propBool(ctx, r.store, object.ID, PropVisibleToAuth)
		if err != nil {
			return false, err
		}
		if auth {
			return true, nil
		}
	}

	return false, nil
}

// directlyGranted checks the object's SECURITY relationships against the
// principal and its transitive group closure.
func (r *Resolver) directlyGranted(ctx context.Context, object Object, perm Permission, principalID string) (bool, error) {
	rels, err := r.store.Relationships(ctx, object.ID, RelSecurity, Outgoing)
	if err != nil {
		return false, err
	}
	if len(rels) == 0 {
		return false, nil
	}

	granted := make(map[string]PermissionSet, len(rels))
	for _, rel := range rels {
		raw, err := propString(ctx, r.store, rel.ID, PropAllowed)
		if err != nil {
			return false, err
		}
		set, err := ParsePermissionSet(raw)
		if err != nil {
			return false, err
		}
		granted[rel.ToID] = set
	}

	if granted[principalID].Has(perm) {
		return true, nil
	}

	// Group grants are resolved against the live closure on every call;
	// membership changes earlier in the transaction are already visible.
	closure, err := groupClosureIDs(ctx, r.store, principalID)
	if err != nil {
		return false, err
	}
	for groupID := range closure {
		if granted[groupID].Has(perm) {
			return true, nil
		}
	}

	return false, nil
}

// TransitiveGroupsOf exposes the group closure of a principal, computed
// against the resolver's transaction.
func (r *Resolver) TransitiveGroupsOf(ctx context.Context, principalID string) ([]Principal, error) {
	return TransitiveGroupsOf(ctx, r.store, principalID)
}

// Must panics if the permission check fails or errors. Use for internal
// invariants where unauthorized access indicates a bug in the calling code;
// prefer IsGranted for user-facing authorization.
func (r *Resolver) Must(ctx context.Context, object Object, perm Permission, sctx SecurityContext) {
	ok, err := r.IsGranted(ctx, object, perm, sctx)
	if err != nil {
		panic(fmt.Sprintf("warden.Must: %v", err))
	}
	if !ok {
		panic(fmt.Sprintf("warden.Must: %s denied %s on %s", sctx.PrincipalID, perm, object))
	}
}
