package warden

import "context"

// propagationState is the tri-state outcome of the propagation traversal for
// one (object, permission) pair.
type propagationState int

const (
	// propagationUnset: no rule applied; resolution falls through.
	propagationUnset propagationState = iota

	// propagationGranted: an Add rule propagated the permission.
	propagationGranted

	// propagationDenied: a Remove rule revoked an otherwise granted
	// permission. Denial takes precedence over Add results.
	propagationDenied
)

// visitKey identifies one propagation evaluation. The principal is constant
// within a resolution, so (object, permission) suffices as the
// (object, permission, principal) triple the termination guard requires.
type visitKey struct {
	objectID string
	perm     Permission
}

// traversal is the call-local state of one resolution: the visited set that
// terminates cyclic walks and the depth counter backing the hard ceiling.
type traversal struct {
	visited  map[visitKey]struct{}
	depth    int
	maxDepth int
}

func newTraversal(maxDepth int) *traversal {
	return &traversal{
		visited:  make(map[visitKey]struct{}),
		maxDepth: maxDepth,
	}
}

// resolvePropagated walks the object's relationships and applies the
// registry's propagation rules for the permission, per relationship
// instance:
//
//  1. Skip instances whose rule direction excludes the walked direction:
//     an incoming relationship propagates to the object under Out, an
//     outgoing one under In, either under Both.
//  2. Skip instances whose rule mode for the permission is None.
//  3. Remove: if the neighbor's base (non-propagated) decision would grant
//     the permission, the object is denied.
//  4. Add: if the neighbor grants the permission, recursively including its
//     own propagation, the object is granted.
//
// The recursion makes chains transitive: a chain of k same-typed
// relationships propagates across all k hops. Each (object, permission) is
// evaluated at most once per resolution, which both terminates
// self-relationship cycles and excludes back-propagation along the edge just
// walked.
//
// If both an Add and a Remove apply from different neighbors, Remove wins.
func (r *Resolver) resolvePropagated(ctx context.Context, object Object, perm Permission, sctx SecurityContext, tr *traversal) (propagationState, error) {
	k := visitKey{objectID: object.ID, perm: perm}
	if _, seen := tr.visited[k]; seen {
		return propagationUnset, nil
	}
	tr.visited[k] = struct{}{}

	tr.depth++
	defer func() { tr.depth-- }()
	if tr.depth > tr.maxDepth {
		return propagationUnset, ErrTraversalDepth
	}

	rels, err := r.store.Relationships(ctx, object.ID, "", AnyDirection)
	if err != nil {
		return propagationUnset, err
	}

	removed := false
	added := false

	for _, rel := range rels {
		rule, ok := r.reg.RuleFor(rel.Type)
		if !ok || rule.Direction == DirectionNone {
			continue
		}

		var neighborID string
		switch {
		case rel.ToID == object.ID && (rule.Direction == DirectionOut || rule.Direction == DirectionBoth):
			// Incoming edge: the object inherits from the source.
			neighborID = rel.FromID
		case rel.FromID == object.ID && (rule.Direction == DirectionIn || rule.Direction == DirectionBoth):
			// Outgoing edge: the object inherits from the target.
			neighborID = rel.ToID
		default:
			continue
		}

		mode := rule.ModeFor(perm)
		if mode == ModeNone {
			continue
		}

		neighbor, ok, err := r.store.GetObject(ctx, neighborID)
		if err != nil {
			return propagationUnset, err
		}
		if !ok {
			continue
		}

		switch mode {
		case ModeRemove:
			granted, err := r.grantedOn(ctx, neighbor, perm, sctx, tr, false)
			if err != nil {
				return propagationUnset, err
			}
			if granted {
				removed = true
			}
		case ModeAdd:
			if removed {
				// Remove already decided the outcome.
				continue
			}
			granted, err := r.grantedOn(ctx, neighbor, perm, sctx, tr, true)
			if err != nil {
				return propagationUnset, err
			}
			if granted {
				added = true
			}
		}
	}

	if removed {
		return propagationDenied, nil
	}
	if added {
		return propagationGranted, nil
	}
	return propagationUnset, nil
}
