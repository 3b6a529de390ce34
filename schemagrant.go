package warden

import "context"

// SchemaGrantAllows reports whether any schema grant on the object type
// allows the permission to the principal. A grant qualifies when its group
// is the principal itself or appears in the principal's transitive group
// closure.
//
// The closure is recomputed per call from the live transaction state, so
// deleting an intermediate group in a membership chain revokes the derived
// access immediately; there is no grant cache to invalidate.
func (r *Resolver) SchemaGrantAllows(ctx context.Context, perm Permission, principalID, objectType string) (bool, error) {
	grants := r.reg.GrantsFor(objectType)
	if len(grants) == 0 {
		return false, nil
	}

	// Cheap pass first: grants naming the principal directly.
	relevant := false
	for _, g := range grants {
		if !g.Allow.Has(perm) {
			continue
		}
		if g.GroupID == principalID {
			return true, nil
		}
		relevant = true
	}
	if !relevant {
		return false, nil
	}

	closure, err := groupClosureIDs(ctx, r.store, principalID)
	if err != nil {
		return false, err
	}
	for _, g := range grants {
		if !g.Allow.Has(perm) {
			continue
		}
		if _, ok := closure[g.GroupID]; ok {
			return true, nil
		}
	}

	return false, nil
}
