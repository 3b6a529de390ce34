package warden

import (
	"context"
	"fmt"
)

// DirectPermissions returns the permission set of the SECURITY relationship
// from object to principal, or the empty set if no such relationship exists.
// Only the direct grant is consulted; group closure, propagation, and schema
// grants are the resolver's concern.
func (r *Resolver) DirectPermissions(ctx context.Context, principalID string, object Object) (PermissionSet, error) {
	if r.store == nil {
		return 0, ErrNoTransaction
	}
	_, set, ok, err := r.securityRelationship(ctx, object.ID, principalID)
	if err != nil || !ok {
		return 0, err
	}
	return set, nil
}

// Grant adds the permission to the SECURITY relationship from object to
// principal, creating the relationship if absent. The acting context needs
// accessControl on the object, except for the object's owner and superusers:
// owners may always manage grants on what they own.
//
// The mutation is visible to later checks in the same transaction and rolls
// back with it.
func (r *Resolver) Grant(ctx context.Context, sctx SecurityContext, perm Permission, principalID string, object Object) error {
	if r.store == nil {
		return ErrNoTransaction
	}
	if !perm.Valid() {
		return fmt.Errorf("%w: permission out of range", ErrInvalidRule)
	}
	if err := r.requireAccessControl(ctx, sctx, object); err != nil {
		return err
	}

	rel, set, ok, err := r.securityRelationship(ctx, object.ID, principalID)
	if err != nil {
		return err
	}

	set = set.Add(perm)
	if ok {
		err = r.store.SetProperty(ctx, rel.ID, PropAllowed, set.String())
	} else {
		_, err = r.store.CreateRelationship(ctx, RelSecurity, object.ID, principalID, map[string]any{
			PropAllowed: set.String(),
		})
	}
	if err != nil {
		return err
	}

	r.invalidate()
	return nil
}

// Revoke removes the permission from the SECURITY relationship from object
// to principal. Deleting the relationship when its permission set becomes
// empty is an explicit post-condition: no empty grants are left behind.
// Revoking a permission that was never granted is a no-op.
func (r *Resolver) Revoke(ctx context.Context, sctx SecurityContext, perm Permission, principalID string, object Object) error {
	if r.store == nil {
		return ErrNoTransaction
	}
	if !perm.Valid() {
		return fmt.Errorf("%w: permission out of range", ErrInvalidRule)
	}
	if err := r.requireAccessControl(ctx, sctx, object); err != nil {
		return err
	}

	rel, set, ok, err := r.securityRelationship(ctx, object.ID, principalID)
	if err != nil || !ok {
		return err
	}

	set = set.Remove(perm)
	if set.Empty() {
		err = r.store.DeleteRelationship(ctx, rel.ID)
	} else {
		err = r.store.SetProperty(ctx, rel.ID, PropAllowed, set.String())
	}
	if err != nil {
		return err
	}

	r.invalidate()
	return nil
}

// Owner returns the id of the object's owning principal, or "" if unowned.
func (r *Resolver) Owner(ctx context.Context, object Object) (string, error) {
	if r.store == nil {
		return "", ErrNoTransaction
	}
	return propString(ctx, r.store, object.ID, PropOwner)
}

// SetOwner assigns the owning principal, replacing any previous owner.
// An object has exactly one owner at a time. Typically called by the CRUD
// layer at creation time with the creating context's principal.
func (r *Resolver) SetOwner(ctx context.Context, object Object, principalID string) error {
	if r.store == nil {
		return ErrNoTransaction
	}
	if err := r.store.SetProperty(ctx, object.ID, PropOwner, principalID); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

// requireAccessControl enforces the grant-management rule: superusers and
// owners always may; everyone else needs accessControl on the object.
func (r *Resolver) requireAccessControl(ctx context.Context, sctx SecurityContext, object Object) error {
	if sctx.Mode == AccessSuperUser {
		return nil
	}

	owner, err := propString(ctx, r.store, object.ID, PropOwner)
	if err != nil {
		return err
	}
	if owner != "" && owner == sctx.PrincipalID {
		return nil
	}

	ok, err := r.IsGranted(ctx, object, PermissionAccessControl, sctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrAccessControlDenied, sctx.PrincipalID, object)
	}
	return nil
}

// securityRelationship finds the SECURITY relationship from object to
// principal and parses its permission set.
func (r *Resolver) securityRelationship(ctx context.Context, objectID, principalID string) (Relationship, PermissionSet, bool, error) {
	rels, err := r.store.Relationships(ctx, objectID, RelSecurity, Outgoing)
	if err != nil {
		return Relationship{}, 0, false, err
	}
	for _, rel := range rels {
		if rel.ToID != principalID {
			continue
		}
		raw, err := propString(ctx, r.store, rel.ID, PropAllowed)
		if err != nil {
			return Relationship{}, 0, false, err
		}
		set, err := ParsePermissionSet(raw)
		if err != nil {
			return Relationship{}, 0, false, err
		}
		return rel, set, true, nil
	}
	return Relationship{}, 0, false, nil
}

// invalidate drops cached decisions after a grant mutation, so later checks
// in the same transaction see the new state. Decisions on other objects can
// depend on the mutated one through propagation and the group closure, so
// the whole cache is cleared rather than only the object's entries.
func (r *Resolver) invalidate() {
	if c, ok := r.cache.(interface{ Clear() }); ok && c != nil {
		c.Clear()
	}
}
