package warden

import (
	"context"
	"fmt"
)

// customQueryResult evaluates the principal's stored permission query for
// read or write checks. present is false when the principal carries no query
// for the permission, or the permission is not read/write.
//
// The query runs against the store with the principal and object identifiers
// bound as parameters and must yield exactly one row with one boolean value.
// true is a definitive grant; false a definitive denial. Anything else is a
// configuration error surfaced as ErrInvalidQuery, never a silent denial.
func (r *Resolver) customQueryResult(ctx context.Context, perm Permission, principalID, objectID string) (result, present bool, err error) {
	var prop string
	switch perm {
	case PermissionRead:
		prop = PropCustomQueryRead
	case PermissionWrite:
		prop = PropCustomQueryWrite
	default:
		return false, false, nil
	}

	query, err := propString(ctx, r.store, principalID, prop)
	if err != nil {
		return false, false, err
	}
	if query == "" {
		return false, false, nil
	}

	rows, err := r.store.Execute(ctx, query, map[string]any{
		ParamPrincipal: principalID,
		ParamObject:    objectID,
	})
	if err != nil {
		return false, false, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	if len(rows) != 1 || len(rows[0]) != 1 {
		return false, false, fmt.Errorf("%w: expected a single boolean row, got %d rows", ErrInvalidQuery, len(rows))
	}
	for _, v := range rows[0] {
		b, ok := v.(bool)
		if !ok {
			return false, false, fmt.Errorf("%w: expected a boolean result, got %T", ErrInvalidQuery, v)
		}
		return b, true, nil
	}

	// Unreachable: the single row has exactly one column.
	return false, false, nil
}
