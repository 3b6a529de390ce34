package warden

import "context"

// TransitiveGroupsOf computes the transitive closure of group membership for
// a principal: every group the principal is a member of, directly or through
// nested groups.
//
// The traversal is breadth-first over incoming MEMBERS edges with a visited
// set keyed by principal id, so it terminates in O(distinct groups) even when
// the membership graph contains cycles (a group that is, transitively, a
// member of itself). Each group appears exactly once in the result.
//
// The closure is computed per call against the live transaction state; there
// is no cache to invalidate, so membership edges added or removed earlier in
// the same transaction are reflected immediately.
func TransitiveGroupsOf(ctx context.Context, s Store, principalID string) ([]Principal, error) {
	if s == nil {
		return nil, ErrNoTransaction
	}

	seen := map[string]struct{}{principalID: {}}
	queue := []string{principalID}
	var groups []Principal

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		// Incoming MEMBERS edges: the source is a group this principal
		// (or one of its ancestor groups) belongs to.
		rels, err := s.Relationships(ctx, current, RelMembers, Incoming)
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			groupID := rel.FromID
			if _, ok := seen[groupID]; ok {
				continue
			}
			seen[groupID] = struct{}{}

			group, ok, err := ResolvePrincipal(ctx, s, groupID)
			if err != nil {
				return nil, err
			}
			if !ok || !group.Group {
				continue
			}
			groups = append(groups, group)
			queue = append(queue, groupID)
		}
	}

	return groups, nil
}

// groupClosureIDs returns the ids of the principal's transitive groups as a
// set, for membership tests against grant lists.
func groupClosureIDs(ctx context.Context, s Store, principalID string) (map[string]struct{}, error) {
	groups, err := TransitiveGroupsOf(ctx, s, principalID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		ids[g.ID] = struct{}{}
	}
	return ids, nil
}

// IsAdmin reports whether a principal is administrative, either through its
// own explicit flag or inherited from any ancestor group. The walk applies
// the same visited-set discipline as TransitiveGroupsOf and stops at the
// first admin group found.
func IsAdmin(ctx context.Context, s Store, principalID string) (bool, error) {
	if s == nil {
		return false, ErrNoTransaction
	}

	p, ok, err := ResolvePrincipal(ctx, s, principalID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if p.Admin {
		return true, nil
	}

	seen := map[string]struct{}{principalID: {}}
	queue := []string{principalID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		rels, err := s.Relationships(ctx, current, RelMembers, Incoming)
		if err != nil {
			return false, err
		}
		for _, rel := range rels {
			groupID := rel.FromID
			if _, ok := seen[groupID]; ok {
				continue
			}
			seen[groupID] = struct{}{}

			admin, err := propBool(ctx, s, groupID, PropAdmin)
			if err != nil {
				return false, err
			}
			if admin {
				return true, nil
			}
			queue = append(queue, groupID)
		}
	}

	return false, nil
}
