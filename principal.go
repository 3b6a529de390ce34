package warden

import "context"

// Principal is a facade over a User or Group node. It is a snapshot of the
// node's identity properties at resolution time; membership edges stay in the
// store and are traversed on demand.
type Principal struct {
	ID    string
	Name  string
	Group bool

	// Admin is the node's explicit flag. Effective administrative status is
	// inherited through transitive group membership; see Resolver.IsAdmin.
	Admin bool
}

// ResolvePrincipal looks up a principal by id. A missing id yields
// found == false, not an error: a principal created in another, not yet
// committed transaction must not be assumed to exist.
func ResolvePrincipal(ctx context.Context, s Store, id string) (Principal, bool, error) {
	obj, ok, err := s.GetObject(ctx, id)
	if err != nil || !ok {
		return Principal{}, false, err
	}
	if obj.Type != TypeUser && obj.Type != TypeGroup {
		return Principal{}, false, nil
	}

	name, err := propString(ctx, s, id, PropName)
	if err != nil {
		return Principal{}, false, err
	}
	admin, err := propBool(ctx, s, id, PropAdmin)
	if err != nil {
		return Principal{}, false, err
	}

	return Principal{
		ID:    obj.ID,
		Name:  name,
		Group: obj.Type == TypeGroup,
		Admin: admin,
	}, true, nil
}

// IsGroup reports whether the object with the given id is a group node.
func IsGroup(ctx context.Context, s Store, id string) (bool, error) {
	obj, ok, err := s.GetObject(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	return obj.Type == TypeGroup, nil
}
