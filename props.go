package warden

import "context"

// propBool reads a boolean property, treating a missing property or a value
// of another type as false. Visibility and admin flags default to false when
// unset.
func propBool(ctx context.Context, s Store, id, key string) (bool, error) {
	v, ok, err := s.GetProperty(ctx, id, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	b, _ := v.(bool)
	return b, nil
}

// propString reads a string property; missing or non-string values yield "".
func propString(ctx context.Context, s Store, id, key string) (string, error) {
	v, ok, err := s.GetProperty(ctx, id, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	str, _ := v.(string)
	return str, nil
}
