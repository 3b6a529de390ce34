package memgraph

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wardengraph/warden"
)

// Execute implements warden.Store with a deliberately small predicate
// language, enough to express the custom permission queries exercised in
// tests and tooling:
//
//	RETURN true
//	RETURN false
//	PROPERTY <key> OF PRINCIPAL
//	PROPERTY <key> OF OBJECT
//
// The PROPERTY forms read the named property of the bound principal or
// object and yield it as the single result value; a missing property yields
// false. Anything else is a query error, which the engine surfaces as a
// configuration error.
func (tx *Tx) Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	if err := tx.guard(); err != nil {
		return nil, err
	}

	fields := strings.Fields(query)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty query")
	}

	switch strings.ToUpper(fields[0]) {
	case "RETURN":
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed RETURN query: %q", query)
		}
		v, err := strconv.ParseBool(strings.ToLower(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("malformed RETURN value: %q", fields[1])
		}
		return []map[string]any{{"value": v}}, nil

	case "PROPERTY":
		if len(fields) != 4 || strings.ToUpper(fields[2]) != "OF" {
			return nil, fmt.Errorf("malformed PROPERTY query: %q", query)
		}
		var param string
		switch strings.ToUpper(fields[3]) {
		case "PRINCIPAL":
			param = warden.ParamPrincipal
		case "OBJECT":
			param = warden.ParamObject
		default:
			return nil, fmt.Errorf("unknown PROPERTY subject: %q", fields[3])
		}
		id, _ := params[param].(string)
		if id == "" {
			return nil, fmt.Errorf("parameter %q not bound", param)
		}
		v, ok, err := tx.GetProperty(ctx, id, fields[1])
		if err != nil {
			return nil, err
		}
		if !ok {
			v = false
		}
		return []map[string]any{{"value": v}}, nil

	default:
		return nil, fmt.Errorf("unsupported query: %q", query)
	}
}
