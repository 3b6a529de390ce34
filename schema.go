package warden

import (
	"fmt"
	"sort"
	"sync"
)

// PropagationDirection controls whether a permission computed on one endpoint
// of a relationship propagates to the other, and along which relationship
// direction.
type PropagationDirection int

const (
	// DirectionNone disables propagation for the relationship type.
	DirectionNone PropagationDirection = iota

	// DirectionIn propagates against the relationship direction: the source
	// node inherits from the target.
	DirectionIn

	// DirectionOut propagates along the relationship direction: the target
	// node inherits from the source.
	DirectionOut

	// DirectionBoth propagates in both directions.
	DirectionBoth
)

// String returns the canonical direction name.
func (d PropagationDirection) String() string {
	switch d {
	case DirectionNone:
		return "none"
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	case DirectionBoth:
		return "both"
	default:
		return fmt.Sprintf("PropagationDirection(%d)", int(d))
	}
}

// Valid reports whether d is one of the four defined directions.
func (d PropagationDirection) Valid() bool {
	return d >= DirectionNone && d <= DirectionBoth
}

// ParsePropagationDirection converts a canonical direction name.
func ParsePropagationDirection(s string) (PropagationDirection, error) {
	switch s {
	case "none", "":
		return DirectionNone, nil
	case "in":
		return DirectionIn, nil
	case "out":
		return DirectionOut, nil
	case "both":
		return DirectionBoth, nil
	default:
		return 0, fmt.Errorf("%w: unknown propagation direction %q", ErrInvalidRule, s)
	}
}

// PropagationMode is the per-permission propagation behavior of a
// relationship type.
type PropagationMode int

const (
	// ModeNone: the relationship type does not affect this permission.
	ModeNone PropagationMode = iota

	// ModeAdd propagates the permission as granted.
	ModeAdd

	// ModeRemove propagates the permission as explicitly revoked,
	// overriding an otherwise granted permission.
	ModeRemove
)

// String returns the canonical mode name.
func (m PropagationMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeAdd:
		return "add"
	case ModeRemove:
		return "remove"
	default:
		return fmt.Sprintf("PropagationMode(%d)", int(m))
	}
}

// Valid reports whether m is one of the three defined modes.
func (m PropagationMode) Valid() bool {
	return m >= ModeNone && m <= ModeRemove
}

// ParsePropagationMode converts a canonical mode name.
func ParsePropagationMode(s string) (PropagationMode, error) {
	switch s {
	case "none", "":
		return ModeNone, nil
	case "add":
		return ModeAdd, nil
	case "remove":
		return ModeRemove, nil
	default:
		return 0, fmt.Errorf("%w: unknown propagation mode %q", ErrInvalidRule, s)
	}
}

// RelationshipRule configures permission propagation for one relationship
// type. Rules attach to the type, not to instances; the traversal engine
// applies them per relationship instance at evaluation time.
type RelationshipRule struct {
	// Type is the relationship type name the rule applies to.
	Type string

	// Source and Target optionally name the node types the relationship
	// connects. They are not enforced at traversal time; they feed the
	// static propagation-cycle diagnostics (DetectPropagationCycles).
	Source string
	Target string

	Direction PropagationDirection

	// Per-permission propagation modes.
	Read          PropagationMode
	Write         PropagationMode
	Delete        PropagationMode
	AccessControl PropagationMode
}

// ModeFor returns the propagation mode for the given permission.
func (r RelationshipRule) ModeFor(p Permission) PropagationMode {
	switch p {
	case PermissionRead:
		return r.Read
	case PermissionWrite:
		return r.Write
	case PermissionDelete:
		return r.Delete
	case PermissionAccessControl:
		return r.AccessControl
	default:
		return ModeNone
	}
}

// validate checks enum ranges and the type name. Called on every registry
// write so invalid configuration is rejected at the source.
func (r RelationshipRule) validate() error {
	if r.Type == "" {
		return fmt.Errorf("%w: relationship rule without type name", ErrInvalidRule)
	}
	if !r.Direction.Valid() {
		return fmt.Errorf("%w: relationship %q: direction out of range", ErrInvalidRule, r.Type)
	}
	for _, m := range [...]PropagationMode{r.Read, r.Write, r.Delete, r.AccessControl} {
		if !m.Valid() {
			return fmt.Errorf("%w: relationship %q: propagation mode out of range", ErrInvalidRule, r.Type)
		}
	}
	return nil
}

// SchemaGrant allows a group (and its transitive members) access to every
// instance of a node type, independent of per-object grants.
type SchemaGrant struct {
	// Type is the node type name the grant applies to.
	Type string

	// GroupID is the id of the granted group.
	GroupID string

	// Allow holds the granted permissions.
	Allow PermissionSet
}

func (g SchemaGrant) validate() error {
	if g.Type == "" {
		return fmt.Errorf("%w: schema grant without type name", ErrInvalidRule)
	}
	if g.GroupID == "" {
		return fmt.Errorf("%w: schema grant on %q without group", ErrInvalidRule, g.Type)
	}
	return nil
}

// Registry holds the schema-level permission configuration: relationship
// propagation rules keyed by relationship type and schema grants keyed by
// node type. It is safe for concurrent use; reads vastly outnumber writes.
type Registry struct {
	mu     sync.RWMutex
	rules  map[string]RelationshipRule
	grants map[string][]SchemaGrant
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rules:  make(map[string]RelationshipRule),
		grants: make(map[string][]SchemaGrant),
	}
}

// SetRelationshipRule installs or replaces the rule for a relationship type.
// The rule is validated before it becomes visible.
func (r *Registry) SetRelationshipRule(rule RelationshipRule) error {
	if err := rule.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.rules[rule.Type] = rule
	r.mu.Unlock()
	return nil
}

// RemoveRelationshipRule deletes the rule for a relationship type.
func (r *Registry) RemoveRelationshipRule(relType string) {
	r.mu.Lock()
	delete(r.rules, relType)
	r.mu.Unlock()
}

// RuleFor returns the rule for a relationship type, if configured.
func (r *Registry) RuleFor(relType string) (RelationshipRule, bool) {
	r.mu.RLock()
	rule, ok := r.rules[relType]
	r.mu.RUnlock()
	return rule, ok
}

// Rules returns all relationship rules sorted by type name.
func (r *Registry) Rules() []RelationshipRule {
	r.mu.RLock()
	rules := make([]RelationshipRule, 0, len(r.rules))
	for _, rule := range r.rules {
		rules = append(rules, rule)
	}
	r.mu.RUnlock()
	sort.Slice(rules, func(i, j int) bool { return rules[i].Type < rules[j].Type })
	return rules
}

// SetSchemaGrant installs or replaces the grant for (type, group).
func (r *Registry) SetSchemaGrant(g SchemaGrant) error {
	if err := g.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	grants := r.grants[g.Type]
	for i, existing := range grants {
		if existing.GroupID == g.GroupID {
			grants[i] = g
			return nil
		}
	}
	r.grants[g.Type] = append(grants, g)
	return nil
}

// RemoveSchemaGrant deletes the grant for (type, group).
func (r *Registry) RemoveSchemaGrant(nodeType, groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	grants := r.grants[nodeType]
	for i, g := range grants {
		if g.GroupID == groupID {
			r.grants[nodeType] = append(grants[:i], grants[i+1:]...)
			break
		}
	}
	if len(r.grants[nodeType]) == 0 {
		delete(r.grants, nodeType)
	}
}

// GrantsFor returns the schema grants for a node type.
func (r *Registry) GrantsFor(nodeType string) []SchemaGrant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	grants := r.grants[nodeType]
	out := make([]SchemaGrant, len(grants))
	copy(out, grants)
	return out
}

// Grants returns all schema grants sorted by type then group.
func (r *Registry) Grants() []SchemaGrant {
	r.mu.RLock()
	var out []SchemaGrant
	for _, grants := range r.grants {
		out = append(out, grants...)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].GroupID < out[j].GroupID
	})
	return out
}
