package warden

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// RuleFile is the on-disk representation of schema-level permission
// configuration (warden.yaml). Example:
//
//	relationships:
//	  - type: CONTAINS
//	    direction: out
//	    read: add
//	    write: add
//	grants:
//	  - type: Document
//	    group: editors
//	    read: true
//	    write: true
type RuleFile struct {
	Relationships []RelationshipRuleConfig `json:"relationships,omitempty"`
	Grants        []SchemaGrantConfig      `json:"grants,omitempty"`
}

// RelationshipRuleConfig is the YAML form of a RelationshipRule. Direction
// and mode values are the canonical enum names; absent fields mean "none".
type RelationshipRuleConfig struct {
	Type          string `json:"type"`
	Source        string `json:"source,omitempty"`
	Target        string `json:"target,omitempty"`
	Direction     string `json:"direction,omitempty"`
	Read          string `json:"read,omitempty"`
	Write         string `json:"write,omitempty"`
	Delete        string `json:"delete,omitempty"`
	AccessControl string `json:"accessControl,omitempty"`
}

// Rule converts the config entry to a validated RelationshipRule.
func (c RelationshipRuleConfig) Rule() (RelationshipRule, error) {
	rule := RelationshipRule{Type: c.Type, Source: c.Source, Target: c.Target}

	var err error
	if rule.Direction, err = ParsePropagationDirection(c.Direction); err != nil {
		return RelationshipRule{}, err
	}
	if rule.Read, err = ParsePropagationMode(c.Read); err != nil {
		return RelationshipRule{}, err
	}
	if rule.Write, err = ParsePropagationMode(c.Write); err != nil {
		return RelationshipRule{}, err
	}
	if rule.Delete, err = ParsePropagationMode(c.Delete); err != nil {
		return RelationshipRule{}, err
	}
	if rule.AccessControl, err = ParsePropagationMode(c.AccessControl); err != nil {
		return RelationshipRule{}, err
	}

	return rule, rule.validate()
}

// SchemaGrantConfig is the YAML form of a SchemaGrant.
type SchemaGrantConfig struct {
	Type          string `json:"type"`
	Group         string `json:"group"`
	Read          bool   `json:"read,omitempty"`
	Write         bool   `json:"write,omitempty"`
	Delete        bool   `json:"delete,omitempty"`
	AccessControl bool   `json:"accessControl,omitempty"`
}

// Grant converts the config entry to a validated SchemaGrant.
func (c SchemaGrantConfig) Grant() (SchemaGrant, error) {
	g := SchemaGrant{Type: c.Type, GroupID: c.Group}
	if c.Read {
		g.Allow = g.Allow.Add(PermissionRead)
	}
	if c.Write {
		g.Allow = g.Allow.Add(PermissionWrite)
	}
	if c.Delete {
		g.Allow = g.Allow.Add(PermissionDelete)
	}
	if c.AccessControl {
		g.Allow = g.Allow.Add(PermissionAccessControl)
	}
	return g, g.validate()
}

// ParseRules parses a YAML rule file.
func ParseRules(data []byte) (*RuleFile, error) {
	var f RuleFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return &f, nil
}

// LoadRules reads and parses a YAML rule file from disk.
func LoadRules(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}
	return ParseRules(data)
}

// Apply installs every rule and grant from the file into the registry.
// Entries are validated individually; the first invalid entry aborts the
// apply, potentially leaving earlier entries installed. Callers wanting
// all-or-nothing behavior should apply to a fresh registry and swap.
func (f *RuleFile) Apply(reg *Registry) error {
	for _, rc := range f.Relationships {
		rule, err := rc.Rule()
		if err != nil {
			return err
		}
		if err := reg.SetRelationshipRule(rule); err != nil {
			return err
		}
	}
	for _, gc := range f.Grants {
		g, err := gc.Grant()
		if err != nil {
			return err
		}
		if err := reg.SetSchemaGrant(g); err != nil {
			return err
		}
	}
	return nil
}

// Registry builds a fresh registry from the file.
func (f *RuleFile) Registry() (*Registry, error) {
	reg := NewRegistry()
	if err := f.Apply(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
