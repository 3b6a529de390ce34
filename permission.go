package warden

import (
	"fmt"
	"strings"
)

// Permission is the closed set of operations that can be granted on a graph
// object. AccessControl is required to modify grants on an object.
type Permission int

const (
	PermissionRead Permission = iota
	PermissionWrite
	PermissionDelete
	PermissionAccessControl
)

// Permissions lists all permissions in evaluation order.
var Permissions = [...]Permission{
	PermissionRead,
	PermissionWrite,
	PermissionDelete,
	PermissionAccessControl,
}

// String returns the canonical permission name.
func (p Permission) String() string {
	switch p {
	case PermissionRead:
		return "read"
	case PermissionWrite:
		return "write"
	case PermissionDelete:
		return "delete"
	case PermissionAccessControl:
		return "accessControl"
	default:
		return fmt.Sprintf("Permission(%d)", int(p))
	}
}

// Valid reports whether p is one of the four defined permissions.
func (p Permission) Valid() bool {
	return p >= PermissionRead && p <= PermissionAccessControl
}

// ParsePermission converts a canonical permission name to a Permission.
func ParsePermission(s string) (Permission, error) {
	switch s {
	case "read":
		return PermissionRead, nil
	case "write":
		return PermissionWrite, nil
	case "delete":
		return PermissionDelete, nil
	case "accessControl":
		return PermissionAccessControl, nil
	default:
		return 0, fmt.Errorf("%w: unknown permission %q", ErrInvalidRule, s)
	}
}

// PermissionSet is a set of permissions. The zero value is the empty set.
// PermissionSet is a value type; Add and Remove return the modified set.
type PermissionSet uint8

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s = s.Add(p)
	}
	return s
}

// Add returns the set with p included.
func (s PermissionSet) Add(p Permission) PermissionSet {
	return s | 1<<uint(p)
}

// Remove returns the set with p excluded.
func (s PermissionSet) Remove(p Permission) PermissionSet {
	return s &^ (1 << uint(p))
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	return s&(1<<uint(p)) != 0
}

// Empty reports whether the set contains no permissions.
func (s PermissionSet) Empty() bool {
	return s == 0
}

// String returns the comma-joined canonical names, the storage format of the
// PropAllowed property.
func (s PermissionSet) String() string {
	var names []string
	for _, p := range Permissions {
		if s.Has(p) {
			names = append(names, p.String())
		}
	}
	return strings.Join(names, ",")
}

// ParsePermissionSet parses the comma-joined storage format. An empty string
// yields the empty set.
func ParsePermissionSet(s string) (PermissionSet, error) {
	var set PermissionSet
	if s == "" {
		return set, nil
	}
	for _, name := range strings.Split(s, ",") {
		p, err := ParsePermission(strings.TrimSpace(name))
		if err != nil {
			return 0, err
		}
		set = set.Add(p)
	}
	return set, nil
}

// AccessMode describes how an operation is being performed. Together with the
// principal it forms the SecurityContext every access is evaluated under.
type AccessMode int

const (
	// AccessPublic is unauthenticated access; only public visibility flags
	// can grant reads.
	AccessPublic AccessMode = iota

	// AccessFrontend is authenticated, non-administrative access.
	AccessFrontend

	// AccessBackend is authenticated administrative access.
	AccessBackend

	// AccessSuperUser bypasses all checks.
	AccessSuperUser
)

// String returns the mode name.
func (m AccessMode) String() string {
	switch m {
	case AccessPublic:
		return "public"
	case AccessFrontend:
		return "frontend"
	case AccessBackend:
		return "backend"
	case AccessSuperUser:
		return "superuser"
	default:
		return fmt.Sprintf("AccessMode(%d)", int(m))
	}
}

// Valid reports whether m is one of the four defined modes.
func (m AccessMode) Valid() bool {
	return m >= AccessPublic && m <= AccessSuperUser
}

// SecurityContext is the ambient identity under which one logical operation
// executes. It is constructed once per operation, never mutated, and safe to
// share read-only across an operation's sub-calls.
//
// PrincipalID is empty for anonymous access.
type SecurityContext struct {
	PrincipalID string
	Mode        AccessMode
}

// PublicContext returns an anonymous context.
func PublicContext() SecurityContext {
	return SecurityContext{Mode: AccessPublic}
}

// FrontendContext returns an authenticated, non-administrative context.
func FrontendContext(principalID string) SecurityContext {
	return SecurityContext{PrincipalID: principalID, Mode: AccessFrontend}
}

// BackendContext returns an authenticated administrative context.
func BackendContext(principalID string) SecurityContext {
	return SecurityContext{PrincipalID: principalID, Mode: AccessBackend}
}

// SuperUserContext returns a context that bypasses all checks.
func SuperUserContext() SecurityContext {
	return SecurityContext{Mode: AccessSuperUser}
}

// Authenticated reports whether the context carries a principal.
func (c SecurityContext) Authenticated() bool {
	return c.PrincipalID != ""
}
