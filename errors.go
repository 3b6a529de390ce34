package warden

import "errors"

// Sentinel errors for failure modes during permission resolution.
// These errors indicate configuration or transaction-context problems, not
// permission denials. Denied access is reported as (false, nil): a denied
// read means the object is invisible, a denied write maps to a 403 at the
// calling layer.
//
// Use the Is*Err helper functions to check for specific errors.
var (
	// ErrNoTransaction is returned when the engine is invoked without a
	// usable transaction-bound Store, or after the Store's transaction has
	// been committed or rolled back. It fails fast rather than returning
	// false, which would be indistinguishable from a legitimate denial.
	ErrNoTransaction = errors.New("warden: no ambient transaction")

	// ErrObjectNotVisible is returned when a permission check targets an
	// object that does not exist in the caller's transaction snapshot.
	ErrObjectNotVisible = errors.New("warden: object not visible in transaction")

	// ErrMalformedContext is returned when a SecurityContext references a
	// principal id that cannot be resolved in the current transaction, or
	// carries an undefined access mode.
	ErrMalformedContext = errors.New("warden: malformed security context")

	// ErrInvalidQuery is returned when a principal's stored custom
	// permission query fails to parse or execute, or does not yield a
	// single boolean. This is a configuration error, never a silent denial.
	ErrInvalidQuery = errors.New("warden: invalid custom permission query")

	// ErrInvalidRule is returned when a relationship rule or schema grant
	// is rejected at write time (out-of-range enum, unknown permission,
	// empty type name).
	ErrInvalidRule = errors.New("warden: invalid schema rule")

	// ErrAccessControlDenied is returned by Grant and Revoke when the
	// acting context lacks accessControl permission on the object and is
	// neither its owner nor a superuser.
	ErrAccessControlDenied = errors.New("warden: access control permission required")

	// ErrTraversalDepth is returned when propagation traversal exceeds the
	// depth ceiling. The visited-set discipline makes this
	// unreachable on well-formed graphs; hitting it indicates a bug, not a
	// denial.
	ErrTraversalDepth = errors.New("warden: propagation traversal depth exceeded")
)

// IsNoTransactionErr returns true if err is or wraps ErrNoTransaction.
func IsNoTransactionErr(err error) bool {
	return errors.Is(err, ErrNoTransaction)
}

// IsObjectNotVisibleErr returns true if err is or wraps ErrObjectNotVisible.
func IsObjectNotVisibleErr(err error) bool {
	return errors.Is(err, ErrObjectNotVisible)
}

// IsMalformedContextErr returns true if err is or wraps ErrMalformedContext.
func IsMalformedContextErr(err error) bool {
	return errors.Is(err, ErrMalformedContext)
}

// IsInvalidQueryErr returns true if err is or wraps ErrInvalidQuery.
func IsInvalidQueryErr(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}

// IsInvalidRuleErr returns true if err is or wraps ErrInvalidRule.
func IsInvalidRuleErr(err error) bool {
	return errors.Is(err, ErrInvalidRule)
}

// IsAccessControlDeniedErr returns true if err is or wraps ErrAccessControlDenied.
func IsAccessControlDeniedErr(err error) bool {
	return errors.Is(err, ErrAccessControlDenied)
}

// IsTraversalDepthErr returns true if err is or wraps ErrTraversalDepth.
func IsTraversalDepthErr(err error) bool {
	return errors.Is(err, ErrTraversalDepth)
}
