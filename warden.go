// Package warden provides graph-based permission resolution for property
// graphs with directed, typed relationships.
//
// # Core Concepts
//
// Every graph object (node or relationship) is the unit of access control.
// Objects carry an optional owner, static visibility flags, and zero or more
// SECURITY relationships to principals, each holding a permission set. On top
// of per-object grants, schema-level configuration extends decisions across
// the graph: relationship types can propagate permissions between their
// endpoints, and schema grants allow whole node types to groups.
//
//	tx := graph.Begin()
//	resolver := warden.New(tx, registry)
//	ok, err := resolver.IsGranted(ctx, doc, warden.PermissionRead, sctx)
//
// # Transaction Support
//
// The Resolver works against a Store bound to an ambient transaction supplied
// by the caller. Permission checks observe all writes made earlier in the
// same transaction (read-your-own-writes) and never observe uncommitted state
// from other transactions:
//
//	tx := graph.Begin()
//	resolver := warden.New(tx, registry)
//	_ = resolver.Grant(ctx, sctx, warden.PermissionRead, userID, doc)
//	ok, _ := resolver.IsGranted(ctx, doc, warden.PermissionRead, userCtx)
//	// ok is true before the transaction commits
//	tx.Commit(ctx)
//
// # Decision Overrides
//
// Use WithDecision for admin tools or testing:
//
//	resolver := warden.New(store, registry, warden.WithDecision(warden.DecisionAllow))
//
// # Caching
//
// Use WithCache for repeated checks within one transaction:
//
//	cache := warden.NewCache(warden.WithTTL(time.Minute))
//	resolver := warden.New(tx, registry, warden.WithCache(cache))
//
// Permission state is transaction-local, so a cache must never outlive the
// transaction whose Store it was paired with.
package warden

import "context"

// Kind distinguishes nodes from relationships. Both are access-controlled
// graph objects.
type Kind int

const (
	// KindNode is a vertex in the property graph.
	KindNode Kind = iota

	// KindRelationship is a directed, typed edge between two nodes.
	KindRelationship
)

// Object is a reference to an access-controlled graph object. Objects are
// value types and safe to copy; all mutable state lives in the Store.
//
// Type is the schema type name used to look up relationship rules and
// schema grants. ID is a stable, immutable identifier.
type Object struct {
	Kind Kind
	Type string
	ID   string
}

// String returns the canonical representation "type:id".
func (o Object) String() string {
	return o.Type + ":" + o.ID
}

// Relationship is a directed, typed edge. It embeds Object because
// relationships are themselves access-controlled and may carry grants.
type Relationship struct {
	Object
	FromID string
	ToID   string
}

// Other returns the id of the endpoint opposite to the given node id.
func (r Relationship) Other(id string) string {
	if r.FromID == id {
		return r.ToID
	}
	return r.FromID
}

// RelDirection selects which relationships of a node to iterate.
type RelDirection int

const (
	// Outgoing selects relationships where the node is the source.
	Outgoing RelDirection = iota

	// Incoming selects relationships where the node is the target.
	Incoming

	// AnyDirection selects both.
	AnyDirection
)

// Well-known relationship types and property keys. Storage adapters persist
// these like any other relationship or property; the engine gives them
// meaning.
const (
	// RelSecurity is the grant relationship, object → principal, carrying
	// the PropAllowed permission set.
	RelSecurity = "SECURITY"

	// RelMembers is the group membership relationship, group → member.
	RelMembers = "MEMBERS"

	// TypeUser and TypeGroup are the principal node types.
	TypeUser  = "User"
	TypeGroup = "Group"

	// PropAllowed holds the permission set of a SECURITY relationship as a
	// comma-joined list of permission names.
	PropAllowed = "allowed"

	// PropOwner holds the id of the owning principal. At most one owner at
	// a time; setting it replaces the previous value.
	PropOwner = "ownerId"

	// PropName holds a principal's display name.
	PropName = "name"

	// PropAdmin marks a principal as administrative. The flag is inherited
	// through transitive group membership.
	PropAdmin = "isAdmin"

	// Static visibility flags, independent of grants.
	PropVisibleToPublic = "visibleToPublicUsers"
	PropVisibleToAuth   = "visibleToAuthenticatedUsers"
	PropHidden          = "hidden"

	// Per-principal stored queries that override read/write decisions.
	PropCustomQueryRead  = "customPermissionQueryRead"
	PropCustomQueryWrite = "customPermissionQueryWrite"
)

// Query parameter names bound by the custom permission query evaluator.
const (
	// ParamPrincipal is bound to the id of the principal being checked.
	ParamPrincipal = "principalId"

	// ParamObject is bound to the id of the object being checked.
	ParamObject = "objectId"
)

// Store is the graph storage collaborator. A Store value is always bound to
// an ambient transaction; the engine neither opens nor closes transactions.
// All reads must reflect writes made earlier through the same Store
// (read-your-own-writes) and must never expose uncommitted state from other
// transactions.
//
// Implementations return ErrNoTransaction once their transaction has been
// committed or rolled back.
//
// Lookups for identifiers created in a different, not-yet-committed
// transaction return found == false rather than an error: access control
// never assumes an object exists until its creating transaction is visible.
type Store interface {
	// GetObject resolves an object by id.
	GetObject(ctx context.Context, id string) (Object, bool, error)

	// GetProperty reads a property of the object with the given id.
	GetProperty(ctx context.Context, id, key string) (any, bool, error)

	// SetProperty writes a property of the object with the given id.
	SetProperty(ctx context.Context, id, key string, value any) error

	// Relationships returns the relationships of the given node, filtered
	// by type (empty means any type) and direction.
	Relationships(ctx context.Context, id, relType string, dir RelDirection) ([]Relationship, error)

	// CreateRelationship creates a typed relationship between two nodes.
	CreateRelationship(ctx context.Context, relType, fromID, toID string, props map[string]any) (Relationship, error)

	// DeleteRelationship removes a relationship by id.
	DeleteRelationship(ctx context.Context, id string) error

	// Execute runs a raw query against the underlying store with named
	// parameters, returning one map per result row. Used by the custom
	// permission query evaluator; the query language is store-specific.
	Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}
