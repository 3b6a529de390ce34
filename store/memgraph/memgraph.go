// Package memgraph provides an embedded in-memory property graph
// implementing the warden.Store contract, with begin/commit/rollback
// transaction semantics.
//
// Each transaction reads the committed state through a private overlay of
// its own writes: earlier writes in the same transaction are visible
// immediately (read-your-own-writes), while nothing becomes visible to other
// transactions before Commit, and a rolled-back transaction leaves no trace.
//
// memgraph backs the engine's unit tests and small tooling; production
// deployments use the pgstore or neostore adapters.
package memgraph

import (
	"sync"

	"github.com/google/uuid"

	"github.com/wardengraph/warden"
)

// object is the committed form of a node or relationship.
type object struct {
	id    string
	typ   string
	rel   bool
	from  string // relationships only
	to    string
	props map[string]any
}

func (o *object) clone() *object {
	props := make(map[string]any, len(o.props))
	for k, v := range o.props {
		props[k] = v
	}
	c := *o
	c.props = props
	return &c
}

func (o *object) ref() warden.Object {
	kind := warden.KindNode
	if o.rel {
		kind = warden.KindRelationship
	}
	return warden.Object{Kind: kind, Type: o.typ, ID: o.id}
}

// Graph is the committed graph state shared by all transactions.
// It is safe for concurrent use; transactions on disjoint objects proceed in
// parallel and serialize only on commit.
type Graph struct {
	mu      sync.RWMutex
	objects map[string]*object
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{objects: make(map[string]*object)}
}

// Begin opens a transaction. The returned Tx implements warden.Store.
func (g *Graph) Begin() *Tx {
	return &Tx{
		g:       g,
		created: make(map[string]*object),
		deleted: make(map[string]struct{}),
		writes:  make(map[string]map[string]any),
	}
}

// committed returns a snapshot copy of the committed object, or nil.
func (g *Graph) committed(id string) *object {
	g.mu.RLock()
	defer g.mu.RUnlock()
	o, ok := g.objects[id]
	if !ok {
		return nil
	}
	return o.clone()
}

// committedRels calls fn for a snapshot of every committed relationship.
func (g *Graph) committedRels(fn func(*object)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, o := range g.objects {
		if o.rel {
			fn(o.clone())
		}
	}
}

func newID() string {
	return uuid.NewString()
}
