package memgraph

import (
	"context"
	"fmt"

	"github.com/wardengraph/warden"
)

// Tx is one transaction over a Graph. It implements warden.Store plus node
// creation and deletion for the CRUD layer and tests.
//
// A Tx is bound to one logical operation; it is not safe for concurrent use
// from multiple goroutines, matching the ambient-transaction model where
// each task owns its transaction.
type Tx struct {
	g       *Graph
	done    bool
	created map[string]*object
	deleted map[string]struct{}
	writes  map[string]map[string]any
}

// lookup resolves an object through the transaction overlay.
func (tx *Tx) lookup(id string) *object {
	if _, gone := tx.deleted[id]; gone {
		return nil
	}
	if o, ok := tx.created[id]; ok {
		return o
	}
	o := tx.g.committed(id)
	if o == nil {
		return nil
	}
	if overlay, ok := tx.writes[id]; ok {
		for k, v := range overlay {
			o.props[k] = v
		}
	}
	return o
}

func (tx *Tx) guard() error {
	if tx == nil || tx.done {
		return warden.ErrNoTransaction
	}
	return nil
}

// CreateNode adds a node of the given schema type with initial properties.
func (tx *Tx) CreateNode(ctx context.Context, nodeType string, props map[string]any) (warden.Object, error) {
	if err := tx.guard(); err != nil {
		return warden.Object{}, err
	}
	o := &object{id: newID(), typ: nodeType, props: map[string]any{}}
	for k, v := range props {
		o.props[k] = v
	}
	tx.created[o.id] = o
	return o.ref(), nil
}

// DeleteNode removes a node and every relationship attached to it.
func (tx *Tx) DeleteNode(ctx context.Context, id string) error {
	if err := tx.guard(); err != nil {
		return err
	}
	if tx.lookup(id) == nil {
		return fmt.Errorf("%w: node %s", warden.ErrObjectNotVisible, id)
	}

	rels, err := tx.Relationships(ctx, id, "", warden.AnyDirection)
	if err != nil {
		return err
	}
	for _, rel := range rels {
		if err := tx.DeleteRelationship(ctx, rel.ID); err != nil {
			return err
		}
	}

	delete(tx.created, id)
	delete(tx.writes, id)
	tx.deleted[id] = struct{}{}
	return nil
}

// GetObject implements warden.Store.
func (tx *Tx) GetObject(ctx context.Context, id string) (warden.Object, bool, error) {
	if err := tx.guard(); err != nil {
		return warden.Object{}, false, err
	}
	o := tx.lookup(id)
	if o == nil {
		return warden.Object{}, false, nil
	}
	return o.ref(), true, nil
}

// GetProperty implements warden.Store.
func (tx *Tx) GetProperty(ctx context.Context, id, key string) (any, bool, error) {
	if err := tx.guard(); err != nil {
		return nil, false, err
	}
	o := tx.lookup(id)
	if o == nil {
		return nil, false, nil
	}
	v, ok := o.props[key]
	return v, ok, nil
}

// SetProperty implements warden.Store. Writes land in the transaction
// overlay and reach the committed graph only on Commit.
func (tx *Tx) SetProperty(ctx context.Context, id, key string, value any) error {
	if err := tx.guard(); err != nil {
		return err
	}
	if o, ok := tx.created[id]; ok {
		o.props[key] = value
		return nil
	}
	if tx.lookup(id) == nil {
		return fmt.Errorf("%w: object %s", warden.ErrObjectNotVisible, id)
	}
	overlay, ok := tx.writes[id]
	if !ok {
		overlay = make(map[string]any)
		tx.writes[id] = overlay
	}
	overlay[key] = value
	return nil
}

// Relationships implements warden.Store.
func (tx *Tx) Relationships(ctx context.Context, id, relType string, dir warden.RelDirection) ([]warden.Relationship, error) {
	if err := tx.guard(); err != nil {
		return nil, err
	}

	match := func(o *object) bool {
		if relType != "" && o.typ != relType {
			return false
		}
		switch dir {
		case warden.Outgoing:
			return o.from == id
		case warden.Incoming:
			return o.to == id
		default:
			return o.from == id || o.to == id
		}
	}

	var out []warden.Relationship
	seen := make(map[string]struct{})

	for _, o := range tx.created {
		if o.rel && match(o) {
			seen[o.id] = struct{}{}
			out = append(out, tx.asRelationship(o))
		}
	}
	tx.g.committedRels(func(o *object) {
		if _, gone := tx.deleted[o.id]; gone {
			return
		}
		if _, dup := seen[o.id]; dup {
			return
		}
		if match(o) {
			out = append(out, tx.asRelationship(o))
		}
	})

	return out, nil
}

func (tx *Tx) asRelationship(o *object) warden.Relationship {
	return warden.Relationship{
		Object: o.ref(),
		FromID: o.from,
		ToID:   o.to,
	}
}

// CreateRelationship implements warden.Store.
func (tx *Tx) CreateRelationship(ctx context.Context, relType, fromID, toID string, props map[string]any) (warden.Relationship, error) {
	if err := tx.guard(); err != nil {
		return warden.Relationship{}, err
	}
	if tx.lookup(fromID) == nil {
		return warden.Relationship{}, fmt.Errorf("%w: node %s", warden.ErrObjectNotVisible, fromID)
	}
	if tx.lookup(toID) == nil {
		return warden.Relationship{}, fmt.Errorf("%w: node %s", warden.ErrObjectNotVisible, toID)
	}

	o := &object{id: newID(), typ: relType, rel: true, from: fromID, to: toID, props: map[string]any{}}
	for k, v := range props {
		o.props[k] = v
	}
	tx.created[o.id] = o
	return tx.asRelationship(o), nil
}

// DeleteRelationship implements warden.Store.
func (tx *Tx) DeleteRelationship(ctx context.Context, id string) error {
	if err := tx.guard(); err != nil {
		return err
	}
	delete(tx.created, id)
	delete(tx.writes, id)
	tx.deleted[id] = struct{}{}
	return nil
}

// Commit atomically publishes the transaction's writes to the graph.
// The Tx is unusable afterwards.
func (tx *Tx) Commit(ctx context.Context) error {
	if err := tx.guard(); err != nil {
		return err
	}
	tx.done = true

	tx.g.mu.Lock()
	defer tx.g.mu.Unlock()

	for id := range tx.deleted {
		delete(tx.g.objects, id)
	}
	for id, o := range tx.created {
		tx.g.objects[id] = o
	}
	for id, overlay := range tx.writes {
		if o, ok := tx.g.objects[id]; ok {
			for k, v := range overlay {
				o.props[k] = v
			}
		}
	}
	return nil
}

// Rollback discards the transaction's writes. The Tx is unusable afterwards.
func (tx *Tx) Rollback(ctx context.Context) error {
	if err := tx.guard(); err != nil {
		return err
	}
	tx.done = true
	return nil
}

// Ensure Tx implements the store contract.
var _ warden.Store = (*Tx)(nil)
