// Package neostore implements the warden.Store contract on top of Neo4j
// (or any Bolt-compatible graph database) using the official v5 driver.
//
// The store wraps an explicit driver transaction, so the engine's ambient
// transaction maps onto a real database transaction: permission checks see
// the transaction's own uncommitted writes, and nothing is visible to other
// sessions until Commit.
//
// Nodes carry the :Object label with an id and a type property. All
// relationships use the REL type with the schema relationship name stored in
// a type property, which keeps Cypher free of string-interpolated labels.
//
// Custom permission queries are Cypher; the engine binds $principalId and
// $objectId and expects a single record with a single boolean value.
package neostore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/wardengraph/warden"
)

// Connect creates a driver and verifies connectivity before returning it.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neostore: creating driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neostore: connecting to %s: %w", uri, err)
	}
	return driver, nil
}

// Store implements warden.Store over one explicit transaction.
type Store struct {
	tx neo4j.ExplicitTransaction
}

// New wraps an open transaction. The caller owns commit and rollback:
//
//	session := driver.NewSession(ctx, neo4j.SessionConfig{})
//	tx, _ := session.BeginTransaction(ctx)
//	store := neostore.New(tx)
//	...
//	tx.Commit(ctx)
func New(tx neo4j.ExplicitTransaction) *Store {
	return &Store{tx: tx}
}

// run executes cypher and returns all records as maps.
func (s *Store) run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if s.tx == nil {
		return nil, warden.ErrNoTransaction
	}
	result, err := s.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for result.Next(ctx) {
		out = append(out, result.Record().AsMap())
	}
	return out, result.Err()
}

// CreateNode adds a node of the given schema type with initial properties.
func (s *Store) CreateNode(ctx context.Context, nodeType string, props map[string]any) (warden.Object, error) {
	id := uuid.NewString()
	merged := map[string]any{"id": id, "type": nodeType}
	for k, v := range props {
		merged[k] = v
	}
	_, err := s.run(ctx, `CREATE (n:Object) SET n = $props`, map[string]any{"props": merged})
	if err != nil {
		return warden.Object{}, err
	}
	return warden.Object{Kind: warden.KindNode, Type: nodeType, ID: id}, nil
}

// DeleteNode removes a node and every relationship attached to it.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	_, err := s.run(ctx, `MATCH (n:Object {id: $id}) DETACH DELETE n`, map[string]any{"id": id})
	return err
}

// GetObject implements warden.Store.
func (s *Store) GetObject(ctx context.Context, id string) (warden.Object, bool, error) {
	rows, err := s.run(ctx, `MATCH (n:Object {id: $id}) RETURN n.type AS type`, map[string]any{"id": id})
	if err != nil {
		return warden.Object{}, false, err
	}
	if len(rows) > 0 {
		typ, _ := rows[0]["type"].(string)
		return warden.Object{Kind: warden.KindNode, Type: typ, ID: id}, true, nil
	}

	rows, err = s.run(ctx, `MATCH ()-[r:REL {id: $id}]->() RETURN r.type AS type`, map[string]any{"id": id})
	if err != nil {
		return warden.Object{}, false, err
	}
	if len(rows) == 0 {
		return warden.Object{}, false, nil
	}
	typ, _ := rows[0]["type"].(string)
	return warden.Object{Kind: warden.KindRelationship, Type: typ, ID: id}, true, nil
}

// GetProperty implements warden.Store. A property stored as null reads as
// absent, matching Neo4j's own model where SET n.k = null removes the key.
func (s *Store) GetProperty(ctx context.Context, id, key string) (any, bool, error) {
	rows, err := s.run(ctx, `
		MATCH (n:Object {id: $id}) RETURN n[$key] AS value
		UNION
		MATCH ()-[r:REL {id: $id}]->() RETURN r[$key] AS value
	`, map[string]any{"id": id, "key": key})
	if err != nil {
		return nil, false, err
	}
	for _, row := range rows {
		if v := row["value"]; v != nil {
			return v, true, nil
		}
	}
	return nil, false, nil
}

// SetProperty implements warden.Store.
func (s *Store) SetProperty(ctx context.Context, id, key string, value any) error {
	_, err := s.run(ctx, `
		OPTIONAL MATCH (n:Object {id: $id}) SET n += $props
		WITH count(n) AS matched
		OPTIONAL MATCH ()-[r:REL {id: $id}]->() SET r += $props
	`, map[string]any{"id": id, "props": map[string]any{key: value}})
	return err
}

// Relationships implements warden.Store.
func (s *Store) Relationships(ctx context.Context, id, relType string, dir warden.RelDirection) ([]warden.Relationship, error) {
	var pattern string
	switch dir {
	case warden.Outgoing:
		pattern = `(n:Object {id: $id})-[r:REL]->(m:Object)`
	case warden.Incoming:
		pattern = `(m:Object)-[r:REL]->(n:Object {id: $id})`
	default:
		pattern = `(n:Object {id: $id})-[r:REL]-(m:Object)`
	}

	rows, err := s.run(ctx, `
		MATCH `+pattern+`
		WHERE $type = '' OR r.type = $type
		RETURN r.id AS id, r.type AS type,
		       startNode(r).id AS fromId, endNode(r).id AS toId
	`, map[string]any{"id": id, "type": relType})
	if err != nil {
		return nil, err
	}

	out := make([]warden.Relationship, 0, len(rows))
	for _, row := range rows {
		relID, _ := row["id"].(string)
		typ, _ := row["type"].(string)
		from, _ := row["fromId"].(string)
		to, _ := row["toId"].(string)
		out = append(out, warden.Relationship{
			Object: warden.Object{Kind: warden.KindRelationship, Type: typ, ID: relID},
			FromID: from,
			ToID:   to,
		})
	}
	return out, nil
}

// CreateRelationship implements warden.Store.
func (s *Store) CreateRelationship(ctx context.Context, relType, fromID, toID string, props map[string]any) (warden.Relationship, error) {
	id := uuid.NewString()
	merged := map[string]any{"id": id, "type": relType}
	for k, v := range props {
		merged[k] = v
	}
	rows, err := s.run(ctx, `
		MATCH (a:Object {id: $from}), (b:Object {id: $to})
		CREATE (a)-[r:REL]->(b) SET r = $props
		RETURN r.id AS id
	`, map[string]any{"from": fromID, "to": toID, "props": merged})
	if err != nil {
		return warden.Relationship{}, err
	}
	if len(rows) == 0 {
		return warden.Relationship{}, fmt.Errorf("%w: endpoint %s or %s", warden.ErrObjectNotVisible, fromID, toID)
	}
	return warden.Relationship{
		Object: warden.Object{Kind: warden.KindRelationship, Type: relType, ID: id},
		FromID: fromID,
		ToID:   toID,
	}, nil
}

// DeleteRelationship implements warden.Store.
func (s *Store) DeleteRelationship(ctx context.Context, id string) error {
	_, err := s.run(ctx, `MATCH ()-[r:REL {id: $id}]->() DELETE r`, map[string]any{"id": id})
	return err
}

// Execute implements warden.Store. The query is Cypher with the engine's
// parameters bound by name.
func (s *Store) Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return s.run(ctx, query, params)
}

// Ensure Store implements the store contract.
var _ warden.Store = (*Store)(nil)
