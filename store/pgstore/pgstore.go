// Package pgstore persists the property graph in PostgreSQL and implements
// the warden.Store contract over database/sql.
//
// The store works with *sql.DB, *sql.Tx, or *sql.Conn. Binding it to a
// *sql.Tx gives the engine its ambient transaction: permission checks see
// uncommitted changes made earlier in the transaction, and MVCC isolates
// them from concurrent transactions.
//
//	tx, _ := db.BeginTx(ctx, nil)
//	resolver := warden.New(pgstore.New(tx), registry)
//	ok, _ := resolver.IsGranted(ctx, doc, warden.PermissionRead, sctx)
//	tx.Commit()
//
// Custom permission queries are SQL; the engine's named parameters are bound
// positionally as $1 = principal id, $2 = object id. Queries that do not use
// a parameter still receive it, so they should consume both or neither via
// standard PostgreSQL placeholder rules.
package pgstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wardengraph/warden"
)

//go:embed schema.sql
var schemaSQL string

// Querier executes queries against PostgreSQL.
// Implemented by *sql.DB, *sql.Tx, and *sql.Conn.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer extends Querier with ExecContext for writes and migration.
type Execer interface {
	Querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Migrate creates the graph tables if they do not exist. Idempotent.
func Migrate(ctx context.Context, q Execer) error {
	if _, err := q.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("pgstore migrate: %w", err)
	}
	return nil
}

// Schema returns the DDL Migrate applies, for dry runs and inspection.
func Schema() string {
	return schemaSQL
}

// Store implements warden.Store over a database handle.
type Store struct {
	q Execer
}

// New creates a store over *sql.DB, *sql.Tx, or *sql.Conn.
func New(q Execer) *Store {
	return &Store{q: q}
}

// mapErr converts driver errors into engine sentinels where they express a
// transaction-context failure.
func mapErr(err error) error {
	if errors.Is(err, sql.ErrTxDone) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %v", warden.ErrNoTransaction, err)
	}
	return err
}

// CreateNode inserts a node of the given schema type with initial properties.
func (s *Store) CreateNode(ctx context.Context, nodeType string, props map[string]any) (warden.Object, error) {
	id := uuid.NewString()
	if _, err := s.q.ExecContext(ctx,
		`INSERT INTO graph_nodes (id, type) VALUES ($1, $2)`, id, nodeType); err != nil {
		return warden.Object{}, mapErr(err)
	}
	for k, v := range props {
		if err := s.SetProperty(ctx, id, k, v); err != nil {
			return warden.Object{}, err
		}
	}
	return warden.Object{Kind: warden.KindNode, Type: nodeType, ID: id}, nil
}

// DeleteNode removes a node, its incident relationships, and all properties.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	// Relationship rows cascade; their property rows do not, so collect
	// the incident relationship ids first.
	rels, err := s.Relationships(ctx, id, "", warden.AnyDirection)
	if err != nil {
		return err
	}
	for _, rel := range rels {
		if _, err := s.q.ExecContext(ctx,
			`DELETE FROM graph_props WHERE object_id = $1`, rel.ID); err != nil {
			return mapErr(err)
		}
	}
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM graph_props WHERE object_id = $1`, id); err != nil {
		return mapErr(err)
	}
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM graph_nodes WHERE id = $1`, id); err != nil {
		return mapErr(err)
	}
	return nil
}

// GetObject implements warden.Store.
func (s *Store) GetObject(ctx context.Context, id string) (warden.Object, bool, error) {
	var typ string
	err := s.q.QueryRowContext(ctx,
		`SELECT type FROM graph_nodes WHERE id = $1`, id).Scan(&typ)
	if err == nil {
		return warden.Object{Kind: warden.KindNode, Type: typ, ID: id}, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return warden.Object{}, false, mapErr(err)
	}

	err = s.q.QueryRowContext(ctx,
		`SELECT type FROM graph_rels WHERE id = $1`, id).Scan(&typ)
	if errors.Is(err, sql.ErrNoRows) {
		return warden.Object{}, false, nil
	}
	if err != nil {
		return warden.Object{}, false, mapErr(err)
	}
	return warden.Object{Kind: warden.KindRelationship, Type: typ, ID: id}, true, nil
}

// GetProperty implements warden.Store.
func (s *Store) GetProperty(ctx context.Context, id, key string) (any, bool, error) {
	var raw []byte
	err := s.q.QueryRowContext(ctx,
		`SELECT value FROM graph_props WHERE object_id = $1 AND key = $2`, id, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr(err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, fmt.Errorf("pgstore: decoding property %s.%s: %w", id, key, err)
	}
	return v, true, nil
}

// SetProperty implements warden.Store.
func (s *Store) SetProperty(ctx context.Context, id, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("pgstore: encoding property %s.%s: %w", id, key, err)
	}
	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO graph_props (object_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (object_id, key) DO UPDATE SET value = EXCLUDED.value
	`, id, key, raw); err != nil {
		return mapErr(err)
	}
	return nil
}

// Relationships implements warden.Store.
func (s *Store) Relationships(ctx context.Context, id, relType string, dir warden.RelDirection) ([]warden.Relationship, error) {
	var where string
	switch dir {
	case warden.Outgoing:
		where = `from_id = $1`
	case warden.Incoming:
		where = `to_id = $1`
	default:
		where = `(from_id = $1 OR to_id = $1)`
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, type, from_id, to_id FROM graph_rels
		WHERE `+where+` AND ($2 = '' OR type = $2)
	`, id, relType)
	if err != nil {
		return nil, mapErr(err)
	}
	defer func() { _ = rows.Close() }()

	var out []warden.Relationship
	for rows.Next() {
		var rel warden.Relationship
		rel.Kind = warden.KindRelationship
		if err := rows.Scan(&rel.ID, &rel.Type, &rel.FromID, &rel.ToID); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// CreateRelationship implements warden.Store.
func (s *Store) CreateRelationship(ctx context.Context, relType, fromID, toID string, props map[string]any) (warden.Relationship, error) {
	id := uuid.NewString()
	if _, err := s.q.ExecContext(ctx,
		`INSERT INTO graph_rels (id, type, from_id, to_id) VALUES ($1, $2, $3, $4)`,
		id, relType, fromID, toID); err != nil {
		return warden.Relationship{}, mapErr(err)
	}
	for k, v := range props {
		if err := s.SetProperty(ctx, id, k, v); err != nil {
			return warden.Relationship{}, err
		}
	}
	return warden.Relationship{
		Object: warden.Object{Kind: warden.KindRelationship, Type: relType, ID: id},
		FromID: fromID,
		ToID:   toID,
	}, nil
}

// DeleteRelationship implements warden.Store.
func (s *Store) DeleteRelationship(ctx context.Context, id string) error {
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM graph_props WHERE object_id = $1`, id); err != nil {
		return mapErr(err)
	}
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM graph_rels WHERE id = $1`, id); err != nil {
		return mapErr(err)
	}
	return nil
}

// Execute implements warden.Store. The query is SQL with $1 bound to the
// principal id and $2 to the object id.
func (s *Store) Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	rows, err := s.q.QueryContext(ctx, query,
		params[warden.ParamPrincipal], params[warden.ParamObject])
	if err != nil {
		return nil, mapErr(err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Ensure Store implements the store contract.
var _ warden.Store = (*Store)(nil)
