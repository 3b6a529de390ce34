package warden_test

import (
	"context"
	"testing"

	"github.com/wardengraph/warden"
	"github.com/wardengraph/warden/store/memgraph"
)

func setQuery(t *testing.T, tx *memgraph.Tx, principal warden.Object, prop, query string) {
	t.Helper()
	if err := tx.SetProperty(context.Background(), principal.ID, prop, query); err != nil {
		t.Fatalf("setting %s: %v", prop, err)
	}
}

func TestCustomQuery_Grant(t *testing.T) {
	tx := begin(t)
	r := warden.New(tx, nil)

	alice := user(t, tx, "alice")
	setQuery(t, tx, alice, warden.PropCustomQueryRead, "RETURN true")
	doc := node(t, tx, "Document", nil)

	// The query decides reads without any grant on the object.
	checkGranted(t, r, doc, warden.PermissionRead, warden.FrontendContext(alice.ID), true)
	// Writes are untouched: no write query is stored.
	checkGranted(t, r, doc, warden.PermissionWrite, warden.FrontendContext(alice.ID), false)
}

func TestCustomQuery_DenialIsDefinitive(t *testing.T) {
	tx := begin(t)
	r := warden.New(tx, nil)

	alice := user(t, tx, "alice")
	setQuery(t, tx, alice, warden.PropCustomQueryRead, "RETURN false")
	doc := node(t, tx, "Document", nil)

	// A direct grant would allow the read, but the query result overrides
	// the remaining resolution steps in both directions.
	grant(t, r, warden.PermissionRead, alice, doc)
	checkGranted(t, r, doc, warden.PermissionRead, warden.FrontendContext(alice.ID), false)
}

func TestCustomQuery_ReadAndWriteIndependent(t *testing.T) {
	tx := begin(t)
	r := warden.New(tx, nil)

	alice := user(t, tx, "alice")
	setQuery(t, tx, alice, warden.PropCustomQueryRead, "RETURN false")
	setQuery(t, tx, alice, warden.PropCustomQueryWrite, "RETURN true")
	doc := node(t, tx, "Document", nil)

	sctx := warden.FrontendContext(alice.ID)
	checkGranted(t, r, doc, warden.PermissionRead, sctx, false)
	checkGranted(t, r, doc, warden.PermissionWrite, sctx, true)
	// Delete and accessControl never consult custom queries.
	checkGranted(t, r, doc, warden.PermissionDelete, sctx, false)
}

func TestCustomQuery_PropertyPredicate(t *testing.T) {
	tx := begin(t)
	r := warden.New(tx, nil)

	alice := user(t, tx, "alice")
	setQuery(t, tx, alice, warden.PropCustomQueryRead, "PROPERTY published OF OBJECT")

	published := node(t, tx, "Document", map[string]any{"published": true})
	draft := node(t, tx, "Document", map[string]any{"published": false})
	unset := node(t, tx, "Document", nil)

	sctx := warden.FrontendContext(alice.ID)
	checkGranted(t, r, published, warden.PermissionRead, sctx, true)
	checkGranted(t, r, draft, warden.PermissionRead, sctx, false)
	checkGranted(t, r, unset, warden.PermissionRead, sctx, false)
}

func TestCustomQuery_MalformedQuery(t *testing.T) {
	tx := begin(t)
	r := warden.New(tx, nil)
	ctx := context.Background()

	alice := user(t, tx, "alice")
	doc := node(t, tx, "Document", nil)

	for _, query := range []string{
		"EXPLODE",
		"RETURN maybe",
		"PROPERTY published OF NOBODY",
	} {
		setQuery(t, tx, alice, warden.PropCustomQueryRead, query)
		_, err := r.IsGranted(ctx, doc, warden.PermissionRead, warden.FrontendContext(alice.ID))
		if !warden.IsInvalidQueryErr(err) {
			t.Errorf("query %q: expected ErrInvalidQuery, got %v", query, err)
		}
	}
}

func TestCustomQuery_NonBooleanResult(t *testing.T) {
	tx := begin(t)
	r := warden.New(tx, nil)

	alice := user(t, tx, "alice")
	// The property predicate yields the raw value; a string is not a
	// valid permission result.
	setQuery(t, tx, alice, warden.PropCustomQueryRead, "PROPERTY title OF OBJECT")
	doc := node(t, tx, "Document", map[string]any{"title": "not a bool"})

	_, err := r.IsGranted(context.Background(), doc, warden.PermissionRead, warden.FrontendContext(alice.ID))
	if !warden.IsInvalidQueryErr(err) {
		t.Errorf("expected ErrInvalidQuery for non-boolean result, got %v", err)
	}
}
