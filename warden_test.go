package warden_test

import (
	"context"
	"testing"

	"github.com/wardengraph/warden"
	"github.com/wardengraph/warden/store/memgraph"
)

// begin opens a fresh single-transaction graph for a test.
func begin(t *testing.T) *memgraph.Tx {
	t.Helper()
	return memgraph.New().Begin()
}

func node(t *testing.T, tx *memgraph.Tx, nodeType string, props map[string]any) warden.Object {
	t.Helper()
	obj, err := tx.CreateNode(context.Background(), nodeType, props)
	if err != nil {
		t.Fatalf("creating %s node: %v", nodeType, err)
	}
	return obj
}

func user(t *testing.T, tx *memgraph.Tx, name string) warden.Object {
	t.Helper()
	return node(t, tx, warden.TypeUser, map[string]any{warden.PropName: name})
}

func group(t *testing.T, tx *memgraph.Tx, name string) warden.Object {
	t.Helper()
	return node(t, tx, warden.TypeGroup, map[string]any{warden.PropName: name})
}

func link(t *testing.T, tx *memgraph.Tx, relType string, from, to warden.Object) warden.Relationship {
	t.Helper()
	rel, err := tx.CreateRelationship(context.Background(), relType, from.ID, to.ID, nil)
	if err != nil {
		t.Fatalf("creating %s relationship: %v", relType, err)
	}
	return rel
}

// member adds m to g via a MEMBERS edge.
func member(t *testing.T, tx *memgraph.Tx, g, m warden.Object) warden.Relationship {
	t.Helper()
	return link(t, tx, warden.RelMembers, g, m)
}

func grant(t *testing.T, r *warden.Resolver, perm warden.Permission, principal, object warden.Object) {
	t.Helper()
	err := r.Grant(context.Background(), warden.SuperUserContext(), perm, principal.ID, object)
	if err != nil {
		t.Fatalf("granting %s on %s to %s: %v", perm, object, principal.ID, err)
	}
}

func checkGranted(t *testing.T, r *warden.Resolver, object warden.Object, perm warden.Permission, sctx warden.SecurityContext, want bool) {
	t.Helper()
	got, err := r.IsGranted(context.Background(), object, perm, sctx)
	if err != nil {
		t.Fatalf("IsGranted(%s, %s, %v): %v", object, perm, sctx, err)
	}
	if got != want {
		t.Errorf("IsGranted(%s, %s, %v) = %v, want %v", object, perm, sctx, got, want)
	}
}
