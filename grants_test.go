package warden_test

import (
	"context"
	"testing"

	"github.com/wardengraph/warden"
	"github.com/wardengraph/warden/store/memgraph"
)

func TestGrantRevoke_RoundTrip(t *testing.T) {
	tx := begin(t)
	r := warden.New(tx, nil)
	ctx := context.Background()

	alice := user(t, tx, "alice")
	doc := node(t, tx, "Document", nil)
	su := warden.SuperUserContext()

	if err := r.Grant(ctx, su, warden.PermissionRead, alice.ID, doc); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := r.Grant(ctx, su, warden.PermissionWrite, alice.ID, doc); err != nil {
		t.Fatalf("grant: %v", err)
	}

	set, err := r.DirectPermissions(ctx, alice.ID, doc)
	if err != nil {
		t.Fatalf("direct permissions: %v", err)
	}
	if !set.Has(warden.PermissionRead) || !set.Has(warden.PermissionWrite) {
		t.Errorf("permission set = %q, want read and write", set)
	}
	if set.Has(warden.PermissionDelete) {
		t.Errorf("permission set = %q, delete was never granted", set)
	}

	if err := r.Revoke(ctx, su, warden.PermissionWrite, alice.ID, doc); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	set, err = r.DirectPermissions(ctx, alice.ID, doc)
	if err != nil {
		t.Fatalf("direct permissions: %v", err)
	}
	if set.Has(warden.PermissionWrite) {
		t.Error("write should be revoked")
	}
	if !set.Has(warden.PermissionRead) {
		t.Error("read should survive revoking write")
	}
}

func TestGrant_Idempotent(t *testing.T) {
	tx := begin(t)
	r := warden.New(tx, nil)
	ctx := context.Background()

	alice := user(t, tx, "alice")
	doc := node(t, tx, "Document", nil)
	su := warden.SuperUserContext()

	for i := 0; i < 3; i++ {
		if err := r.Grant(ctx, su, warden.PermissionRead, alice.ID, doc); err != nil {
			t.Fatalf("grant %d: %v", i, err)
		}
	}

	// Repeated grants reuse the single SECURITY relationship.
	rels, err := tx.Relationships(ctx, doc.ID, warden.RelSecurity, warden.Outgoing)
	if err != nil {
		t.Fatalf("relationships: %v", err)
	}
	if len(rels) != 1 {
		t.Errorf("got %d SECURITY relationships, want 1", len(rels))
	}
}

func TestRevoke_DeletesEmptyRelationship(t *testing.T) {
	tx := begin(t)
	r := warden.New(tx, nil)
	ctx := context.Background()

	alice := user(t, tx, "alice")
	doc := node(t, tx, "Document", nil)
	su := warden.SuperUserContext()

	if err := r.Grant(ctx, su, warden.PermissionRead, alice.ID, doc); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := r.Revoke(ctx, su, warden.PermissionRead, alice.ID, doc); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	// The last permission is gone; no empty grant relationship remains.
	rels, err := tx.Relationships(ctx, doc.ID, warden.RelSecurity, warden.Outgoing)
	if err != nil {
		t.Fatalf("relationships: %v", err)
	}
	if len(rels) != 0 {
		t.Errorf("got %d SECURITY relationships after full revoke, want 0", len(rels))
	}
}

func TestRevoke_AbsentGrantIsNoop(t *testing.T) {
	tx := begin(t)
	r := warden.New(tx, nil)

	alice := user(t, tx, "alice")
	doc := node(t, tx, "Document", nil)

	err := r.Revoke(context.Background(), warden.SuperUserContext(), warden.PermissionRead, alice.ID, doc)
	if err != nil {
		t.Errorf("revoking an absent grant should be a no-op, got %v", err)
	}
}

func TestGrant_RequiresAccessControl(t *testing.T) {
	tx := begin(t)
	r := warden.New(tx, nil)
	ctx := context.Background()

	alice := user(t, tx, "alice")
	bob := user(t, tx, "bob")
	doc := node(t, tx, "Document", nil)

	t.Run("denied without accessControl", func(t *testing.T) {
		err := r.Grant(ctx, warden.FrontendContext(bob.ID), warden.PermissionRead, alice.ID, doc)
		if !warden.IsAccessControlDeniedErr(err) {
			t.Errorf("expected ErrAccessControlDenied, got %v", err)
		}
	})

	t.Run("allowed with accessControl grant", func(t *testing.T) {
		grant(t, r, warden.PermissionAccessControl, bob, doc)
		err := r.Grant(ctx, warden.FrontendContext(bob.ID), warden.PermissionRead, alice.ID, doc)
		if err != nil {
			t.Errorf("grant with accessControl should succeed, got %v", err)
		}
	})

	t.Run("revoke enforces the same rule", func(t *testing.T) {
		carol := user(t, tx, "carol")
		err := r.Revoke(ctx, warden.FrontendContext(carol.ID), warden.PermissionRead, alice.ID, doc)
		if !warden.IsAccessControlDeniedErr(err) {
			t.Errorf("expected ErrAccessControlDenied, got %v", err)
		}
	})
}

func TestGrant_OwnerException(t *testing.T) {
	tx := begin(t)
	r := warden.New(tx, nil)
	ctx := context.Background()

	owner := user(t, tx, "owner")
	alice := user(t, tx, "alice")
	doc := node(t, tx, "Document", map[string]any{warden.PropOwner: owner.ID})

	// Owners manage grants without holding accessControl explicitly.
	err := r.Grant(ctx, warden.FrontendContext(owner.ID), warden.PermissionRead, alice.ID, doc)
	if err != nil {
		t.Fatalf("owner grant: %v", err)
	}
	checkGranted(t, r, doc, warden.PermissionRead, warden.FrontendContext(alice.ID), true)
}

func TestOwner_SetAndReplace(t *testing.T) {
	tx := begin(t)
	r := warden.New(tx, nil)
	ctx := context.Background()

	alice := user(t, tx, "alice")
	bob := user(t, tx, "bob")
	doc := node(t, tx, "Document", nil)

	o, err := r.Owner(ctx, doc)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if o != "" {
		t.Errorf("new object owner = %q, want unowned", o)
	}

	if err := r.SetOwner(ctx, doc, alice.ID); err != nil {
		t.Fatalf("set owner: %v", err)
	}
	if err := r.SetOwner(ctx, doc, bob.ID); err != nil {
		t.Fatalf("replace owner: %v", err)
	}

	o, err = r.Owner(ctx, doc)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if o != bob.ID {
		t.Errorf("owner = %q, want %q; exactly one owner at a time", o, bob.ID)
	}
	checkGranted(t, r, doc, warden.PermissionDelete, warden.FrontendContext(alice.ID), false)
	checkGranted(t, r, doc, warden.PermissionDelete, warden.FrontendContext(bob.ID), true)
}

func TestGrant_VisibleWithinTransactionOnly(t *testing.T) {
	g := memgraph.New()
	ctx := context.Background()

	setup := g.Begin()
	alice, err := setup.CreateNode(ctx, warden.TypeUser, map[string]any{warden.PropName: "alice"})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	doc, err := setup.CreateNode(ctx, "Document", nil)
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	if err := setup.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Grant inside an open transaction: visible to that transaction's
	// resolver immediately, invisible to a parallel transaction.
	writer := g.Begin()
	other := g.Begin()
	wr := warden.New(writer, nil)
	or := warden.New(other, nil)

	if err := wr.Grant(ctx, warden.SuperUserContext(), warden.PermissionRead, alice.ID, doc); err != nil {
		t.Fatalf("grant: %v", err)
	}

	checkGranted(t, wr, doc, warden.PermissionRead, warden.FrontendContext(alice.ID), true)
	checkGranted(t, or, doc, warden.PermissionRead, warden.FrontendContext(alice.ID), false)

	// After commit a fresh transaction observes the grant.
	if err := writer.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	after := warden.New(g.Begin(), nil)
	checkGranted(t, after, doc, warden.PermissionRead, warden.FrontendContext(alice.ID), true)
}

func TestGrant_RollbackLeavesNoTrace(t *testing.T) {
	g := memgraph.New()
	ctx := context.Background()

	setup := g.Begin()
	alice, err := setup.CreateNode(ctx, warden.TypeUser, map[string]any{warden.PropName: "alice"})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	doc, err := setup.CreateNode(ctx, "Document", nil)
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	if err := setup.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx := g.Begin()
	r := warden.New(tx, nil)
	if err := r.Grant(ctx, warden.SuperUserContext(), warden.PermissionRead, alice.ID, doc); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	after := warden.New(g.Begin(), nil)
	checkGranted(t, after, doc, warden.PermissionRead, warden.FrontendContext(alice.ID), false)
}
