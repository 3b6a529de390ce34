package warden_test

import (
	"context"
	"testing"

	"github.com/wardengraph/warden"
)

func groupIDs(groups []warden.Principal) map[string]bool {
	ids := make(map[string]bool, len(groups))
	for _, g := range groups {
		ids[g.ID] = true
	}
	return ids
}

func TestTransitiveGroupsOf(t *testing.T) {
	ctx := context.Background()

	t.Run("nested membership", func(t *testing.T) {
		tx := begin(t)
		alice := user(t, tx, "alice")
		staff := group(t, tx, "staff")
		leads := group(t, tx, "leads")
		board := group(t, tx, "board")

		member(t, tx, staff, alice)
		member(t, tx, leads, staff)
		member(t, tx, board, leads)

		groups, err := warden.TransitiveGroupsOf(ctx, tx, alice.ID)
		if err != nil {
			t.Fatalf("closure: %v", err)
		}
		ids := groupIDs(groups)
		for _, g := range []warden.Object{staff, leads, board} {
			if !ids[g.ID] {
				t.Errorf("closure missing group %s", g.ID)
			}
		}
		if len(groups) != 3 {
			t.Errorf("closure has %d groups, want 3", len(groups))
		}
	})

	t.Run("diamond membership deduplicates", func(t *testing.T) {
		tx := begin(t)
		alice := user(t, tx, "alice")
		left := group(t, tx, "left")
		right := group(t, tx, "right")
		top := group(t, tx, "top")

		member(t, tx, left, alice)
		member(t, tx, right, alice)
		member(t, tx, top, left)
		member(t, tx, top, right)

		groups, err := warden.TransitiveGroupsOf(ctx, tx, alice.ID)
		if err != nil {
			t.Fatalf("closure: %v", err)
		}
		if len(groups) != 3 {
			t.Errorf("closure has %d groups, want 3 (top counted once)", len(groups))
		}
	})

	t.Run("membership cycle terminates", func(t *testing.T) {
		tx := begin(t)
		alice := user(t, tx, "alice")
		a := group(t, tx, "a")
		b := group(t, tx, "b")

		// a and b are members of each other.
		member(t, tx, a, alice)
		member(t, tx, b, a)
		member(t, tx, a, b)

		groups, err := warden.TransitiveGroupsOf(ctx, tx, alice.ID)
		if err != nil {
			t.Fatalf("closure: %v", err)
		}
		if len(groups) != 2 {
			t.Errorf("closure has %d groups, want 2", len(groups))
		}
	})

	t.Run("self-membership terminates", func(t *testing.T) {
		tx := begin(t)
		alice := user(t, tx, "alice")
		g := group(t, tx, "g")
		member(t, tx, g, alice)
		member(t, tx, g, g)

		groups, err := warden.TransitiveGroupsOf(ctx, tx, alice.ID)
		if err != nil {
			t.Fatalf("closure: %v", err)
		}
		if len(groups) != 1 {
			t.Errorf("closure has %d groups, want 1", len(groups))
		}
	})

	t.Run("no memberships", func(t *testing.T) {
		tx := begin(t)
		alice := user(t, tx, "alice")

		groups, err := warden.TransitiveGroupsOf(ctx, tx, alice.ID)
		if err != nil {
			t.Fatalf("closure: %v", err)
		}
		if len(groups) != 0 {
			t.Errorf("closure has %d groups, want none", len(groups))
		}
	})
}

func TestIsAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit flag", func(t *testing.T) {
		tx := begin(t)
		root := node(t, tx, warden.TypeUser, map[string]any{
			warden.PropName:  "root",
			warden.PropAdmin: true,
		})

		admin, err := warden.IsAdmin(ctx, tx, root.ID)
		if err != nil {
			t.Fatalf("IsAdmin: %v", err)
		}
		if !admin {
			t.Error("explicitly flagged principal should be admin")
		}
	})

	t.Run("inherited through nested groups", func(t *testing.T) {
		tx := begin(t)
		alice := user(t, tx, "alice")
		staff := group(t, tx, "staff")
		admins := node(t, tx, warden.TypeGroup, map[string]any{
			warden.PropName:  "admins",
			warden.PropAdmin: true,
		})
		member(t, tx, staff, alice)
		member(t, tx, admins, staff)

		admin, err := warden.IsAdmin(ctx, tx, alice.ID)
		if err != nil {
			t.Fatalf("IsAdmin: %v", err)
		}
		if !admin {
			t.Error("admin flag should be inherited through the group chain")
		}
	})

	t.Run("not admin", func(t *testing.T) {
		tx := begin(t)
		alice := user(t, tx, "alice")
		staff := group(t, tx, "staff")
		member(t, tx, staff, alice)

		admin, err := warden.IsAdmin(ctx, tx, alice.ID)
		if err != nil {
			t.Fatalf("IsAdmin: %v", err)
		}
		if admin {
			t.Error("principal without admin ancestry should not be admin")
		}
	})

	t.Run("cycle without admin terminates", func(t *testing.T) {
		tx := begin(t)
		alice := user(t, tx, "alice")
		a := group(t, tx, "a")
		b := group(t, tx, "b")
		member(t, tx, a, alice)
		member(t, tx, b, a)
		member(t, tx, a, b)

		admin, err := warden.IsAdmin(ctx, tx, alice.ID)
		if err != nil {
			t.Fatalf("IsAdmin: %v", err)
		}
		if admin {
			t.Error("cyclic non-admin groups should not grant admin")
		}
	})
}

func TestResolvePrincipal(t *testing.T) {
	ctx := context.Background()
	tx := begin(t)

	alice := node(t, tx, warden.TypeUser, map[string]any{warden.PropName: "alice"})
	staff := node(t, tx, warden.TypeGroup, map[string]any{
		warden.PropName:  "staff",
		warden.PropAdmin: true,
	})
	doc := node(t, tx, "Document", nil)

	t.Run("user", func(t *testing.T) {
		p, ok, err := warden.ResolvePrincipal(ctx, tx, alice.ID)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if !ok {
			t.Fatal("user should resolve")
		}
		if p.Name != "alice" || p.Group || p.Admin {
			t.Errorf("principal = %+v, want non-admin user alice", p)
		}
	})

	t.Run("group", func(t *testing.T) {
		p, ok, err := warden.ResolvePrincipal(ctx, tx, staff.ID)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if !ok {
			t.Fatal("group should resolve")
		}
		if !p.Group || !p.Admin {
			t.Errorf("principal = %+v, want admin group", p)
		}
	})

	t.Run("non-principal node", func(t *testing.T) {
		_, ok, err := warden.ResolvePrincipal(ctx, tx, doc.ID)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if ok {
			t.Error("document node should not resolve as a principal")
		}
	})

	t.Run("missing id", func(t *testing.T) {
		_, ok, err := warden.ResolvePrincipal(ctx, tx, "ghost")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if ok {
			t.Error("missing id should resolve to found == false, not an error")
		}
	})
}
