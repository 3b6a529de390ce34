package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardengraph/warden"
	"github.com/wardengraph/warden/store/pgstore"
	"github.com/wardengraph/warden/test/testutil"
)

// TestDB_Integration verifies that the test database is properly set up
// with the graph tables applied.
func TestDB_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.DB(t)
	ctx := context.Background()

	tables := []string{"graph_nodes", "graph_rels", "graph_props"}
	for _, table := range tables {
		var exists bool
		err := db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_name = $1
			)
		`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "table %s should exist", table)
	}
}

// TestMigrate_Idempotent verifies the schema can be applied twice.
func TestMigrate_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.DB(t)
	require.NoError(t, pgstore.Migrate(context.Background(), db))
}

// TestDirectAndGroupGrants exercises grant management and transitive group
// membership against a real PostgreSQL store.
func TestDirectAndGroupGrants(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tx := testutil.Tx(t)
	ctx := context.Background()
	store := pgstore.New(tx)
	resolver := warden.New(store, warden.NewRegistry())

	alice := pgNode(t, store, warden.TypeUser, map[string]any{warden.PropName: "alice"})
	bob := pgNode(t, store, warden.TypeUser, map[string]any{warden.PropName: "bob"})
	staff := pgNode(t, store, warden.TypeGroup, map[string]any{warden.PropName: "staff"})
	leads := pgNode(t, store, warden.TypeGroup, map[string]any{warden.PropName: "leads"})
	doc := pgNode(t, store, "Document", nil)

	// alice ∈ staff ∈ leads
	pgLink(t, store, warden.RelMembers, staff, alice)
	pgLink(t, store, warden.RelMembers, leads, staff)

	su := warden.SuperUserContext()
	require.NoError(t, resolver.Grant(ctx, su, warden.PermissionRead, leads.ID, doc))
	require.NoError(t, resolver.Grant(ctx, su, warden.PermissionWrite, bob.ID, doc))

	t.Run("group member inherits grant transitively", func(t *testing.T) {
		ok, err := resolver.IsGranted(ctx, doc, warden.PermissionRead, warden.FrontendContext(alice.ID))
		require.NoError(t, err)
		assert.True(t, ok, "alice should read via leads")

		ok, err = resolver.IsGranted(ctx, doc, warden.PermissionWrite, warden.FrontendContext(alice.ID))
		require.NoError(t, err)
		assert.False(t, ok, "alice should not write")
	})

	t.Run("direct grant", func(t *testing.T) {
		ok, err := resolver.IsGranted(ctx, doc, warden.PermissionWrite, warden.FrontendContext(bob.ID))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("revoke removes access", func(t *testing.T) {
		require.NoError(t, resolver.Revoke(ctx, su, warden.PermissionWrite, bob.ID, doc))
		ok, err := resolver.IsGranted(ctx, doc, warden.PermissionWrite, warden.FrontendContext(bob.ID))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("transitive groups", func(t *testing.T) {
		groups, err := resolver.TransitiveGroupsOf(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, groups, 2)
	})
}

// TestPropagation_FolderTree exercises schema-defined propagation over a
// folder hierarchy stored in PostgreSQL.
func TestPropagation_FolderTree(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tx := testutil.Tx(t)
	ctx := context.Background()
	store := pgstore.New(tx)

	reg := warden.NewRegistry()
	require.NoError(t, reg.SetRelationshipRule(warden.RelationshipRule{
		Type:      "CONTAINS",
		Source:    "Folder",
		Target:    "Document",
		Direction: warden.DirectionOut,
		Read:      warden.ModeAdd,
		Write:     warden.ModeAdd,
	}))
	resolver := warden.New(store, reg)

	alice := pgNode(t, store, warden.TypeUser, nil)
	root := pgNode(t, store, "Folder", nil)
	doc := pgNode(t, store, "Document", nil)
	pgLink(t, store, "CONTAINS", root, doc)

	require.NoError(t, resolver.Grant(ctx, warden.SuperUserContext(), warden.PermissionRead, alice.ID, root))

	ok, err := resolver.IsGranted(ctx, doc, warden.PermissionRead, warden.FrontendContext(alice.ID))
	require.NoError(t, err)
	assert.True(t, ok, "read should flow from folder to document")

	ok, err = resolver.IsGranted(ctx, doc, warden.PermissionWrite, warden.FrontendContext(alice.ID))
	require.NoError(t, err)
	assert.False(t, ok, "write was never granted on the folder")
}

// TestCustomQuery_SQL exercises a custom permission query written in SQL,
// with the principal and object ids bound positionally.
func TestCustomQuery_SQL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tx := testutil.Tx(t)
	ctx := context.Background()
	store := pgstore.New(tx)
	resolver := warden.New(store, warden.NewRegistry())

	alice := pgNode(t, store, warden.TypeUser, nil)
	doc := pgNode(t, store, "Document", map[string]any{"published": true})
	draft := pgNode(t, store, "Document", nil)

	// alice may read whatever carries published = true.
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM graph_props
			WHERE object_id = $2 AND key = 'published' AND value = 'true'::jsonb
		)`
	require.NoError(t, store.SetProperty(ctx, alice.ID, warden.PropCustomQueryRead, q))

	ok, err := resolver.IsGranted(ctx, doc, warden.PermissionRead, warden.FrontendContext(alice.ID))
	require.NoError(t, err)
	assert.True(t, ok, "published document should be readable")

	ok, err = resolver.IsGranted(ctx, draft, warden.PermissionRead, warden.FrontendContext(alice.ID))
	require.NoError(t, err)
	assert.False(t, ok, "unpublished document should not be readable")
}

// TestVisibilityFlags exercises the public and authenticated visibility
// flags on the read permission.
func TestVisibilityFlags(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tx := testutil.Tx(t)
	ctx := context.Background()
	store := pgstore.New(tx)
	resolver := warden.New(store, warden.NewRegistry())

	alice := pgNode(t, store, warden.TypeUser, nil)
	public := pgNode(t, store, "Document", map[string]any{warden.PropVisibleToPublic: true})
	internal := pgNode(t, store, "Document", map[string]any{warden.PropVisibleToAuth: true})

	ok, err := resolver.IsGranted(ctx, public, warden.PermissionRead, warden.PublicContext())
	require.NoError(t, err)
	assert.True(t, ok, "public flag should grant anonymous read")

	ok, err = resolver.IsGranted(ctx, internal, warden.PermissionRead, warden.PublicContext())
	require.NoError(t, err)
	assert.False(t, ok, "authenticated flag should not grant anonymous read")

	ok, err = resolver.IsGranted(ctx, internal, warden.PermissionRead, warden.FrontendContext(alice.ID))
	require.NoError(t, err)
	assert.True(t, ok, "authenticated flag should grant authenticated read")
}

// TestTransactionBoundary verifies that rolled back writes leave no trace
// and committed writes survive.
func TestTransactionBoundary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.DB(t)
	ctx := context.Background()

	var docID string

	t.Run("rollback", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		store := pgstore.New(tx)

		doc, err := store.CreateNode(ctx, "Document", nil)
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		_, found, err := pgstore.New(db).GetObject(ctx, doc.ID)
		require.NoError(t, err)
		assert.False(t, found, "rolled back node should not exist")
	})

	t.Run("commit", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		store := pgstore.New(tx)

		doc, err := store.CreateNode(ctx, "Document", nil)
		require.NoError(t, err)
		docID = doc.ID
		require.NoError(t, tx.Commit())

		_, found, err := pgstore.New(db).GetObject(ctx, docID)
		require.NoError(t, err)
		assert.True(t, found, "committed node should exist")
	})

	t.Run("store reports closed transaction", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		store := pgstore.New(tx)
		require.NoError(t, tx.Rollback())

		_, _, err = store.GetObject(ctx, docID)
		assert.ErrorIs(t, err, warden.ErrNoTransaction)
	})
}

// TestDeleteNode_Cascades verifies node deletion removes attached
// relationships and properties.
func TestDeleteNode_Cascades(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tx := testutil.Tx(t)
	ctx := context.Background()
	store := pgstore.New(tx)

	folder := pgNode(t, store, "Folder", nil)
	doc := pgNode(t, store, "Document", map[string]any{"title": "t"})
	rel := pgLink(t, store, "CONTAINS", folder, doc)

	require.NoError(t, store.DeleteNode(ctx, doc.ID))

	_, found, err := store.GetObject(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = store.GetObject(ctx, rel.ID)
	require.NoError(t, err)
	assert.False(t, found, "attached relationship should be gone")

	rels, err := store.Relationships(ctx, folder.ID, "", warden.AnyDirection)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func pgNode(t *testing.T, store *pgstore.Store, nodeType string, props map[string]any) warden.Object {
	t.Helper()
	obj, err := store.CreateNode(context.Background(), nodeType, props)
	require.NoError(t, err, "creating %s node", nodeType)
	return obj
}

func pgLink(t *testing.T, store *pgstore.Store, relType string, from, to warden.Object) warden.Relationship {
	t.Helper()
	rel, err := store.CreateRelationship(context.Background(), relType, from.ID, to.ID, nil)
	require.NoError(t, err, "creating %s relationship", relType)
	return rel
}
