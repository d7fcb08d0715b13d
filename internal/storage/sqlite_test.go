package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rustgrapher/internal/graph"
)

func TestSQLiteStore_SaveGraph_SnapshotSync(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	// Initial snapshot: A, B and edge A->B
	a := testSymbol("app::a", "a", "src/lib.rs", 1, 10)
	b := testSymbol("app::b", "b", "src/lib.rs", 12, 20)
	g1 := mustBuild(t, []*graph.Symbol{a, b}, []graph.Edge{
		{Caller: a.ID, Callee: b.ID, Raw: "b", Kind: "direct", Resolution: graph.Resolved, Resolver: "exact", Lines: []int{3}},
	})
	require.NoError(t, store.SaveGraph(ctx, g1, Meta{Root: "/work/app"}))

	// New snapshot: remove A, add C, and replace edge with C->B.
	c := testSymbol("app::util::c", "c", "src/util.rs", 1, 10)
	g2 := mustBuild(t, []*graph.Symbol{b, c}, []graph.Edge{
		{Caller: c.ID, Callee: b.ID, Raw: "crate::b", Kind: "path", Resolution: graph.Resolved, Resolver: "exact", Lines: []int{2, 4}},
		{Caller: c.ID, Raw: "external_lib_fn", Kind: "direct", Resolution: graph.Unresolved, Lines: []int{5}},
	})
	savedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveGraph(ctx, g2, Meta{Root: "/work/app", SavedAt: savedAt}))

	loaded, err := store.LoadGraph(ctx)
	require.NoError(t, err)

	// Node snapshot should match exactly (A removed).
	assert.Equal(t, []string{"app::b", "app::util::c"}, loaded.IDs())
	assert.Equal(t, c, loaded.Nodes[c.ID])

	// Edge snapshot should match exactly (old edge removed).
	assert.Equal(t, g2.Edges, loaded.Edges)

	meta, err := store.LoadMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/work/app", meta.Root)
	assert.True(t, savedAt.Equal(meta.SavedAt))

	t.Run("Symbols by file", func(t *testing.T) {
		syms, err := store.FindSymbolsByFile(ctx, "src/util.rs")
		require.NoError(t, err)
		require.Len(t, syms, 1)
		assert.Equal(t, c, syms[0])

		syms, err = store.FindSymbolsByFile(ctx, "src/removed.rs")
		require.NoError(t, err)
		assert.Empty(t, syms)
	})
}

func TestSQLiteStore_SaveGraph_EmptySnapshotClearsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	_, err = store.LoadMeta(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	g := mustBuild(t, []*graph.Symbol{testSymbol("x::f", "f", "src/lib.rs", 1, 10)}, nil)
	require.NoError(t, store.SaveGraph(ctx, g, Meta{}))

	require.NoError(t, store.SaveGraph(ctx, mustBuild(t, nil, nil), Meta{}))

	loaded, err := store.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.Nodes)
	assert.Empty(t, loaded.Edges)
}

func mustBuild(t *testing.T, symbols []*graph.Symbol, edges []graph.Edge) *graph.CallGraph {
	t.Helper()
	g, err := graph.Build(symbols, edges)
	require.NoError(t, err)
	return g
}

func testSymbol(id, name, path string, startLine, endLine int) *graph.Symbol {
	return &graph.Symbol{
		ID:          id,
		Name:        name,
		DisplayName: name,
		Module:      "app",
		Crate:       "app",
		Kind:        "function",
		Filepath:    path,
		StartLine:   startLine,
		EndLine:     endLine,
		Signature:   "pub fn " + name + "()",
		IsPublic:    true,
	}
}
