package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rustgrapher/internal/graph"
)

func node(id string, public bool, file string, start, end int) *graph.Symbol {
	return &graph.Symbol{ID: id, Name: id, DisplayName: id, Kind: "function", IsPublic: public, Filepath: file, StartLine: start, EndLine: end}
}

func call(from, to string) graph.Edge {
	return graph.Edge{Caller: from, Callee: to, Raw: to, Kind: "direct", Resolution: graph.Resolved, Lines: []int{1}}
}

func external(from, raw string) graph.Edge {
	return graph.Edge{Caller: from, Raw: raw, Kind: "direct", Resolution: graph.Unresolved, Lines: []int{1}}
}

// chain builds a -> b -> c -> d with a back edge d -> b, plus a -> e and an
// unresolved call from b.
func chain(t *testing.T) *graph.CallGraph {
	t.Helper()
	g, err := graph.Build([]*graph.Symbol{
		node("a", true, "src/lib.rs", 1, 5),
		node("b", true, "src/lib.rs", 7, 12),
		node("c", false, "src/lib.rs", 14, 20),
		node("d", true, "src/util.rs", 1, 9),
		node("e", false, "src/util.rs", 11, 15),
		node("test_helper", false, "src/util.rs", 17, 20),
	}, []graph.Edge{
		call("a", "b"),
		call("a", "e"),
		call("b", "c"),
		call("c", "d"),
		call("d", "b"),
		external("b", "serde_json::to_string"),
		call("test_helper", "a"),
	})
	require.NoError(t, err)
	return g
}

func ids(res *graph.QueryResult) []string {
	var out []string
	for _, n := range res.Nodes {
		out = append(out, n.ID)
	}
	return out
}

func targets(res *graph.QueryResult) []string {
	var out []string
	for _, e := range res.Edges {
		out = append(out, e.Caller+"->"+e.Target())
	}
	return out
}

func TestSubgraph_Full(t *testing.T) {
	g := chain(t)

	res, err := Subgraph(g, Query{MaxDepth: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "test_helper"}, ids(res))
	assert.Len(t, res.Edges, 7)
	require.NoError(t, res.Check())

	t.Run("Filters", func(t *testing.T) {
		res, err := Subgraph(g, Query{PublicOnly: true, HideUnresolved: true, MaxDepth: -1})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "d"}, ids(res))
		assert.Equal(t, []string{"a->b", "d->b"}, targets(res))

		res, err = Subgraph(g, Query{Exclude: []string{"test_*"}, MaxDepth: -1})
		require.NoError(t, err)
		assert.NotContains(t, ids(res), "test_helper")
		require.NoError(t, res.Check())
	})
}

func TestSubgraph_Focus(t *testing.T) {
	g := chain(t)

	t.Run("Depth zero", func(t *testing.T) {
		res, err := Subgraph(g, Query{Focus: "b", MaxDepth: 0})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ids(res))
		assert.Empty(t, res.Edges)
	})

	t.Run("Depth one", func(t *testing.T) {
		res, err := Subgraph(g, Query{Focus: "a", MaxDepth: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "e"}, ids(res))
		assert.Equal(t, []string{"a->b", "a->e"}, targets(res))
	})

	t.Run("Unresolved edges inside the bound", func(t *testing.T) {
		res, err := Subgraph(g, Query{Focus: "a", MaxDepth: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "e", "c"}, ids(res))
		assert.Equal(t, []string{"a->b", "a->e", "b->?serde_json::to_string", "b->c"}, targets(res))
		require.NoError(t, res.Check())
	})

	t.Run("Unbounded", func(t *testing.T) {
		res, err := Subgraph(g, Query{Focus: "b", MaxDepth: -1})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "d"}, ids(res))
		assert.Equal(t, []string{"b->?serde_json::to_string", "b->c", "c->d", "d->b"}, targets(res))
	})

	t.Run("Boundary exactness", func(t *testing.T) {
		dist := map[string]int{"a": 0, "b": 1, "e": 1, "c": 2, "d": 3}
		for depth := 0; depth <= 4; depth++ {
			res, err := Subgraph(g, Query{Focus: "a", MaxDepth: depth})
			require.NoError(t, err)
			for id, d := range dist {
				if d <= depth {
					assert.Contains(t, ids(res), id, "depth %d", depth)
				} else {
					assert.NotContains(t, ids(res), id, "depth %d", depth)
				}
			}
			require.NoError(t, res.Check())
		}
	})

	t.Run("Leaf focus", func(t *testing.T) {
		res, err := Subgraph(g, Query{Focus: "e", MaxDepth: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"e"}, ids(res))
		assert.Empty(t, res.Edges)
	})

	t.Run("Not found", func(t *testing.T) {
		_, err := Subgraph(g, Query{Focus: "zzz", MaxDepth: 1})
		assert.ErrorIs(t, err, graph.ErrFocusNotFound)
	})

	t.Run("Deterministic", func(t *testing.T) {
		first, err := Subgraph(g, Query{Focus: "a", MaxDepth: -1})
		require.NoError(t, err)
		second, err := Subgraph(g, Query{Focus: "a", MaxDepth: -1})
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestCallers(t *testing.T) {
	g := chain(t)

	res := Callers(g, []string{"c"}, 1)
	assert.Equal(t, []string{"c", "b"}, ids(res))
	assert.Equal(t, []string{"b->c"}, targets(res))

	res = Callers(g, []string{"c", "missing"}, -1)
	assert.Equal(t, []string{"c", "b", "a", "d", "test_helper"}, ids(res))
	require.NoError(t, res.Check())
}
