package retrieval

import (
	"path/filepath"
	"sort"

	"rustgrapher/internal/graph"
)

// Query selects a subgraph of a call graph.
type Query struct {
	// Focus is resolved with CallGraph.ResolveFocus. Empty selects the whole graph.
	Focus string
	// MaxDepth bounds the traversal from Focus; negative means unbounded.
	MaxDepth int
	// Exclude drops nodes whose name or ID matches one of the wildcard patterns.
	Exclude        []string
	PublicOnly     bool
	HideUnresolved bool
}

// Subgraph runs q against g. Without a focus the whole graph is returned with
// nodes in ID order; with a focus nodes come in breadth-first order, callees
// visited by ID.
func Subgraph(g *graph.CallGraph, q Query) (*graph.QueryResult, error) {
	if q.Focus == "" {
		return full(g, q), nil
	}

	focus, err := g.ResolveFocus(q.Focus)
	if err != nil {
		return nil, err
	}

	depth := map[string]int{focus: 0}
	order := []string{focus}
	queue := []string{focus}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if q.MaxDepth >= 0 && depth[cur] >= q.MaxDepth {
			continue
		}
		for _, e := range g.Outgoing(cur) {
			if !e.IsResolved() || !allowed(g.Nodes[e.Callee], q) {
				continue
			}
			if _, seen := depth[e.Callee]; seen {
				continue
			}
			depth[e.Callee] = depth[cur] + 1
			order = append(order, e.Callee)
			queue = append(queue, e.Callee)
		}
	}

	res := &graph.QueryResult{Nodes: make([]*graph.Symbol, 0, len(order))}
	for _, id := range order {
		res.Nodes = append(res.Nodes, g.Nodes[id])
	}
	if q.MaxDepth == 0 {
		return res, nil
	}
	for _, e := range g.Edges {
		callerDepth, ok := depth[e.Caller]
		if !ok {
			continue
		}
		if e.IsResolved() {
			if _, ok := depth[e.Callee]; ok {
				res.Edges = append(res.Edges, e)
			}
			continue
		}
		if !q.HideUnresolved && (q.MaxDepth < 0 || callerDepth < q.MaxDepth) {
			res.Edges = append(res.Edges, e)
		}
	}
	return res, nil
}

func full(g *graph.CallGraph, q Query) *graph.QueryResult {
	res := &graph.QueryResult{}
	included := make(map[string]bool)
	for _, id := range g.IDs() {
		s := g.Nodes[id]
		if !allowed(s, q) {
			continue
		}
		included[id] = true
		res.Nodes = append(res.Nodes, s)
	}
	for _, e := range g.Edges {
		if !included[e.Caller] {
			continue
		}
		if e.IsResolved() && !included[e.Callee] {
			continue
		}
		if !e.IsResolved() && q.HideUnresolved {
			continue
		}
		res.Edges = append(res.Edges, e)
	}
	return res
}

func allowed(s *graph.Symbol, q Query) bool {
	if s == nil {
		return false
	}
	if q.PublicOnly && !s.IsPublic {
		return false
	}
	return !MatchesAny(q.Exclude, s.Name, s.ID)
}

// MatchesAny reports whether any of the values matches one of the wildcard patterns.
func MatchesAny(patterns []string, values ...string) bool {
	for _, p := range patterns {
		for _, v := range values {
			if ok, _ := filepath.Match(p, v); ok {
				return true
			}
		}
	}
	return false
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
