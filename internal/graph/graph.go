package graph

import (
	"sort"
	"strings"
)

// CallGraph holds symbols keyed by ID and the edges between them.
// It is read-only after Build.
type CallGraph struct {
	Nodes map[string]*Symbol
	Edges []Edge

	out map[string][]int // caller -> edge indexes, ordered by target
	in  map[string][]int // resolved callee -> edge indexes, ordered by caller
	ids []string
}

// Build validates symbols and edges and assembles the graph.
// Edges sharing a caller and target are merged and keep every call-site line.
func Build(symbols []*Symbol, edges []Edge) (*CallGraph, error) {
	g := &CallGraph{
		Nodes: make(map[string]*Symbol, len(symbols)),
		out:   make(map[string][]int),
		in:    make(map[string][]int),
	}
	for _, s := range symbols {
		if _, exists := g.Nodes[s.ID]; exists {
			return nil, wrapf(ErrDuplicateSymbol, "%s", s.ID)
		}
		g.Nodes[s.ID] = s
		g.ids = append(g.ids, s.ID)
	}
	sort.Strings(g.ids)

	for _, e := range edges {
		if _, ok := g.Nodes[e.Caller]; !ok {
			return nil, wrapf(ErrDanglingEdge, "caller %s of %s", e.Caller, e.Target())
		}
		if e.IsResolved() {
			if _, ok := g.Nodes[e.Callee]; !ok {
				return nil, wrapf(ErrDanglingEdge, "callee %s of %s", e.Callee, e.Caller)
			}
		}
	}

	g.Edges = MergeEdges(edges)
	for i, e := range g.Edges {
		g.out[e.Caller] = append(g.out[e.Caller], i)
		if e.IsResolved() {
			g.in[e.Callee] = append(g.in[e.Callee], i)
		}
	}
	for _, idx := range g.in {
		sort.SliceStable(idx, func(a, b int) bool {
			return g.Edges[idx[a]].Caller < g.Edges[idx[b]].Caller
		})
	}
	return g, nil
}

// MergeEdges deduplicates edges per (caller, target) and sorts them.
// A resolved duplicate wins over an ambiguous one.
func MergeEdges(edges []Edge) []Edge {
	byKey := make(map[string]int)
	var out []Edge
	for _, e := range edges {
		if e.Callee == "" {
			e.Resolution = Unresolved
		}
		i, ok := byKey[e.key()]
		if !ok {
			e.Lines = append([]int(nil), e.Lines...)
			byKey[e.key()] = len(out)
			out = append(out, e)
			continue
		}
		merged := &out[i]
		merged.Lines = append(merged.Lines, e.Lines...)
		if merged.Resolution == Ambiguous && e.Resolution == Resolved {
			merged.Resolution = Resolved
			merged.Resolver = e.Resolver
		}
	}
	for i := range out {
		out[i].Lines = uniqueInts(out[i].Lines)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Caller != out[j].Caller {
			return out[i].Caller < out[j].Caller
		}
		return out[i].Target() < out[j].Target()
	})
	return out
}

// Node returns the symbol with the given ID.
func (g *CallGraph) Node(id string) (*Symbol, bool) {
	s, ok := g.Nodes[id]
	return s, ok
}

// IDs returns all node IDs in sorted order.
func (g *CallGraph) IDs() []string {
	return append([]string(nil), g.ids...)
}

// Outgoing returns the edges leaving id, ordered by target.
func (g *CallGraph) Outgoing(id string) []Edge {
	return g.collect(g.out[id])
}

// Incoming returns the resolved edges pointing at id, ordered by caller.
func (g *CallGraph) Incoming(id string) []Edge {
	return g.collect(g.in[id])
}

func (g *CallGraph) collect(idx []int) []Edge {
	out := make([]Edge, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.Edges[i])
	}
	return out
}

// ResolveFocus maps a user-supplied name to a node ID: exact ID first, then a
// unique simple name, then a unique qualified suffix such as Type::method.
func (g *CallGraph) ResolveFocus(focus string) (string, error) {
	focus = strings.TrimSpace(focus)
	if _, ok := g.Nodes[focus]; ok {
		return focus, nil
	}

	var byName []string
	for _, id := range g.ids {
		if g.Nodes[id].Name == focus {
			byName = append(byName, id)
		}
	}
	if id, err := pickFocus(focus, byName); id != "" || err != nil {
		return id, err
	}

	var bySuffix []string
	for _, id := range g.ids {
		s := g.Nodes[id]
		if s.DisplayName == focus || strings.HasSuffix(id, "::"+focus) {
			bySuffix = append(bySuffix, id)
		}
	}
	if id, err := pickFocus(focus, bySuffix); id != "" || err != nil {
		return id, err
	}
	return "", wrapf(ErrFocusNotFound, "%q", focus)
}

func pickFocus(focus string, candidates []string) (string, error) {
	switch len(candidates) {
	case 0:
		return "", nil
	case 1:
		return candidates[0], nil
	}
	return "", &AmbiguousFocusError{Focus: focus, Candidates: candidates}
}

// ResolutionCounts returns the number of edges per resolution.
func (g *CallGraph) ResolutionCounts() map[Resolution]int {
	counts := make(map[Resolution]int)
	if g == nil {
		return counts
	}
	for _, e := range g.Edges {
		counts[e.Resolution]++
	}
	return counts
}

// Full returns the whole graph as a query result, nodes in ID order.
func (g *CallGraph) Full() *QueryResult {
	res := &QueryResult{Nodes: make([]*Symbol, 0, len(g.ids))}
	for _, id := range g.ids {
		res.Nodes = append(res.Nodes, g.Nodes[id])
	}
	res.Edges = append([]Edge(nil), g.Edges...)
	return res
}

func uniqueInts(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	sort.Ints(in)
	out := in[:1]
	for _, v := range in[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
