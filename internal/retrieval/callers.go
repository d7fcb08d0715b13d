package retrieval

import "rustgrapher/internal/graph"

// Callers returns the seeds and every function that reaches one of them
// through at most maxDepth call edges (negative = unbounded). Only resolved
// edges between included nodes are kept.
func Callers(g *graph.CallGraph, seeds []string, maxDepth int) *graph.QueryResult {
	seedSet := make(map[string]int)
	for _, id := range seeds {
		if _, ok := g.Nodes[id]; ok {
			seedSet[id] = 0
		}
	}
	ordered := sortedKeys(seedSet)

	depth := make(map[string]int, len(ordered))
	order := append([]string(nil), ordered...)
	queue := append([]string(nil), ordered...)
	for _, id := range ordered {
		depth[id] = 0
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if maxDepth >= 0 && depth[cur] >= maxDepth {
			continue
		}
		for _, e := range g.Incoming(cur) {
			if _, seen := depth[e.Caller]; seen {
				continue
			}
			depth[e.Caller] = depth[cur] + 1
			order = append(order, e.Caller)
			queue = append(queue, e.Caller)
		}
	}

	res := &graph.QueryResult{Nodes: make([]*graph.Symbol, 0, len(order))}
	for _, id := range order {
		res.Nodes = append(res.Nodes, g.Nodes[id])
	}
	for _, e := range g.Edges {
		if !e.IsResolved() {
			continue
		}
		_, okCaller := depth[e.Caller]
		_, okCallee := depth[e.Callee]
		if okCaller && okCallee {
			res.Edges = append(res.Edges, e)
		}
	}
	return res
}
