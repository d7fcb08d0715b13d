package resolver

import (
	"context"
	"sort"

	"rustgrapher/internal/diag"
	"rustgrapher/internal/extractor"
	"rustgrapher/internal/graph"
)

type ResolveStats struct {
	Attempted int
	Resolved  int
	Skipped   int
}

type StageResult struct {
	Resolver         string
	Stats            ResolveStats
	UnresolvedBefore int
	UnresolvedAfter  int
}

type Options struct {
	// IncludeMacros records macro invocations as unresolved `name!` edges.
	IncludeMacros bool
}

// Result is the output of a resolution run.
type Result struct {
	Edges       []graph.Edge
	Diagnostics []diag.Diagnostic
	Stages      []StageResult
}

// ResolverChain runs call sites through its stages; the first stage that
// settles a reference wins.
type ResolverChain struct {
	stages []Stage
	opts   Options
}

func NewResolverChain(opts Options, stages ...Stage) *ResolverChain {
	return &ResolverChain{stages: stages, opts: opts}
}

func NewDefaultChain(opts Options) *ResolverChain {
	return NewResolverChain(opts, LocalStage{}, ImportStage{}, ExactStage{}, LexicalStage{}, ReceiverStage{})
}

// Resolve turns every call site of the table into an edge. Edges are merged
// per (caller, target) and sorted.
func (c *ResolverChain) Resolve(ctx context.Context, t *Table) (*Result, error) {
	res := &Result{}
	stats := make([]ResolveStats, len(c.stages))
	reported := make(map[string]bool)

	for _, caller := range t.Units() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, site := range caller.Calls {
			edge, ok := c.resolveSite(t, caller, site, stats)
			if !ok {
				continue
			}
			if edge.Resolution == graph.Ambiguous && !reported[edge.Caller+"\x00"+edge.Raw] {
				reported[edge.Caller+"\x00"+edge.Raw] = true
				res.Diagnostics = append(res.Diagnostics, diag.AmbiguousCall(caller.ID, site.Raw, site.Line, candidateIDs(t, caller, site, c.stages)))
			}
			res.Edges = append(res.Edges, edge)
		}
	}

	res.Edges = graph.MergeEdges(res.Edges)
	for i, s := range c.stages {
		st := stats[i]
		st.Skipped = st.Attempted - st.Resolved
		res.Stages = append(res.Stages, StageResult{
			Resolver:         s.Name(),
			Stats:            st,
			UnresolvedBefore: st.Attempted,
			UnresolvedAfter:  st.Skipped,
		})
	}
	return res, nil
}

func (c *ResolverChain) resolveSite(t *Table, caller *extractor.CodeUnit, site extractor.CallSite, stats []ResolveStats) (graph.Edge, bool) {
	edge := graph.Edge{
		Caller:     caller.ID,
		Raw:        site.Raw,
		Kind:       string(site.Kind),
		Resolution: graph.Unresolved,
		Lines:      []int{site.Line},
	}

	switch site.Kind {
	case extractor.CallMacro:
		return edge, c.opts.IncludeMacros
	case extractor.CallDirect, extractor.CallPath:
		// Tuple structs and enum variants share the call syntax.
		if len(site.Path) == 0 || extractor.IsTypeLike(site.Path[len(site.Path)-1]) {
			return edge, false
		}
	}

	for i, stage := range c.stages {
		stats[i].Attempted++
		candidates, final := stage.Lookup(t, caller, site)
		if len(candidates) > 0 {
			stats[i].Resolved++
			target, ambiguous := pick(caller, candidates)
			edge.Callee = target.ID
			edge.Resolver = stage.Name()
			edge.Resolution = graph.Resolved
			if ambiguous {
				edge.Resolution = graph.Ambiguous
			}
			return edge, true
		}
		if final {
			break
		}
	}
	return edge, true
}

// pick chooses the candidate in the nearest module, breaking ties by ID.
// ambiguous is set when the nearest module holds more than one candidate.
func pick(caller *extractor.CodeUnit, candidates []*extractor.CodeUnit) (*extractor.CodeUnit, bool) {
	nearest := nearestCandidates(caller, candidates)
	return nearest[0], len(nearest) > 1
}

func nearestCandidates(caller *extractor.CodeUnit, candidates []*extractor.CodeUnit) []*extractor.CodeUnit {
	sorted := append([]*extractor.CodeUnit(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	best := -1
	var nearest []*extractor.CodeUnit
	for _, cand := range sorted {
		d := moduleDistance(caller.Module, cand.Module)
		switch {
		case best < 0 || d < best:
			best = d
			nearest = []*extractor.CodeUnit{cand}
		case d == best:
			nearest = append(nearest, cand)
		}
	}
	return nearest
}

// candidateIDs repeats the winning lookup to report the tied candidates.
func candidateIDs(t *Table, caller *extractor.CodeUnit, site extractor.CallSite, stages []Stage) []string {
	for _, stage := range stages {
		candidates, final := stage.Lookup(t, caller, site)
		if len(candidates) > 0 {
			var ids []string
			for _, cand := range nearestCandidates(caller, candidates) {
				ids = append(ids, cand.ID)
			}
			return ids
		}
		if final {
			break
		}
	}
	return nil
}

// moduleDistance counts the path segments separating two modules.
func moduleDistance(a, b []string) int {
	common := 0
	for common < len(a) && common < len(b) && a[common] == b[common] {
		common++
	}
	return len(a) + len(b) - 2*common
}
