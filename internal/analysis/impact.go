package analysis

import (
	"context"
	"fmt"
	"sort"

	"rustgrapher/internal/git"
	"rustgrapher/internal/graph"
	"rustgrapher/internal/retrieval"
)

// ImpactReport summarizes the functions affected by changes.
type ImpactReport struct {
	Changes            []git.ChangedFile
	DirectlyAffected   []*graph.Symbol
	IndirectlyAffected []*graph.Symbol
	// Subgraph holds the affected functions and the calls between them.
	Subgraph *graph.QueryResult
}

// SymbolIndex finds the functions defined in a file. storage.SQLiteStore
// implements it for saved snapshots.
type SymbolIndex interface {
	FindSymbolsByFile(ctx context.Context, path string) ([]*graph.Symbol, error)
}

// Analyzer performs impact analysis on the call graph.
type Analyzer struct {
	g     *graph.CallGraph
	index SymbolIndex
}

// NewAnalyzer creates a new analyzer. A nil index looks files up in g.
func NewAnalyzer(g *graph.CallGraph, index SymbolIndex) *Analyzer {
	if index == nil {
		index = graphIndex{g: g}
	}
	return &Analyzer{g: g, index: index}
}

// AnalyzeImpact identifies the functions touched by changes and their
// callers up to maxDepth call levels away (negative = unbounded).
func (a *Analyzer) AnalyzeImpact(ctx context.Context, changes []git.ChangedFile, maxDepth int) (*ImpactReport, error) {
	seeds, err := a.changedSymbols(ctx, changes)
	if err != nil {
		return nil, err
	}

	report := &ImpactReport{
		Changes:            changes,
		DirectlyAffected:   []*graph.Symbol{},
		IndirectlyAffected: []*graph.Symbol{},
		Subgraph:           retrieval.Callers(a.g, seeds, maxDepth),
	}

	direct := make(map[string]bool, len(seeds))
	for _, id := range seeds {
		direct[id] = true
	}
	for _, n := range report.Subgraph.Nodes {
		if direct[n.ID] {
			report.DirectlyAffected = append(report.DirectlyAffected, n)
		} else {
			report.IndirectlyAffected = append(report.IndirectlyAffected, n)
		}
	}
	return report, nil
}

// AnalyzeWorkingTree diffs the working tree at dir against baseRef and
// analyzes the result. dir must be the root the graph paths are relative to.
func (a *Analyzer) AnalyzeWorkingTree(ctx context.Context, dir, baseRef string, maxDepth int) (*ImpactReport, error) {
	changes, err := git.GetChangedFiles(ctx, dir, baseRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get changed files: %w", err)
	}
	return a.AnalyzeImpact(ctx, changes, maxDepth)
}

// changedSymbols returns the sorted IDs of graph functions whose line range
// overlaps a change. A change without line information touches the whole file.
func (a *Analyzer) changedSymbols(ctx context.Context, changes []git.ChangedFile) ([]string, error) {
	seen := make(map[string]bool)
	for _, ch := range changes {
		syms, err := a.index.FindSymbolsByFile(ctx, ch.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to find symbols in %s: %w", ch.Path, err)
		}
		for _, s := range syms {
			if _, ok := a.g.Node(s.ID); !ok {
				continue
			}
			if lineRangeOverlaps(s.StartLine, s.EndLine, ch.ChangedLines) {
				seen[s.ID] = true
			}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func lineRangeOverlaps(start, end int, changed []int) bool {
	if len(changed) == 0 {
		return true
	}
	for _, line := range changed {
		if line >= start && line <= end {
			return true
		}
	}
	return false
}

type graphIndex struct {
	g *graph.CallGraph
}

func (i graphIndex) FindSymbolsByFile(_ context.Context, path string) ([]*graph.Symbol, error) {
	var out []*graph.Symbol
	for _, id := range i.g.IDs() {
		if s, _ := i.g.Node(id); s.Filepath == path {
			out = append(out, s)
		}
	}
	return out, nil
}
