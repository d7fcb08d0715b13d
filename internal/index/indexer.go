package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"rustgrapher/internal/crawler"
	"rustgrapher/internal/diag"
	"rustgrapher/internal/extractor"
	"rustgrapher/internal/graph"
	"rustgrapher/internal/resolver"
)

var ErrNoSources = errors.New("no analyzable source files")

type Options struct {
	WorkspaceOnly bool
	IncludeMacros bool
	// Workers bounds parallel extraction; zero means runtime.NumCPU().
	Workers int
}

// Result is the output of one indexing run.
type Result struct {
	Target      *crawler.Target
	Graph       *graph.CallGraph
	Diagnostics []diag.Diagnostic
	Stages      []resolver.StageResult
}

// Indexer orchestrates collection, extraction, resolution and graph assembly.
type Indexer struct {
	crawler   *crawler.Crawler
	extractor *extractor.Extractor
	logger    *slog.Logger
}

// NewIndexer creates a new indexer.
func NewIndexer(c *crawler.Crawler, e *extractor.Extractor, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{crawler: c, extractor: e, logger: logger}
}

// BuildGraph scans the Cargo project at root and constructs its call graph.
func (i *Indexer) BuildGraph(ctx context.Context, root string, opts Options) (*Result, error) {
	start := time.Now()
	target, err := i.crawler.Collect(ctx, root, crawler.Options{WorkspaceOnly: opts.WorkspaceOnly})
	if err != nil {
		return nil, err
	}
	for _, w := range target.Warnings {
		i.logger.WarnContext(ctx, w)
	}
	i.logger.InfoContext(ctx, "sources collected", "stage", "collect", "files", len(target.Files),
		"crates", len(target.Crates), "elapsed", time.Since(start))
	if len(target.Files) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoSources, target.Root)
	}

	res := &Result{Target: target}
	start = time.Now()
	results, skipped, err := i.extractAll(ctx, target.Files, opts.Workers)
	if err != nil {
		return nil, err
	}
	res.Diagnostics = append(res.Diagnostics, skipped...)
	if len(skipped) == len(target.Files) {
		diag.Log(ctx, i.logger, skipped)
		return nil, fmt.Errorf("%w: all %d files were skipped", ErrNoSources, len(skipped))
	}

	units, imports := merge(results)
	extractor.Disambiguate(units)
	i.logger.InfoContext(ctx, "symbols extracted", "stage", "extract", "files", len(target.Files)-len(skipped),
		"symbols", len(units), "elapsed", time.Since(start))

	start = time.Now()
	table := resolver.NewTable(units, imports)
	resolved, err := resolver.NewDefaultChain(resolver.Options{IncludeMacros: opts.IncludeMacros}).Resolve(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve calls: %w", err)
	}
	res.Diagnostics = append(res.Diagnostics, resolved.Diagnostics...)
	res.Stages = resolved.Stages
	for _, st := range resolved.Stages {
		i.logger.DebugContext(ctx, "resolver stage", "resolver", st.Resolver, "attempted", st.Stats.Attempted,
			"resolved", st.Stats.Resolved)
	}

	g, err := graph.Build(graph.FromCodeUnits(table.Units()), resolved.Edges)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	res.Graph = g
	counts := g.ResolutionCounts()
	i.logger.InfoContext(ctx, "calls resolved", "stage", "resolve", "symbols", len(g.Nodes), "edges", len(g.Edges),
		"unresolved", counts[graph.Unresolved], "ambiguous", counts[graph.Ambiguous], "elapsed", time.Since(start))

	diag.Sort(res.Diagnostics)
	diag.Log(ctx, i.logger, res.Diagnostics)
	return res, nil
}

// extractAll parses files in parallel. Each worker owns one result slot, so
// the merge order only depends on the file order.
func (i *Indexer) extractAll(ctx context.Context, files []crawler.SourceFile, workers int) ([]*extractor.FileResult, []diag.Diagnostic, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]*extractor.FileResult, len(files))
	failures := make([]error, len(files))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for idx, f := range files {
		idx, f := idx, f
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			src := extractor.Source{Path: f.RelPath, Crate: f.Crate, Module: f.Module}
			fr, err := i.extractor.ExtractFile(egCtx, f.Path, src)
			if err != nil {
				if ctxErr := egCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures[idx] = err
				return nil
			}
			results[idx] = fr
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	var skipped []diag.Diagnostic
	for idx, err := range failures {
		if err != nil {
			skipped = append(skipped, diag.FileSkipped(files[idx].RelPath, err.Error()))
		}
	}
	return results, skipped, nil
}

func merge(results []*extractor.FileResult) ([]*extractor.CodeUnit, map[string][]extractor.Import) {
	var units []*extractor.CodeUnit
	imports := make(map[string][]extractor.Import)
	for _, fr := range results {
		if fr == nil {
			continue
		}
		units = append(units, fr.Units...)
		for _, mod := range sortedKeys(fr.Imports) {
			imports[mod] = append(imports[mod], fr.Imports[mod]...)
		}
	}
	return units, imports
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
