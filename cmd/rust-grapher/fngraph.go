package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"rustgrapher/internal/crawler"
	"rustgrapher/internal/extractor"
	"rustgrapher/internal/graph"
	"rustgrapher/internal/index"
	"rustgrapher/internal/retrieval"
	"rustgrapher/internal/storage"
)

// sourceFlags select where the call graph comes from.
type sourceFlags struct {
	root          string
	workspaceOnly bool
	includeMacros bool
	db            string
}

func (f *sourceFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.root, "root", ".", "Cargo project or workspace root")
	cmd.Flags().BoolVar(&f.workspaceOnly, "workspace-only", false, "Only analyze workspace members")
	cmd.Flags().BoolVar(&f.includeMacros, "include-macros", false, "Record macro invocations as unresolved calls")
}

// snapshot returns the database to read the graph from, or "" when the graph
// must be built from sources. An explicit --root always wins over a config db.
func (f *sourceFlags) snapshot(cmd *cobra.Command) string {
	db := cfg.DB
	if cmd.Flags().Changed("db") {
		db = f.db
	}
	if cmd.Flags().Changed("root") {
		return ""
	}
	return db
}

// load builds the call graph from sources, or reads the snapshot in db.
// It returns the root the graph's file paths are relative to.
func (f *sourceFlags) load(ctx context.Context, cmd *cobra.Command) (*graph.CallGraph, string, error) {
	if db := f.snapshot(cmd); db != "" {
		store, err := openStore(db)
		if err != nil {
			return nil, "", err
		}
		defer store.Close()
		return loadSnapshot(ctx, store, db)
	}

	opts := index.Options{
		WorkspaceOnly: cfg.WorkspaceOnly || f.workspaceOnly,
		IncludeMacros: cfg.IncludeMacros || f.includeMacros,
		Workers:       cfg.Workers,
	}
	res, err := buildIndex(ctx, f.root, opts)
	if err != nil {
		return nil, "", err
	}
	return res.Graph, res.Target.Root, nil
}

func buildIndex(ctx context.Context, root string, opts index.Options) (*index.Result, error) {
	idx := index.NewIndexer(crawler.NewCrawler(), extractor.NewExtractor(), logger)
	return idx.BuildGraph(ctx, root, opts)
}

func openStore(db string) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

func loadSnapshot(ctx context.Context, store storage.GraphStore, db string) (*graph.CallGraph, string, error) {
	meta, err := store.LoadMeta(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read snapshot %s: %w", db, err)
	}
	g, err := store.LoadGraph(ctx)
	if err != nil {
		return nil, "", err
	}
	logger.InfoContext(ctx, "snapshot loaded", "db", db, "root", meta.Root, "saved_at", meta.SavedAt,
		"symbols", len(g.Nodes), "edges", len(g.Edges))
	return g, meta.Root, nil
}

var (
	fnGraphSource sourceFlags
	fnGraphRender renderFlags
	fnGraphQuery  struct {
		focus          string
		depth          int
		exclude        []string
		publicOnly     bool
		hideUnresolved bool
	}
)

var fnGraphCmd = &cobra.Command{
	Use:   "fn-graph",
	Short: "Render the function call graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		g, _, err := fnGraphSource.load(ctx, cmd)
		if err != nil {
			return err
		}

		q := retrieval.Query{
			Focus:          fnGraphQuery.focus,
			MaxDepth:       fnGraphQuery.depth,
			Exclude:        append(append([]string(nil), cfg.Exclude...), fnGraphQuery.exclude...),
			PublicOnly:     fnGraphQuery.publicOnly,
			HideUnresolved: cfg.HideUnresolved || fnGraphQuery.hideUnresolved,
		}
		res, err := retrieval.Subgraph(g, q)
		if err != nil {
			return err
		}
		return fnGraphRender.emit(cmd, "call_graph", res)
	},
}

func init() {
	fnGraphSource.bind(fnGraphCmd)
	fnGraphCmd.Flags().StringVar(&fnGraphSource.db, "db", "", "Read the call graph from a snapshot saved by scan")
	fnGraphRender.bind(fnGraphCmd)
	fnGraphCmd.Flags().BoolVar(&fnGraphRender.showSignatures, "show-signatures", false, "Label nodes with their signatures")

	fnGraphCmd.Flags().StringVar(&fnGraphQuery.focus, "focus", "", "Only show functions reachable from this function")
	fnGraphCmd.Flags().IntVar(&fnGraphQuery.depth, "depth", -1, "Maximum call depth from --focus (negative = unbounded, 0 = focus only)")
	fnGraphCmd.Flags().StringArrayVarP(&fnGraphQuery.exclude, "exclude", "e", nil, "Exclude functions matching a wildcard pattern (repeatable)")
	fnGraphCmd.Flags().BoolVar(&fnGraphQuery.publicOnly, "public-only", false, "Only include public functions")
	fnGraphCmd.Flags().BoolVar(&fnGraphQuery.hideUnresolved, "hide-unresolved", false, "Drop calls that could not be resolved")
}
