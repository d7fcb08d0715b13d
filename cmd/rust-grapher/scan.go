package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rustgrapher/internal/diag"
	"rustgrapher/internal/index"
	"rustgrapher/internal/storage"
)

var scanFlags struct {
	root          string
	workspaceOnly bool
	includeMacros bool
	db            string
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Build the call graph and save it to a SQLite snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db := cfg.DB
		if cmd.Flags().Changed("db") || db == "" {
			db = scanFlags.db
		}

		res, err := buildIndex(ctx, scanFlags.root, index.Options{
			WorkspaceOnly: cfg.WorkspaceOnly || scanFlags.workspaceOnly,
			IncludeMacros: cfg.IncludeMacros || scanFlags.includeMacros,
			Workers:       cfg.Workers,
		})
		if err != nil {
			return err
		}

		store, err := storage.NewSQLiteStore(db)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		if err := store.SaveGraph(ctx, res.Graph, storage.Meta{Root: res.Target.Root}); err != nil {
			return fmt.Errorf("failed to save graph: %w", err)
		}

		counts := diag.Count(res.Diagnostics)
		logger.InfoContext(ctx, "scan complete", "db", db, "symbols", len(res.Graph.Nodes), "edges", len(res.Graph.Edges),
			"skipped_files", counts[diag.KindFileSkipped], "ambiguous_calls", counts[diag.KindAmbiguousCall])
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanFlags.root, "root", ".", "Cargo project or workspace root")
	scanCmd.Flags().BoolVar(&scanFlags.workspaceOnly, "workspace-only", false, "Only analyze workspace members")
	scanCmd.Flags().BoolVar(&scanFlags.includeMacros, "include-macros", false, "Record macro invocations as unresolved calls")
	scanCmd.Flags().StringVar(&scanFlags.db, "db", "rust-grapher.db", "Path to the SQLite snapshot")
}
