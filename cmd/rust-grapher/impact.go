package main

import (
	"github.com/spf13/cobra"

	"rustgrapher/internal/analysis"
	"rustgrapher/internal/graph"
)

var (
	impactSource sourceFlags
	impactRender renderFlags
	impactFlags  struct {
		base  string
		depth int
	}
)

var impactCmd = &cobra.Command{
	Use:   "impact",
	Short: "Render the functions touched by uncommitted changes and their callers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var (
			g       *graph.CallGraph
			root    string
			symbols analysis.SymbolIndex
			err     error
		)
		if db := impactSource.snapshot(cmd); db != "" {
			// Changed files are looked up in the snapshot itself.
			store, openErr := openStore(db)
			if openErr != nil {
				return openErr
			}
			defer store.Close()
			if g, root, err = loadSnapshot(ctx, store, db); err != nil {
				return err
			}
			symbols = store
		} else if g, root, err = impactSource.load(ctx, cmd); err != nil {
			return err
		}

		report, err := analysis.NewAnalyzer(g, symbols).AnalyzeWorkingTree(ctx, root, impactFlags.base, impactFlags.depth)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "impact analyzed", "changed_files", len(report.Changes),
			"direct", len(report.DirectlyAffected), "indirect", len(report.IndirectlyAffected))

		for _, s := range report.DirectlyAffected {
			impactRender.highlight = append(impactRender.highlight, s.ID)
		}
		return impactRender.emit(cmd, "impact", report.Subgraph)
	},
}

func init() {
	impactSource.bind(impactCmd)
	impactCmd.Flags().StringVar(&impactSource.db, "db", "", "Read the call graph from a snapshot saved by scan")
	impactRender.bind(impactCmd)
	impactCmd.Flags().BoolVar(&impactRender.showSignatures, "show-signatures", false, "Label nodes with their signatures")

	impactCmd.Flags().StringVar(&impactFlags.base, "base", "HEAD", "Git ref to diff the working tree against")
	impactCmd.Flags().IntVar(&impactFlags.depth, "depth", -1, "Maximum caller depth (negative = unbounded)")
}
