package main

import (
	"github.com/spf13/cobra"

	"rustgrapher/internal/deps"
)

var (
	depsRender renderFlags
	depsFlags  struct {
		manifest string
		opts     deps.Options
	}
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Render the crate dependency graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := depsFlags.opts
		opts.WorkspaceOnly = opts.WorkspaceOnly || cfg.WorkspaceOnly
		opts.Exclude = append(append([]string(nil), cfg.Exclude...), opts.Exclude...)

		res, err := deps.Graph(depsFlags.manifest, opts)
		if err != nil {
			return err
		}
		logger.DebugContext(cmd.Context(), "dependency graph built", "crates", len(res.Nodes), "edges", len(res.Edges))
		return depsRender.emit(cmd, "dependencies", res)
	},
}

func init() {
	f := depsCmd.Flags()
	f.StringVarP(&depsFlags.manifest, "manifest-path", "m", "Cargo.toml", "Path to Cargo.toml")
	f.StringVarP(&depsFlags.opts.Package, "package", "p", "", "Start from this package instead of every workspace member")
	f.IntVar(&depsFlags.opts.Depth, "depth", -1, "Maximum dependency depth (negative = unbounded)")
	f.BoolVar(&depsFlags.opts.WorkspaceOnly, "workspace-only", false, "Only show workspace members")
	f.BoolVar(&depsFlags.opts.NoDev, "no-dev", false, "Exclude dev-dependencies")
	f.BoolVar(&depsFlags.opts.NoBuild, "no-build", false, "Exclude build-dependencies")
	f.BoolVar(&depsFlags.opts.NoTransitive, "no-transitive", false, "Only show direct dependencies")
	f.StringArrayVarP(&depsFlags.opts.Exclude, "exclude", "e", nil, "Exclude crates matching a wildcard pattern (repeatable)")
	f.StringArrayVarP(&depsFlags.opts.Include, "include", "i", nil, "Only include crates matching a wildcard pattern (repeatable)")
	f.StringVar(&depsFlags.opts.Focus, "focus", "", "Only show crates connected to this crate")
	f.BoolVar(&depsFlags.opts.Dedup, "dedup", false, "Show each crate once regardless of version")

	depsRender.bind(depsCmd)
	f.BoolVarP(&depsRender.showVersions, "show-versions", "v", false, "Show crate versions")
}
