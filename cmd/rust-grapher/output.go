package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rustgrapher/internal/generator"
	"rustgrapher/internal/graph"
)

// renderFlags are shared by every command that prints a graph.
type renderFlags struct {
	format         string
	output         string
	direction      string
	noFence        bool
	theme          string
	highlight      []string
	showSignatures bool
	showVersions   bool
}

func (f *renderFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "mermaid", "Output format: dot, mermaid or json")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file (stdout if empty)")
	cmd.Flags().StringVar(&f.direction, "direction", "LR", "Graph direction: LR or TB")
	cmd.Flags().BoolVar(&f.noFence, "no-fence", false, "Omit the ```mermaid code fence")
	cmd.Flags().StringVar(&f.theme, "theme", "default", "Color theme: default, light or dark")
	cmd.Flags().StringArrayVarP(&f.highlight, "highlight", "H", nil, "Highlight a node by name (repeatable)")
}

// renderer builds the renderer; flags set on the command line win over config.
func (f *renderFlags) renderer(cmd *cobra.Command, name string) (generator.Renderer, error) {
	changed := cmd.Flags().Changed
	format := cfg.Format
	if changed("format") {
		format = f.format
	}
	opts := generator.Options{
		Direction:      cfg.Direction,
		NoFence:        cfg.NoFence || f.noFence,
		Theme:          cfg.Theme,
		Highlight:      append(append([]string(nil), cfg.Highlight...), f.highlight...),
		ShowSignatures: f.showSignatures,
		ShowVersions:   f.showVersions,
		Name:           name,
	}
	if changed("direction") {
		opts.Direction = f.direction
	}
	if changed("no-fence") {
		opts.NoFence = f.noFence
	}
	if changed("theme") {
		opts.Theme = f.theme
	}
	return generator.New(format, opts)
}

// emit renders res and writes it to the output file or stdout. The file is
// only replaced once rendering succeeded.
func (f *renderFlags) emit(cmd *cobra.Command, name string, res *graph.QueryResult) error {
	r, err := f.renderer(cmd, name)
	if err != nil {
		return err
	}
	out, err := r.Render(res)
	if err != nil {
		return err
	}

	if f.output == "" {
		_, err := cmd.OutOrStdout().Write(out)
		return err
	}
	if err := writeFileAtomic(f.output, out); err != nil {
		return err
	}
	logger.InfoContext(cmd.Context(), "graph written", "path", f.output, "nodes", len(res.Nodes), "edges", len(res.Edges))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
