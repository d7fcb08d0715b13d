package generator

import (
	"errors"
	"fmt"
	"strings"

	"rustgrapher/internal/graph"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrInvalidOption = errors.New("invalid render option")

	// ErrInvalidDocument is returned by ParseJSON for documents that do not
	// match the graph schema.
	ErrInvalidDocument = errors.New("invalid graph document")
)

const (
	FormatDot     = "dot"
	FormatMermaid = "mermaid"
	FormatJSON    = "json"
)

// Options control presentation only; they never change which nodes or edges
// are rendered.
type Options struct {
	Direction      string // LR, TB, RL or BT
	NoFence        bool   // mermaid only
	Theme          string // default, light or dark
	Highlight      []string
	ShowSignatures bool
	ShowVersions   bool
	// Name is the Dot graph name.
	Name string
}

// Renderer turns a query result into a document.
type Renderer interface {
	Render(res *graph.QueryResult) ([]byte, error)
}

// New returns the renderer for format.
func New(format string, opts Options) (Renderer, error) {
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(format) {
	case FormatDot:
		return &DotRenderer{opts: opts}, nil
	case FormatMermaid, "":
		return &MermaidRenderer{opts: opts}, nil
	case FormatJSON:
		return &JSONRenderer{opts: opts}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func (o Options) normalize() (Options, error) {
	o.Direction = strings.ToUpper(strings.TrimSpace(o.Direction))
	switch o.Direction {
	case "":
		o.Direction = "LR"
	case "LR", "TB", "RL", "BT":
	default:
		return o, fmt.Errorf("%w: direction %q", ErrInvalidOption, o.Direction)
	}

	o.Theme = strings.ToLower(strings.TrimSpace(o.Theme))
	switch o.Theme {
	case "":
		o.Theme = "default"
	case "default", "light", "dark":
	default:
		return o, fmt.Errorf("%w: theme %q", ErrInvalidOption, o.Theme)
	}

	if o.Name == "" {
		o.Name = "call_graph"
	}
	return o, nil
}

// label is the text shown for a node.
func (o Options) label(s *graph.Symbol) string {
	text := s.DisplayName
	if text == "" {
		text = s.Name
	}
	if o.ShowSignatures && s.Signature != "" {
		text = s.Signature
	}
	if o.ShowVersions && s.Version != "" {
		text += " v" + s.Version
	}
	return text
}

func (o Options) highlighted(s *graph.Symbol) bool {
	for _, h := range o.Highlight {
		if h == s.Name || h == s.DisplayName || h == s.ID {
			return true
		}
	}
	return false
}

// unresolvedTargets lists the distinct "?raw" targets in edge order.
func unresolvedTargets(edges []graph.Edge) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range edges {
		if e.IsResolved() || seen[e.Raw] {
			continue
		}
		seen[e.Raw] = true
		out = append(out, e.Raw)
	}
	return out
}

func checkResult(res *graph.QueryResult) error {
	if res == nil {
		return fmt.Errorf("%w: nil result", ErrInvalidOption)
	}
	if err := res.Check(); err != nil {
		return fmt.Errorf("failed to render graph: %w", err)
	}
	return nil
}
