package generator

import (
	"fmt"
	"strings"

	"rustgrapher/internal/graph"
)

// DotRenderer writes Graphviz digraphs.
type DotRenderer struct {
	opts Options
}

func (d *DotRenderer) Render(res *graph.QueryResult) ([]byte, error) {
	if err := checkResult(res); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("digraph %s {\n", d.opts.Name))
	sb.WriteString(fmt.Sprintf("    rankdir=%s;\n", d.opts.Direction))
	sb.WriteString("    node [shape=box, style=rounded];\n")
	switch d.opts.Theme {
	case "dark":
		sb.WriteString("    bgcolor=\"#1e1e1e\";\n")
		sb.WriteString("    node [fontcolor=white, color=white];\n")
		sb.WriteString("    edge [color=white];\n")
	case "light":
		sb.WriteString("    bgcolor=white;\n")
	}

	for _, n := range res.Nodes {
		attrs := []string{"label=" + dotQuote(d.opts.label(n))}
		if d.opts.highlighted(n) {
			attrs = append(attrs, `fillcolor="#ff99ff"`, `style="filled,rounded"`)
		}
		if n.IsPublic {
			attrs = append(attrs, "penwidth=2")
		}
		if n.IsAsync {
			attrs = append(attrs, "color=blue")
		}
		sb.WriteString(fmt.Sprintf("    %s [%s];\n", dotQuote(n.ID), strings.Join(attrs, ", ")))
	}
	for _, raw := range unresolvedTargets(res.Edges) {
		sb.WriteString(fmt.Sprintf("    %s [label=%s, shape=plaintext, style=dashed];\n", dotQuote("?"+raw), dotQuote(raw)))
	}

	for _, e := range res.Edges {
		sb.WriteString(fmt.Sprintf("    %s -> %s%s;\n", dotQuote(e.Caller), dotQuote(e.Target()), dotEdgeStyle(e)))
	}
	sb.WriteString("}\n")
	return []byte(sb.String()), nil
}

func dotEdgeStyle(e graph.Edge) string {
	switch {
	case !e.IsResolved():
		return " [style=dotted, color=gray]"
	case e.Resolution == graph.Ambiguous:
		return " [color=orange]"
	}
	switch e.Kind {
	case "method":
		return " [style=dashed]"
	case "dev":
		return " [style=dashed, color=blue]"
	case "build":
		return " [style=bold, color=green]"
	}
	return ""
}

func dotQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
