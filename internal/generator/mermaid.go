package generator

import (
	"fmt"
	"regexp"
	"strings"

	"rustgrapher/internal/graph"
)

// MermaidRenderer writes flowchart diagrams.
type MermaidRenderer struct {
	opts Options
}

func (m *MermaidRenderer) Render(res *graph.QueryResult) ([]byte, error) {
	if err := checkResult(res); err != nil {
		return nil, err
	}

	ids := newMermaidIDs()
	var sb strings.Builder
	if !m.opts.NoFence {
		sb.WriteString("```mermaid\n")
	}
	switch m.opts.Theme {
	case "dark":
		sb.WriteString("%%{init: {'theme': 'dark'}}%%\n")
	case "light":
		sb.WriteString("%%{init: {'theme': 'default'}}%%\n")
	}
	sb.WriteString(fmt.Sprintf("flowchart %s\n", m.opts.Direction))

	for _, n := range res.Nodes {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", ids.assign(n.ID, n.ID), mermaidLabel(m.opts.label(n))))
	}
	unresolved := unresolvedTargets(res.Edges)
	for _, raw := range unresolved {
		sb.WriteString(fmt.Sprintf("    %s([\"%s\"]):::unresolved\n", ids.assign("?"+raw, "ext_"+raw), mermaidLabel(raw)))
	}

	for _, e := range res.Edges {
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", ids.get(e.Caller), mermaidArrow(e), ids.get(e.Target())))
	}

	if len(unresolved) > 0 {
		sb.WriteString("    classDef unresolved stroke-dasharray: 5 5,fill:#f5f5f5,color:#777\n")
	}
	for _, n := range res.Nodes {
		if m.opts.highlighted(n) {
			sb.WriteString(fmt.Sprintf("    style %s fill:#f9f,stroke:#333,stroke-width:4px\n", ids.get(n.ID)))
		}
	}
	if !m.opts.NoFence {
		sb.WriteString("```\n")
	}
	return []byte(sb.String()), nil
}

func mermaidArrow(e graph.Edge) string {
	if !e.IsResolved() {
		return "-.->"
	}
	switch e.Kind {
	case "dev":
		return "-.->"
	case "build":
		return "==>"
	}
	return "-->"
}

// mermaidIDs maps graph keys to unique Mermaid node IDs in assignment order.
type mermaidIDs struct {
	byKey map[string]string
	taken map[string]bool
}

func newMermaidIDs() *mermaidIDs {
	return &mermaidIDs{byKey: make(map[string]string), taken: make(map[string]bool)}
}

func (m *mermaidIDs) assign(key, base string) string {
	if id, ok := m.byKey[key]; ok {
		return id
	}
	id := sanitizeMermaidID(base)
	for i := 2; m.taken[id]; i++ {
		id = fmt.Sprintf("%s_%d", sanitizeMermaidID(base), i)
	}
	m.byKey[key] = id
	m.taken[id] = true
	return id
}

func (m *mermaidIDs) get(key string) string {
	return m.byKey[key]
}

var mermaidIDRe = regexp.MustCompile(`[^A-Za-z0-9_]`)

func sanitizeMermaidID(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "node"
	}
	v = mermaidIDRe.ReplaceAllString(v, "_")
	if v[0] >= '0' && v[0] <= '9' {
		v = "n_" + v
	}
	// "end" closes a subgraph.
	if strings.EqualFold(v, "end") {
		v += "_"
	}
	return v
}

var mermaidEntities = strings.NewReplacer(
	`"`, "#quot;",
	"<", "#lt;",
	">", "#gt;",
)

func mermaidLabel(s string) string {
	return mermaidEntities.Replace(s)
}
