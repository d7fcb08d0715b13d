package graph

// Resolution tells how confidently an edge's callee was determined.
type Resolution string

const (
	Resolved   Resolution = "resolved"
	Ambiguous  Resolution = "ambiguous" // several candidates, nearest one picked
	Unresolved Resolution = "unresolved"
)

// KindCrate marks symbols of the crate dependency graph.
const KindCrate = "crate"

// Symbol is the graph-domain node payload.
// It is intentionally decoupled from extractor.CodeUnit.
type Symbol struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Module      string `json:"module,omitempty"`
	Crate       string `json:"crate,omitempty"`
	ImplType    string `json:"impl_type,omitempty"`
	Trait       string `json:"trait,omitempty"`
	Kind        string `json:"kind"`
	Filepath    string `json:"filepath,omitempty"`
	StartLine   int    `json:"start_line,omitempty"`
	EndLine     int    `json:"end_line,omitempty"`
	Signature   string `json:"signature,omitempty"`
	Version     string `json:"version,omitempty"`
	IsPublic    bool   `json:"is_public"`
	IsAsync     bool   `json:"is_async"`
}

// Edge is a directed call from Caller to Callee. An empty Callee is the
// unresolved sentinel; Raw then carries the callee text as written.
type Edge struct {
	Caller     string     `json:"caller"`
	Callee     string     `json:"callee,omitempty"`
	Raw        string     `json:"raw"`
	Kind       string     `json:"kind"`
	Resolution Resolution `json:"resolution"`
	Resolver   string     `json:"resolver,omitempty"`
	Lines      []int      `json:"lines,omitempty"`
}

// IsResolved reports whether the edge points at a node.
func (e Edge) IsResolved() bool {
	return e.Callee != ""
}

// Target is the callee ID, or "?raw" for unresolved edges.
func (e Edge) Target() string {
	if e.Callee != "" {
		return e.Callee
	}
	return "?" + e.Raw
}

func (e Edge) key() string {
	return e.Caller + "\x00" + e.Target()
}

// QueryResult is an ordered subgraph handed to a renderer.
type QueryResult struct {
	Nodes []*Symbol
	Edges []Edge
}

// Check verifies that every edge's caller and resolved callee are included nodes.
func (r *QueryResult) Check() error {
	ids := make(map[string]bool, len(r.Nodes))
	for _, n := range r.Nodes {
		if ids[n.ID] {
			return wrapf(ErrDuplicateSymbol, "%s", n.ID)
		}
		ids[n.ID] = true
	}
	for _, e := range r.Edges {
		if !ids[e.Caller] {
			return wrapf(ErrDanglingEdge, "caller %s", e.Caller)
		}
		if e.IsResolved() && !ids[e.Callee] {
			return wrapf(ErrDanglingEdge, "callee %s", e.Callee)
		}
	}
	return nil
}
