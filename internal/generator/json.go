package generator

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"rustgrapher/internal/graph"
)

const graphSchemaURL = "https://rust-grapher.local/graph.schema.json"

//go:embed graph.schema.json
var graphSchemaJSON []byte

var (
	graphSchemaOnce sync.Once
	graphSchema     *jsonschema.Schema
	graphSchemaErr  error
)

func loadGraphSchema() (*jsonschema.Schema, error) {
	graphSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(graphSchemaURL, bytes.NewReader(graphSchemaJSON)); err != nil {
			graphSchemaErr = err
			return
		}
		graphSchema, graphSchemaErr = compiler.Compile(graphSchemaURL)
	})
	return graphSchema, graphSchemaErr
}

// JSONRenderer writes the machine-readable form read back by ParseJSON.
type JSONRenderer struct {
	opts Options
}

type jsonDocument struct {
	Nodes []jsonNode `json:"nodes"`
	Edges []jsonEdge `json:"edges"`
}

type jsonNode struct {
	graph.Symbol
	Highlighted bool `json:"highlighted,omitempty"`
}

type jsonEdge struct {
	Caller     string           `json:"caller"`
	Callee     *string          `json:"callee"`
	Raw        string           `json:"raw"`
	Kind       string           `json:"kind"`
	Resolution graph.Resolution `json:"resolution"`
	Resolver   string           `json:"resolver,omitempty"`
	Lines      []int            `json:"lines"`
}

func (j *JSONRenderer) Render(res *graph.QueryResult) ([]byte, error) {
	if err := checkResult(res); err != nil {
		return nil, err
	}

	doc := jsonDocument{Nodes: make([]jsonNode, 0, len(res.Nodes)), Edges: make([]jsonEdge, 0, len(res.Edges))}
	for _, n := range res.Nodes {
		doc.Nodes = append(doc.Nodes, jsonNode{Symbol: *n, Highlighted: j.opts.highlighted(n)})
	}
	for _, e := range res.Edges {
		je := jsonEdge{
			Caller:     e.Caller,
			Raw:        e.Raw,
			Kind:       e.Kind,
			Resolution: e.Resolution,
			Resolver:   e.Resolver,
			Lines:      e.Lines,
		}
		if e.IsResolved() {
			callee := e.Callee
			je.Callee = &callee
		}
		doc.Edges = append(doc.Edges, je)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graph: %w", err)
	}
	return append(out, '\n'), nil
}

// ParseJSON reads a document written by the JSON renderer. The document is
// validated against graph.schema.json before the graph invariants are checked.
func ParseJSON(data []byte) (*graph.QueryResult, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse graph json: %w", err)
	}
	schema, err := loadGraphSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile graph schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse graph json: %w", err)
	}

	res := &graph.QueryResult{Nodes: make([]*graph.Symbol, 0, len(doc.Nodes))}
	for i := range doc.Nodes {
		s := doc.Nodes[i].Symbol
		res.Nodes = append(res.Nodes, &s)
	}
	for _, je := range doc.Edges {
		e := graph.Edge{
			Caller:     je.Caller,
			Raw:        je.Raw,
			Kind:       je.Kind,
			Resolution: je.Resolution,
			Resolver:   je.Resolver,
			Lines:      je.Lines,
		}
		if je.Callee != nil {
			e.Callee = *je.Callee
		}
		res.Edges = append(res.Edges, e)
	}
	if err := res.Check(); err != nil {
		return nil, fmt.Errorf("failed to parse graph json: %w", err)
	}
	return res, nil
}
