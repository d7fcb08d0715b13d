package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// ErrSyntax is returned for files whose parse tree contains errors.
var ErrSyntax = errors.New("syntax error")

// Source describes where a file sits inside the analyzed crates.
type Source struct {
	Path   string   // display path, relative to the analysis root
	Crate  string   // crate identifier
	Module []string // module path inside the crate, without the crate name
}

// Extractor parses Rust files into function units.
// It is safe for concurrent use; every call gets its own parser.
type Extractor struct {
	lang *sitter.Language
}

// NewExtractor creates a new extractor for Rust sources.
func NewExtractor() *Extractor {
	return &Extractor{lang: rust.GetLanguage()}
}

// ExtractFile reads and parses a single source file.
func (e *Extractor) ExtractFile(ctx context.Context, path string, src Source) (*FileResult, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return e.ExtractSource(ctx, code, src)
}

// ExtractSource parses code and returns its units in document order.
func (e *Extractor) ExtractSource(ctx context.Context, code []byte, src Source) (*FileResult, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(e.lang)

	tree, err := parser.ParseCtx(ctx, nil, code)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", src.Path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line := 0
		if bad := firstError(root); bad != nil {
			line = int(bad.StartPoint().Row + 1)
		}
		return nil, fmt.Errorf("%w at line %d", ErrSyntax, line)
	}

	module := append([]string{src.Crate}, src.Module...)
	w := &walker{
		code: code,
		src:  src,
		result: &FileResult{
			Path:    src.Path,
			Imports: make(map[string][]Import),
		},
	}
	w.items(root, module)
	return w.result, nil
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if bad := firstError(child); bad != nil {
			return bad
		}
	}
	return nil
}
