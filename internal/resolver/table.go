package resolver

import (
	"sort"
	"strings"

	"rustgrapher/internal/extractor"
)

// Table is the global symbol table. It is built once after extraction and
// only read during resolution.
type Table struct {
	units    []*extractor.CodeUnit
	byPath   map[string][]*extractor.CodeUnit // canonical path -> free functions and impl methods
	methods  map[string][]*extractor.CodeUnit // Type \x00 method -> impl methods
	children map[*extractor.CodeUnit][]*extractor.CodeUnit
	imports  map[string][]extractor.Import
}

// NewTable indexes units and the merged per-module imports.
func NewTable(units []*extractor.CodeUnit, imports map[string][]extractor.Import) *Table {
	t := &Table{
		units:    append([]*extractor.CodeUnit(nil), units...),
		byPath:   make(map[string][]*extractor.CodeUnit),
		methods:  make(map[string][]*extractor.CodeUnit),
		children: make(map[*extractor.CodeUnit][]*extractor.CodeUnit),
		imports:  imports,
	}
	sort.Slice(t.units, func(i, j int) bool { return t.units[i].ID < t.units[j].ID })

	for _, u := range t.units {
		if u.Enclosing != nil {
			t.children[u.Enclosing] = append(t.children[u.Enclosing], u)
			continue
		}
		switch u.Kind {
		case extractor.KindFunction:
			key := u.ModulePath() + "::" + u.Name
			t.byPath[key] = append(t.byPath[key], u)
		case extractor.KindMethod, extractor.KindTraitImpl:
			key := u.ModulePath() + "::" + u.ImplType + "::" + u.Name
			t.byPath[key] = append(t.byPath[key], u)
			mk := methodKey(u.ImplType, u.Name)
			t.methods[mk] = append(t.methods[mk], u)
		}
		// Trait default methods are never call targets.
	}
	return t
}

// Units returns every unit in ID order.
func (t *Table) Units() []*extractor.CodeUnit {
	return t.units
}

func (t *Table) lookupPath(path []string) []*extractor.CodeUnit {
	return t.byPath[strings.Join(path, "::")]
}

func (t *Table) lookupMethod(typeName, method string) []*extractor.CodeUnit {
	return t.methods[methodKey(typeName, method)]
}

func (t *Table) importsOf(module []string) []extractor.Import {
	return t.imports[strings.Join(module, "::")]
}

func methodKey(typeName, method string) string {
	return typeName + "\x00" + method
}
