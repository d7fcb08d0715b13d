package resolver

import (
	"strings"

	"rustgrapher/internal/extractor"
)

// Stage is one layer of the lookup chain. A stage returns the candidates it
// found; final reports that the reference is settled even without candidates,
// which stops the chain (for example an import of an external item).
type Stage interface {
	Name() string
	Lookup(t *Table, caller *extractor.CodeUnit, site extractor.CallSite) (candidates []*extractor.CodeUnit, final bool)
}

// LocalStage finds nested functions and named closures of the caller's
// enclosing function chain.
type LocalStage struct{}

func (LocalStage) Name() string { return "local" }

func (LocalStage) Lookup(t *Table, caller *extractor.CodeUnit, site extractor.CallSite) ([]*extractor.CodeUnit, bool) {
	if site.Kind != extractor.CallDirect || len(site.Path) != 1 {
		return nil, false
	}
	name := site.Path[0]
	for scope := caller; scope != nil; scope = scope.Enclosing {
		var found []*extractor.CodeUnit
		for _, child := range t.children[scope] {
			if child.Name == name && child != caller {
				found = append(found, child)
			}
		}
		if len(found) > 0 {
			return found, true
		}
	}
	return nil, false
}

// ImportStage expands the first path segment through the `use` aliases of the
// caller's module.
type ImportStage struct{}

func (ImportStage) Name() string { return "import" }

func (ImportStage) Lookup(t *Table, caller *extractor.CodeUnit, site extractor.CallSite) ([]*extractor.CodeUnit, bool) {
	if !isPathCall(site) {
		return nil, false
	}
	head := site.Path[0]
	for _, imp := range t.importsOf(caller.Module) {
		if imp.Glob || imp.Alias != head {
			continue
		}
		for _, base := range importRoots(caller.Module, imp.Path) {
			full := append(base, site.Path[1:]...)
			if found := t.lookupPath(full); len(found) > 0 {
				return found, true
			}
		}
		// The alias shadows anything the later stages could find.
		return nil, true
	}
	return nil, false
}

// ExactStage matches the normalized path, relative to the caller's module
// first, then as an absolute path, then from the crate root.
type ExactStage struct{}

func (ExactStage) Name() string { return "exact" }

func (ExactStage) Lookup(t *Table, caller *extractor.CodeUnit, site extractor.CallSite) ([]*extractor.CodeUnit, bool) {
	if !isPathCall(site) || site.Path[0] == "Self" {
		return nil, false
	}
	switch site.Path[0] {
	case "crate", "self", "super":
		path := extractor.NormalizePath(site.Path, caller.Module)
		return t.lookupPath(path), true
	}
	relative := append(append([]string(nil), caller.Module...), site.Path...)
	if found := t.lookupPath(relative); len(found) > 0 {
		return found, true
	}
	if len(site.Path) > 1 {
		if found := t.lookupPath(site.Path); len(found) > 0 {
			return found, true
		}
		// Binary targets reach the modules declared next to them from the crate root.
		if len(caller.Module) > 1 {
			root := append([]string{caller.Module[0]}, site.Path...)
			if found := t.lookupPath(root); len(found) > 0 {
				return found, true
			}
		}
	}
	return nil, false
}

// LexicalStage looks a simple name up in the glob imports of the caller's
// module, then in the enclosing modules outward. Only free functions match.
type LexicalStage struct{}

func (LexicalStage) Name() string { return "lexical" }

func (LexicalStage) Lookup(t *Table, caller *extractor.CodeUnit, site extractor.CallSite) ([]*extractor.CodeUnit, bool) {
	if site.Kind != extractor.CallDirect || len(site.Path) != 1 {
		return nil, false
	}
	name := site.Path[0]

	var globbed []*extractor.CodeUnit
	for _, imp := range t.importsOf(caller.Module) {
		if !imp.Glob {
			continue
		}
		globbed = append(globbed, t.lookupPath(append(append([]string(nil), imp.Path...), name))...)
	}
	if len(globbed) > 0 {
		return globbed, true
	}

	for depth := len(caller.Module) - 1; depth >= 1; depth-- {
		path := append(append([]string(nil), caller.Module[:depth]...), name)
		if found := t.lookupPath(path); len(found) > 0 {
			return found, true
		}
	}
	return nil, false
}

// ReceiverStage resolves Type::method paths and method calls whose receiver
// type is known from the caller's local hints.
type ReceiverStage struct{}

func (ReceiverStage) Name() string { return "receiver" }

func (ReceiverStage) Lookup(t *Table, caller *extractor.CodeUnit, site extractor.CallSite) ([]*extractor.CodeUnit, bool) {
	var typeName, method string
	switch site.Kind {
	case extractor.CallPath:
		if len(site.Path) < 2 {
			return nil, false
		}
		typeName = site.Path[len(site.Path)-2]
		method = site.Path[len(site.Path)-1]
		if typeName == "Self" {
			typeName = caller.ImplType
		} else if !extractor.IsTypeLike(typeName) {
			return nil, false
		}
	case extractor.CallMethod:
		method = site.Method
		switch {
		case site.Receiver != "":
			typeName = caller.Locals[site.Receiver]
		case len(site.ReceiverCall) > 0:
			typeName = t.constructedType(caller, site.ReceiverCall)
		}
	default:
		return nil, false
	}
	if typeName == "" {
		return nil, false
	}
	name, modules, imported := t.importedType(caller, typeName)
	candidates := t.lookupMethod(name, method)
	if imported {
		// A type imported from outside the analyzed crates never matches a
		// local type of the same name.
		candidates = inModule(candidates, modules)
	}
	return inherentFirst(candidates), true
}

// importedType follows a `use` of typeName in the caller's module and returns
// the original type name and the modules it may be defined in, nearest first.
func (t *Table) importedType(caller *extractor.CodeUnit, typeName string) (string, []string, bool) {
	for _, imp := range t.importsOf(caller.Module) {
		if imp.Glob || imp.Alias != typeName || len(imp.Path) < 2 {
			continue
		}
		var modules []string
		for _, base := range importRoots(caller.Module, imp.Path[:len(imp.Path)-1]) {
			modules = append(modules, strings.Join(base, "::"))
		}
		return imp.Path[len(imp.Path)-1], modules, true
	}
	return typeName, nil, false
}

// inModule keeps the units of the first module in modules that defines any.
func inModule(units []*extractor.CodeUnit, modules []string) []*extractor.CodeUnit {
	for _, module := range modules {
		var found []*extractor.CodeUnit
		for _, u := range units {
			if u.ModulePath() == module {
				found = append(found, u)
			}
		}
		if len(found) > 0 {
			return found
		}
	}
	return nil
}

// constructedType returns T for a receiver built by T::ctor() when ctor is
// known to return T or Self.
func (t *Table) constructedType(caller *extractor.CodeUnit, path []string) string {
	if len(path) < 2 {
		return ""
	}
	typeName := path[len(path)-2]
	if typeName == "Self" {
		typeName = caller.ImplType
	}
	if typeName == "" || !extractor.IsTypeLike(typeName) {
		return ""
	}
	for _, ctor := range t.lookupMethod(typeName, path[len(path)-1]) {
		switch extractor.TypeName(ctor.ReturnType) {
		case "Self", typeName:
			return typeName
		}
	}
	return ""
}

// inherentFirst drops trait impl methods when an inherent method of the same
// name exists, matching Rust's method lookup order.
func inherentFirst(units []*extractor.CodeUnit) []*extractor.CodeUnit {
	var inherent []*extractor.CodeUnit
	for _, u := range units {
		if u.Kind == extractor.KindMethod {
			inherent = append(inherent, u)
		}
	}
	if len(inherent) > 0 {
		return inherent
	}
	return units
}

func isPathCall(site extractor.CallSite) bool {
	return (site.Kind == extractor.CallDirect || site.Kind == extractor.CallPath) && len(site.Path) > 0
}

// importRoots lists the absolute paths an imported path may denote: as
// written, relative to the importing module, and relative to the crate root.
// Each result is a fresh slice.
func importRoots(module, path []string) [][]string {
	var out [][]string
	seen := make(map[string]bool)
	add := func(prefix []string) {
		full := append(append([]string(nil), prefix...), path...)
		key := strings.Join(full, "::")
		if !seen[key] {
			seen[key] = true
			out = append(out, full)
		}
	}
	add(nil)
	add(module)
	if len(module) > 0 {
		add(module[:1])
	}
	return out
}
