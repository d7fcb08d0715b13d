package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

type walker struct {
	code   []byte
	src    Source
	result *FileResult
}

// implScope is the impl or trait block a function is declared in.
type implScope struct {
	typeName string
	trait    string
	traitDef bool // default method inside the trait itself
	public   bool
}

func (w *walker) text(n *sitter.Node) string {
	return n.Content(w.code)
}

func (w *walker) items(parent *sitter.Node, module []string) {
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		w.item(parent.NamedChild(i), module, nil)
	}
}

func (w *walker) item(n *sitter.Node, module []string, enclosing *CodeUnit) {
	switch n.Type() {
	case "function_item":
		w.function(n, module, nil, enclosing)
	case "impl_item":
		w.impl(n, module)
	case "trait_item":
		w.trait(n, module)
	case "use_declaration":
		w.use(n, module)
	case "mod_item":
		name := n.ChildByFieldName("name")
		body := n.ChildByFieldName("body")
		// `mod foo;` lives in its own file.
		if name == nil || body == nil || enclosing != nil {
			return
		}
		w.items(body, appendSegment(module, w.text(name)))
	}
}

func (w *walker) impl(n *sitter.Node, module []string) {
	typeNode := n.ChildByFieldName("type")
	body := n.ChildByFieldName("body")
	if typeNode == nil || body == nil {
		return
	}
	sc := &implScope{typeName: TypeName(w.text(typeNode))}
	if trait := n.ChildByFieldName("trait"); trait != nil {
		sc.trait = TypeName(w.text(trait))
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		if child := body.NamedChild(i); child.Type() == "function_item" {
			w.function(child, module, sc, nil)
		}
	}
}

func (w *walker) trait(n *sitter.Node, module []string) {
	name := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if name == nil || body == nil {
		return
	}
	sc := &implScope{
		trait:    w.text(name),
		traitDef: true,
		public:   childOfType(n, "visibility_modifier") != nil,
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		// Signature-only items have no body and produce no unit.
		if child := body.NamedChild(i); child.Type() == "function_item" {
			w.function(child, module, sc, nil)
		}
	}
}

func (w *walker) function(n *sitter.Node, module []string, sc *implScope, enclosing *CodeUnit) *CodeUnit {
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return nil
	}
	name := w.text(nameNode)
	prefix := strings.Join(module, "::")

	unit := &CodeUnit{
		Name:      name,
		Crate:     w.src.Crate,
		Module:    module,
		Kind:      KindFunction,
		Filepath:  w.src.Path,
		StartLine: int(n.StartPoint().Row + 1),
		EndLine:   int(n.EndPoint().Row + 1),
		Signature: canonicalize(string(w.code[n.StartByte():body.StartByte()])),
		IsPublic:  childOfType(n, "visibility_modifier") != nil,
		Locals:    make(map[string]string),
	}
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		unit.ReturnType = canonicalize(w.text(rt))
	}
	if mods := childOfType(n, "function_modifiers"); mods != nil {
		unit.IsAsync = strings.Contains(w.text(mods), "async")
	}

	switch {
	case enclosing != nil:
		unit.Enclosing = enclosing
		unit.ID = enclosing.ID + "::" + name
		unit.DisplayName = enclosing.DisplayName + "::" + name
	case sc == nil:
		unit.ID = prefix + "::" + name
		unit.DisplayName = name
	case sc.traitDef:
		unit.Kind = KindTraitDefault
		unit.Trait = sc.trait
		unit.IsPublic = sc.public
		unit.DisplayName = sc.trait + "::" + name
		unit.ID = prefix + "::" + unit.DisplayName
	case sc.trait != "":
		unit.Kind = KindTraitImpl
		unit.ImplType = sc.typeName
		unit.Trait = sc.trait
		unit.DisplayName = "<" + sc.typeName + " as " + sc.trait + ">::" + name
		unit.ID = prefix + "::" + unit.DisplayName
	default:
		unit.Kind = KindMethod
		unit.ImplType = sc.typeName
		unit.DisplayName = sc.typeName + "::" + name
		unit.ID = prefix + "::" + unit.DisplayName
	}

	w.params(n.ChildByFieldName("parameters"), unit, sc)
	w.result.Units = append(w.result.Units, unit)
	w.walk(body, unit, module)
	return unit
}

func (w *walker) params(params *sitter.Node, unit *CodeUnit, sc *implScope) {
	if params == nil {
		return
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "self_parameter":
			if sc != nil && !sc.traitDef {
				unit.Locals["self"] = sc.typeName
			}
		case "parameter":
			pattern := p.ChildByFieldName("pattern")
			typ := p.ChildByFieldName("type")
			if pattern != nil && typ != nil && pattern.Type() == "identifier" {
				unit.Locals[w.text(pattern)] = TypeName(w.text(typ))
			}
		}
	}
}

// walk records the calls of n into unit. Nested functions and named closures
// become units of their own and keep their calls.
func (w *walker) walk(n *sitter.Node, unit *CodeUnit, module []string) {
	switch n.Type() {
	case "function_item":
		w.function(n, module, nil, unit)
		return
	case "impl_item", "trait_item", "use_declaration", "mod_item":
		w.item(n, module, unit)
		return
	case "macro_definition":
		return
	case "let_declaration":
		if w.let(n, unit, module) {
			return
		}
	case "call_expression":
		w.call(n, unit)
	case "macro_invocation":
		// Token trees are not parsed into expressions.
		w.macro(n, unit)
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i), unit, module)
	}
}

// let records a receiver type hint for the binding and reports whether the
// declaration was consumed as a named closure.
func (w *walker) let(n *sitter.Node, unit *CodeUnit, module []string) bool {
	pattern := n.ChildByFieldName("pattern")
	value := n.ChildByFieldName("value")
	if pattern == nil || pattern.Type() != "identifier" {
		return false
	}
	name := w.text(pattern)

	if typ := n.ChildByFieldName("type"); typ != nil {
		unit.Locals[name] = TypeName(w.text(typ))
	} else if value != nil {
		if t := w.valueType(value, unit); t != "" {
			unit.Locals[name] = t
		} else {
			delete(unit.Locals, name)
		}
	}

	if value != nil && value.Type() == "closure_expression" && n.ChildByFieldName("alternative") == nil {
		w.closure(name, value, unit, module)
		return true
	}
	return false
}

// valueType infers the type of `T { .. }` and `T::ctor(..)` expressions.
func (w *walker) valueType(n *sitter.Node, unit *CodeUnit) string {
	switch n.Type() {
	case "struct_expression":
		if name := n.ChildByFieldName("name"); name != nil {
			return w.selfType(TypeName(w.text(name)), unit)
		}
	case "call_expression":
		fn := n.ChildByFieldName("function")
		if fn == nil || fn.Type() != "scoped_identifier" {
			return ""
		}
		path := SplitPath(w.text(fn))
		if len(path) >= 2 && IsTypeLike(path[len(path)-2]) && !IsTypeLike(path[len(path)-1]) {
			return w.selfType(path[len(path)-2], unit)
		}
	case "try_expression", "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			return w.valueType(n.NamedChild(0), unit)
		}
	case "reference_expression":
		if v := n.ChildByFieldName("value"); v != nil {
			return w.valueType(v, unit)
		}
	}
	return ""
}

func (w *walker) selfType(name string, unit *CodeUnit) string {
	if name == "Self" {
		return unit.ImplType
	}
	return name
}

func (w *walker) closure(name string, n *sitter.Node, parent *CodeUnit, module []string) {
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	unit := &CodeUnit{
		ID:          parent.ID + "::{closure:" + name + "}",
		Name:        name,
		DisplayName: parent.DisplayName + "::" + name,
		Crate:       parent.Crate,
		Module:      module,
		ImplType:    parent.ImplType,
		Kind:        KindClosure,
		Filepath:    w.src.Path,
		StartLine:   int(n.StartPoint().Row + 1),
		EndLine:     int(n.EndPoint().Row + 1),
		Signature:   canonicalize(string(w.code[n.StartByte():body.StartByte()])),
		IsAsync:     strings.HasPrefix(w.text(n), "async"),
		Enclosing:   parent,
		Locals:      make(map[string]string, len(parent.Locals)),
	}
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		unit.ReturnType = canonicalize(w.text(rt))
	}
	// Captured bindings keep their hints.
	for k, v := range parent.Locals {
		unit.Locals[k] = v
	}
	w.result.Units = append(w.result.Units, unit)
	w.walk(body, unit, module)
}

func (w *walker) call(n *sitter.Node, unit *CodeUnit) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	site, ok := w.callSite(fn)
	if !ok {
		return
	}
	site.Line = int(n.StartPoint().Row + 1)
	unit.Calls = append(unit.Calls, site)
}

func (w *walker) callSite(fn *sitter.Node) (CallSite, bool) {
	switch fn.Type() {
	case "identifier":
		name := w.text(fn)
		return CallSite{Kind: CallDirect, Path: []string{name}, Raw: name}, true
	case "scoped_identifier":
		path := SplitPath(w.text(fn))
		if len(path) == 0 {
			return CallSite{}, false
		}
		kind := CallPath
		if len(path) == 1 {
			kind = CallDirect
		}
		return CallSite{Kind: kind, Path: path, Raw: strings.Join(path, "::")}, true
	case "generic_function":
		if inner := fn.ChildByFieldName("function"); inner != nil {
			return w.callSite(inner)
		}
	case "field_expression":
		field := fn.ChildByFieldName("field")
		value := fn.ChildByFieldName("value")
		if field == nil || value == nil || field.Type() != "field_identifier" {
			return CallSite{}, false
		}
		site := CallSite{Kind: CallMethod, Method: w.text(field), Raw: "." + w.text(field)}
		switch value.Type() {
		case "identifier", "self":
			site.Receiver = w.text(value)
			site.Raw = site.Receiver + site.Raw
		case "call_expression":
			if inner := value.ChildByFieldName("function"); inner != nil {
				if rc, ok := w.callSite(inner); ok && rc.Kind != CallMethod {
					site.ReceiverCall = rc.Path
				}
			}
		}
		return site, true
	}
	return CallSite{}, false
}

func (w *walker) macro(n *sitter.Node, unit *CodeUnit) {
	m := n.ChildByFieldName("macro")
	if m == nil {
		return
	}
	path := SplitPath(w.text(m))
	if len(path) == 0 {
		return
	}
	unit.Calls = append(unit.Calls, CallSite{
		Kind: CallMacro,
		Path: path,
		Raw:  strings.Join(path, "::") + "!",
		Line: int(n.StartPoint().Row + 1),
	})
}

func (w *walker) use(n *sitter.Node, module []string) {
	arg := n.ChildByFieldName("argument")
	if arg == nil {
		return
	}
	var imports []Import
	w.useTree(arg, nil, &imports)
	key := strings.Join(module, "::")
	for _, imp := range imports {
		imp.Path = NormalizePath(imp.Path, module)
		if len(imp.Path) == 0 {
			continue
		}
		w.result.Imports[key] = append(w.result.Imports[key], imp)
	}
}

func (w *walker) useTree(n *sitter.Node, prefix []string, out *[]Import) {
	switch n.Type() {
	case "identifier", "scoped_identifier", "self", "crate", "super":
		path := append(append([]string(nil), prefix...), SplitPath(w.text(n))...)
		// use a::b::{self} imports b itself
		if len(path) > 0 && path[len(path)-1] == "self" {
			path = path[:len(path)-1]
		}
		if len(path) == 0 {
			return
		}
		*out = append(*out, Import{Alias: path[len(path)-1], Path: path})
	case "use_as_clause":
		p := n.ChildByFieldName("path")
		alias := n.ChildByFieldName("alias")
		if p == nil || alias == nil || w.text(alias) == "_" {
			return
		}
		path := append(append([]string(nil), prefix...), SplitPath(w.text(p))...)
		*out = append(*out, Import{Alias: w.text(alias), Path: path})
	case "scoped_use_list":
		next := append([]string(nil), prefix...)
		if p := n.ChildByFieldName("path"); p != nil {
			next = append(next, SplitPath(w.text(p))...)
		}
		if list := n.ChildByFieldName("list"); list != nil {
			w.useTree(list, next, out)
		}
	case "use_list":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			w.useTree(n.NamedChild(i), prefix, out)
		}
	case "use_wildcard":
		text := strings.TrimSuffix(strings.TrimSpace(w.text(n)), "*")
		path := append(append([]string(nil), prefix...), SplitPath(text)...)
		*out = append(*out, Import{Path: path, Glob: true})
	}
}

func childOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil && child.Type() == typ {
			return child
		}
	}
	return nil
}

func appendSegment(module []string, seg string) []string {
	return append(append([]string(nil), module...), seg)
}
