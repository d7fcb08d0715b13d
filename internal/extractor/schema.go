package extractor

import "strings"

// Kind classifies an extracted function unit.
type Kind string

const (
	KindFunction     Kind = "function"
	KindMethod       Kind = "method"        // inherent impl
	KindTraitImpl    Kind = "trait_impl"    // impl Trait for Type
	KindTraitDefault Kind = "trait_default" // default body inside a trait
	KindClosure      Kind = "closure"       // let name = |..| ..
)

// CallKind is the syntactic shape of a call site.
type CallKind string

const (
	CallDirect CallKind = "direct" // foo()
	CallPath   CallKind = "path"   // a::b::foo(), Type::f()
	CallMethod CallKind = "method" // recv.m()
	CallMacro  CallKind = "macro"  // name!(..)
)

// CodeUnit represents a single function-like definition extracted from a Rust file.
type CodeUnit struct {
	ID          string   `json:"id"`           // crate::module::[impl::]name, unique after Disambiguate
	Name        string   `json:"name"`         // simple name
	DisplayName string   `json:"display_name"` // name as rendered, e.g. Type::name
	Crate       string   `json:"crate"`
	Module      []string `json:"module"` // crate name first
	ImplType    string   `json:"impl_type,omitempty"`
	Trait       string   `json:"trait,omitempty"`
	Kind        Kind     `json:"kind"`
	Filepath    string   `json:"filepath"`
	StartLine   int      `json:"start_line"`
	EndLine     int      `json:"end_line"`
	Signature   string   `json:"signature"`
	ReturnType  string   `json:"return_type,omitempty"`
	IsPublic    bool     `json:"is_public"`
	IsAsync     bool     `json:"is_async"`

	// Enclosing is the function a nested function or closure is defined in.
	Enclosing *CodeUnit         `json:"-"`
	Calls     []CallSite        `json:"calls,omitempty"`
	Locals    map[string]string `json:"locals,omitempty"` // binding -> type name
}

// ModulePath returns the module path joined with "::".
func (u *CodeUnit) ModulePath() string {
	return strings.Join(u.Module, "::")
}

// CallSite is an unresolved call found in a unit's own body.
type CallSite struct {
	Kind CallKind `json:"kind"`
	// Path holds the callee path segments for direct and path calls, generics stripped.
	Path []string `json:"path,omitempty"`
	// Method call details.
	Method       string   `json:"method,omitempty"`
	Receiver     string   `json:"receiver,omitempty"`      // binding name when the receiver is a plain identifier
	ReceiverCall []string `json:"receiver_call,omitempty"` // callee path when the receiver is itself a call
	Raw          string   `json:"raw"`
	Line         int      `json:"line"`
}

// Import is one name brought into scope by a use declaration.
type Import struct {
	Alias string   `json:"alias,omitempty"`
	Path  []string `json:"path"`
	Glob  bool     `json:"glob,omitempty"`
}

// FileResult holds everything extracted from one file.
type FileResult struct {
	Path  string      `json:"path"`
	Units []*CodeUnit `json:"units"`
	// Imports per module path ("crate::a::b"); inline modules get their own entry.
	Imports map[string][]Import `json:"imports"`
}
