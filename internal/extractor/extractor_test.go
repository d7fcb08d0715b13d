package extractor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_ExtractFile(t *testing.T) {
	testFile := filepath.Join("testdata", "sample.rs")

	ext := NewExtractor()
	res, err := ext.ExtractFile(context.Background(), testFile, Source{
		Path:   "src/parse.rs",
		Crate:  "demo",
		Module: []string{"parse"},
	})
	require.NoError(t, err)

	unitsByID := make(map[string]*CodeUnit)
	var ids []string
	for _, unit := range res.Units {
		unitsByID[unit.ID] = unit
		ids = append(ids, unit.ID)
	}

	t.Run("Document Order", func(t *testing.T) {
		assert.Equal(t, []string{
			"demo::parse::Parser::new",
			"demo::parse::Parser::parse",
			"demo::parse::Parser::count",
			"demo::parse::<Parser as Default>::default",
			"demo::parse::Render::render_twice",
			"demo::parse::run",
			"demo::parse::run::{closure:report}",
			"demo::parse::validate",
			"demo::parse::validate::is_small",
			"demo::parse::inner::deep",
		}, ids)
	})

	t.Run("Inherent Methods", func(t *testing.T) {
		unit := unitsByID["demo::parse::Parser::parse"]
		require.NotNil(t, unit)
		assert.Equal(t, KindMethod, unit.Kind)
		assert.Equal(t, "Parser", unit.ImplType)
		assert.Equal(t, "Parser::parse", unit.DisplayName)
		assert.Equal(t, "parse", unit.Name)
		assert.True(t, unit.IsPublic)
		assert.True(t, unit.IsAsync)
		assert.Equal(t, 15, unit.StartLine)
		assert.Equal(t, 19, unit.EndLine)
		assert.Equal(t, "pub async fn parse(&mut self) -> usize", unit.Signature)
		assert.Equal(t, "Parser", unit.Locals["self"])
		assert.Equal(t, []string{"demo", "parse"}, unit.Module)
		assert.Equal(t, "src/parse.rs", unit.Filepath)

		require.Len(t, unit.Calls, 2)
		assert.Equal(t, CallSite{Kind: CallMethod, Method: "count", Receiver: "self", Raw: "self.count", Line: 16}, unit.Calls[0])
		assert.Equal(t, CallSite{Kind: CallDirect, Path: []string{"clean"}, Raw: "clean", Line: 17}, unit.Calls[1])

		count := unitsByID["demo::parse::Parser::count"]
		require.NotNil(t, count)
		assert.False(t, count.IsPublic)
		require.Len(t, count.Calls, 1)
		assert.Equal(t, ".len", count.Calls[0].Raw)
		assert.Empty(t, count.Calls[0].Receiver)
	})

	t.Run("Trait Impl And Default Methods", func(t *testing.T) {
		def := unitsByID["demo::parse::<Parser as Default>::default"]
		require.NotNil(t, def)
		assert.Equal(t, KindTraitImpl, def.Kind)
		assert.Equal(t, "Default", def.Trait)
		assert.Equal(t, "Parser", def.ImplType)
		assert.Equal(t, "Self", def.ReturnType)
		require.Len(t, def.Calls, 1)
		assert.Equal(t, []string{"Self", "new"}, def.Calls[0].Path)
		assert.Equal(t, CallPath, def.Calls[0].Kind)

		twice := unitsByID["demo::parse::Render::render_twice"]
		require.NotNil(t, twice)
		assert.Equal(t, KindTraitDefault, twice.Kind)
		assert.True(t, twice.IsPublic)
		assert.Empty(t, twice.Locals["self"])
		require.Len(t, twice.Calls, 2)
		assert.Equal(t, "render", twice.Calls[0].Method)
		assert.Equal(t, CallSite{Kind: CallMacro, Path: []string{"format"}, Raw: "format!", Line: 37}, twice.Calls[1])
	})

	t.Run("Receiver Hints", func(t *testing.T) {
		run := unitsByID["demo::parse::run"]
		require.NotNil(t, run)
		assert.Equal(t, "Parser", run.Locals["parser"])
		assert.Equal(t, "HashMap", run.Locals["cache"])
		assert.Equal(t, "str", run.Locals["path"])
		assert.NotContains(t, run.Locals, "total")

		var raws []string
		for _, c := range run.Calls {
			raws = append(raws, c.Raw)
		}
		assert.Equal(t, []string{"Parser::new", "HashMap::new", "parser.parse", "report", "validate"}, raws)
		assert.Equal(t, 48, run.Calls[3].Line)
	})

	t.Run("Closures And Nested Functions", func(t *testing.T) {
		closure := unitsByID["demo::parse::run::{closure:report}"]
		require.NotNil(t, closure)
		assert.Equal(t, KindClosure, closure.Kind)
		assert.Equal(t, "report", closure.Name)
		assert.Equal(t, "run::report", closure.DisplayName)
		assert.Same(t, unitsByID["demo::parse::run"], closure.Enclosing)
		require.Len(t, closure.Calls, 1)
		assert.Equal(t, "emit", closure.Calls[0].Raw)
		assert.Equal(t, "Parser", closure.Locals["parser"])

		nested := unitsByID["demo::parse::validate::is_small"]
		require.NotNil(t, nested)
		assert.Equal(t, KindFunction, nested.Kind)
		assert.Same(t, unitsByID["demo::parse::validate"], nested.Enclosing)
		assert.Empty(t, nested.Calls)

		validate := unitsByID["demo::parse::validate"]
		require.Len(t, validate.Calls, 2)
		assert.Equal(t, "is_small", validate.Calls[0].Raw)
		assert.Equal(t, "cache.len", validate.Calls[1].Raw)
	})

	t.Run("Inline Modules", func(t *testing.T) {
		deep := unitsByID["demo::parse::inner::deep"]
		require.NotNil(t, deep)
		assert.True(t, deep.IsPublic)
		assert.Equal(t, []string{"demo", "parse", "inner"}, deep.Module)
		assert.Equal(t, "Parser", deep.Locals["p"])
		require.Len(t, deep.Calls, 3)
		assert.Equal(t, []string{"crate", "Parser", "default"}, deep.Calls[0].Path)
		assert.Equal(t, "Some", deep.Calls[1].Raw)
		assert.Equal(t, "outer::call", deep.Calls[2].Raw)
	})

	t.Run("Imports", func(t *testing.T) {
		assert.Equal(t, []Import{
			{Alias: "HashMap", Path: []string{"std", "collections", "HashMap"}},
			{Alias: "util", Path: []string{"demo", "util"}},
			{Alias: "clean", Path: []string{"demo", "util", "helpers", "trim"}},
			{Path: []string{"demo", "store"}, Glob: true},
		}, res.Imports["demo::parse"])
		assert.Equal(t, []Import{
			{Alias: "validate", Path: []string{"demo", "parse", "validate"}},
		}, res.Imports["demo::parse::inner"])
	})
}

func TestExtractor_SyntaxError(t *testing.T) {
	ext := NewExtractor()
	_, err := ext.ExtractSource(context.Background(), []byte("fn ok() {}\nfn broken( {\n"), Source{Path: "src/lib.rs", Crate: "demo"})
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestExtractor_MissingFile(t *testing.T) {
	ext := NewExtractor()
	_, err := ext.ExtractFile(context.Background(), filepath.Join(t.TempDir(), "nope.rs"), Source{Crate: "demo"})
	assert.Error(t, err)
}

func TestDisambiguate(t *testing.T) {
	units := []*CodeUnit{
		{ID: "c::f", Kind: KindFunction, Signature: "fn f()", Filepath: "src/a.rs", StartLine: 1},
		{ID: "c::f", Kind: KindFunction, Signature: "fn f(x: u8)", Filepath: "src/a.rs", StartLine: 5},
		{ID: "c::g", Kind: KindFunction, Signature: "fn g()", Filepath: "src/a.rs", StartLine: 9},
		{ID: "c::h", Kind: KindFunction, Signature: "fn h()", Filepath: "src/a.rs", StartLine: 12},
		{ID: "c::h", Kind: KindFunction, Signature: "fn  h()", Filepath: "src/b.rs", StartLine: 12},
	}
	Disambiguate(units)

	seen := make(map[string]bool)
	for _, u := range units {
		assert.False(t, seen[u.ID], "duplicate id %s", u.ID)
		seen[u.ID] = true
	}
	assert.Equal(t, "c::g", units[2].ID)
	assert.Regexp(t, `^c::f#[0-9a-f]{8}$`, units[0].ID)
	assert.Regexp(t, `^c::h#[0-9a-f]{8}$`, units[3].ID)

	// Input order does not change the outcome.
	again := []*CodeUnit{
		{ID: "c::f", Kind: KindFunction, Signature: "fn f(x: u8)", Filepath: "src/a.rs", StartLine: 5},
		{ID: "c::f", Kind: KindFunction, Signature: "fn f()", Filepath: "src/a.rs", StartLine: 1},
	}
	Disambiguate(again)
	assert.Equal(t, units[1].ID, again[0].ID)
	assert.Equal(t, units[0].ID, again[1].ID)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, []string{"Vec", "new"}, SplitPath("Vec::<u8>::new"))
	assert.Equal(t, []string{"default"}, SplitPath("<T as Default>::default"))
	assert.Equal(t, []string{"std", "mem", "take"}, SplitPath("::std::mem::take"))

	module := []string{"demo", "a", "b"}
	assert.Equal(t, []string{"demo", "x"}, NormalizePath([]string{"crate", "x"}, module))
	assert.Equal(t, []string{"demo", "a", "b", "x"}, NormalizePath([]string{"self", "x"}, module))
	assert.Equal(t, []string{"demo", "x"}, NormalizePath([]string{"super", "super", "x"}, module))
	assert.Equal(t, []string{"demo", "x"}, NormalizePath([]string{"super", "super", "super", "x"}, module))
	assert.Equal(t, []string{"serde", "Serialize"}, NormalizePath([]string{"serde", "Serialize"}, module))

	assert.Equal(t, "Parser", TypeName("&'a mut Parser<T>"))
	assert.Equal(t, "Node", TypeName("crate::ast::Node"))
	assert.Equal(t, "Handler", TypeName("&dyn Handler"))
	assert.Equal(t, "Box", TypeName("Box<dyn Handler>"))
}
