package crawler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrawler_Collect(t *testing.T) {
	root := t.TempDir()

	write(t, root, "Cargo.toml", `
[workspace]
members = ["crates/*"]
`)
	write(t, root, ".gitignore", "generated/\n")
	write(t, root, "crates/app/Cargo.toml", `
[package]
name = "my-app"
version = "0.1.0"

[dependencies]
shared = { path = "../../libs/shared" }
`)
	write(t, root, "crates/app/src/main.rs", "fn main() {}")
	write(t, root, "crates/app/src/cli/mod.rs", "pub fn run() {}")
	write(t, root, "crates/app/src/cli/args.rs", "pub fn parse() {}")
	write(t, root, "crates/app/src/generated/out.rs", "fn gen() {}")
	write(t, root, "crates/app/target/debug/build.rs", "fn nope() {}")
	write(t, root, "crates/app/notes.txt", "not rust")
	write(t, root, "crates/core/Cargo.toml", "[package]\nname = \"core\"\n")
	write(t, root, "crates/core/src/lib.rs", "pub fn init() {}")
	write(t, root, "crates/core/fuzz/Cargo.toml", "[package]\nname = \"core-fuzz\"\n")
	write(t, root, "crates/core/fuzz/src/lib.rs", "fn fuzz() {}")
	write(t, root, "libs/shared/Cargo.toml", "[package]\nname = \"shared\"\n")
	write(t, root, "libs/shared/src/lib.rs", "pub fn helper() {}")

	c := NewCrawler()

	t.Run("All crates", func(t *testing.T) {
		target, err := c.Collect(context.Background(), root, Options{})
		require.NoError(t, err)

		var rels []string
		for _, f := range target.Files {
			rels = append(rels, f.RelPath)
		}
		assert.Equal(t, []string{
			"crates/app/src/cli/args.rs",
			"crates/app/src/cli/mod.rs",
			"crates/app/src/main.rs",
			"crates/core/src/lib.rs",
			"libs/shared/src/lib.rs",
		}, rels)

		byRel := make(map[string]SourceFile)
		for _, f := range target.Files {
			byRel[f.RelPath] = f
		}
		assert.Equal(t, "my_app", byRel["crates/app/src/main.rs"].Crate)
		assert.Equal(t, []string{"cli", "args"}, byRel["crates/app/src/cli/args.rs"].Module)
		assert.Equal(t, []string{"cli"}, byRel["crates/app/src/cli/mod.rs"].Module)
		assert.Equal(t, []string{"main"}, byRel["crates/app/src/main.rs"].Module)

		require.Len(t, target.Crates, 3)
		for _, cr := range target.Crates {
			if cr.Name == "shared" {
				assert.False(t, cr.Member)
			} else {
				assert.True(t, cr.Member)
			}
		}
	})

	t.Run("Workspace only", func(t *testing.T) {
		target, err := c.Collect(context.Background(), root, Options{WorkspaceOnly: true})
		require.NoError(t, err)
		for _, f := range target.Files {
			assert.NotEqual(t, "shared", f.Crate)
		}
		assert.Len(t, target.Files, 4)
	})

	t.Run("Missing manifest", func(t *testing.T) {
		_, err := c.Collect(context.Background(), t.TempDir(), Options{})
		assert.ErrorIs(t, err, ErrTargetNotFound)
	})
}

func TestCrawler_WorkspaceDependencies(t *testing.T) {
	root := t.TempDir()

	write(t, root, "Cargo.toml", `
[workspace]
members = ["crates/app"]

[workspace.dependencies]
shared = { path = "libs/shared" }
`)
	write(t, root, "crates/app/Cargo.toml", `
[package]
name = "app"

[dependencies]
shared = { workspace = true }
`)
	write(t, root, "crates/app/src/lib.rs", "pub fn run() {}")
	write(t, root, "libs/shared/Cargo.toml", "[package]\nname = \"shared\"\n")
	write(t, root, "libs/shared/src/lib.rs", "pub fn helper() {}")

	target, err := NewCrawler().Collect(context.Background(), root, Options{})
	require.NoError(t, err)

	var crates []string
	for _, cr := range target.Crates {
		crates = append(crates, cr.Name)
	}
	assert.Equal(t, []string{"app", "shared"}, crates)
	assert.Len(t, target.Files, 2)
	assert.Empty(t, target.Warnings)

	t.Run("Workspace only", func(t *testing.T) {
		target, err := NewCrawler().Collect(context.Background(), root, Options{WorkspaceOnly: true})
		require.NoError(t, err)
		assert.Len(t, target.Crates, 1)
	})
}

func TestModulePath(t *testing.T) {
	crate := filepath.FromSlash("/work/app")
	cases := map[string][]string{
		"src/lib.rs":           {},
		"src/main.rs":          {"main"},
		"src/net.rs":           {"net"},
		"src/net/mod.rs":       {"net"},
		"src/net/tcp.rs":       {"net", "tcp"},
		"src/bin/tool.rs":      {"bin", "tool"},
		"src/bin/tool/main.rs": {"bin", "tool"},
		"src/bin/tool/args.rs": {"bin", "tool", "args"},
		"tests/smoke.rs":       {"tests", "smoke"},
		"build.rs":             {"build"},
	}
	for rel, want := range cases {
		got := ModulePath(crate, filepath.Join(crate, filepath.FromSlash(rel)))
		if len(want) == 0 {
			assert.Empty(t, got, rel)
			continue
		}
		assert.Equal(t, want, got, rel)
	}
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
