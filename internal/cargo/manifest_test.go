package cargo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	content := `
[package]
name = "my-app"
version = "0.3.1"

[dependencies]
serde = "1.0"
core-lib = { path = "../core-lib", version = "0.1" }
json = { package = "serde_json", version = "1", optional = true }

[dev-dependencies]
tempfile = "3"

[target.'cfg(unix)'.build-dependencies]
cc = "1.0"
`
	m, err := ParseManifest(path, []byte(content))
	require.NoError(t, err)

	assert.Equal(t, "my-app", m.Name())
	assert.Equal(t, "my_app", m.CrateName())
	assert.Equal(t, "0.3.1", m.Package.Version)
	assert.Nil(t, m.Workspace)

	byName := make(map[string]Dependency)
	for _, d := range m.Dependencies {
		byName[d.Name] = d
	}
	require.Len(t, byName, 5)

	assert.Equal(t, DepNormal, byName["serde"].Kind)
	assert.Equal(t, "1.0", byName["serde"].Version)

	assert.Equal(t, filepath.Join(filepath.Dir(dir), "core-lib"), byName["core-lib"].Path)

	assert.Equal(t, "serde_json", byName["json"].Package)
	assert.True(t, byName["json"].Optional)

	assert.Equal(t, DepDev, byName["tempfile"].Kind)
	assert.Equal(t, DepBuild, byName["cc"].Kind)

	require.Len(t, m.PathDependencies(), 1)
}

func TestInheritWorkspace(t *testing.T) {
	root := t.TempDir()
	ws, err := ParseManifest(filepath.Join(root, ManifestName), []byte(`
[package]
name = "root"

[workspace]
members = ["crates/*"]

[workspace.dependencies]
shared = { path = "crates/shared", version = "0.2" }
serde = "1.0"
json = { package = "serde_json", version = "1" }

[dependencies]
shared = { workspace = true }
`))
	require.NoError(t, err)
	require.Len(t, ws.Workspace.Dependencies, 3)
	assert.Equal(t, filepath.Join(root, "crates", "shared"), ws.Workspace.Dependencies["shared"].Path)

	// A root package resolves against its own table.
	require.Len(t, ws.PathDependencies(), 1)

	member, err := ParseManifest(filepath.Join(root, "crates", "app", ManifestName), []byte(`
[package]
name = "app"

[dependencies]
shared = { workspace = true }
serde = { workspace = true, optional = true }
json = { workspace = true }
local = { path = "../local" }

[dev-dependencies]
missing = { workspace = true }
`))
	require.NoError(t, err)
	require.Len(t, member.PathDependencies(), 1)

	member.InheritWorkspace(ws)
	byName := make(map[string]Dependency)
	for _, d := range member.Dependencies {
		byName[d.Name] = d
	}
	assert.True(t, byName["shared"].Workspace)
	assert.Equal(t, filepath.Join(root, "crates", "shared"), byName["shared"].Path)
	assert.Equal(t, "0.2", byName["shared"].Version)
	assert.Equal(t, "1.0", byName["serde"].Version)
	assert.True(t, byName["serde"].Optional)
	assert.Equal(t, "serde_json", byName["json"].Package)
	assert.Equal(t, DepDev, byName["missing"].Kind)
	assert.Empty(t, byName["missing"].Path)
	assert.Len(t, member.PathDependencies(), 2)

	t.Run("Outside the workspace", func(t *testing.T) {
		other, err := ParseManifest(filepath.Join(t.TempDir(), ManifestName), []byte(`
[package]
name = "other"

[dependencies]
shared = { workspace = true }
`))
		require.NoError(t, err)
		other.InheritWorkspace(ws)
		assert.Empty(t, other.PathDependencies())
	})
}

func TestWorkspaceMemberDirs(t *testing.T) {
	root := t.TempDir()
	for _, crate := range []string{"crates/a", "crates/b", "crates/skip", "tools/cli"} {
		writeFile(t, filepath.Join(root, crate, ManifestName), "[package]\nname = \"x\"\n")
	}
	// directory without manifest is ignored
	require.NoError(t, os.MkdirAll(filepath.Join(root, "crates", "empty"), 0o755))

	writeFile(t, filepath.Join(root, ManifestName), `
[workspace]
members = ["crates/*", "tools/cli"]
exclude = ["crates/skip"]
`)

	m, err := LoadManifest(filepath.Join(root, ManifestName))
	require.NoError(t, err)
	assert.Empty(t, m.Name())

	dirs, err := m.WorkspaceMemberDirs()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "crates", "a"),
		filepath.Join(root, "crates", "b"),
		filepath.Join(root, "tools", "cli"),
	}, dirs)
}

func TestFindManifest(t *testing.T) {
	root := t.TempDir()

	_, err := FindManifest(root)
	assert.ErrorIs(t, err, ErrManifestNotFound)

	writeFile(t, filepath.Join(root, ManifestName), "[package]\nname = \"x\"\n")

	path, err := FindManifest(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ManifestName), path)

	path, err = FindManifest(filepath.Join(root, ManifestName))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ManifestName), path)
}

func TestParseLockfile(t *testing.T) {
	lf, err := ParseLockfile([]byte(`
version = 3

[[package]]
name = "app"
version = "0.1.0"
dependencies = [
 "itoa",
 "serde 1.0.200 (registry+https://github.com/rust-lang/crates.io-index)",
]

[[package]]
name = "itoa"
version = "1.0.11"
source = "registry+https://github.com/rust-lang/crates.io-index"

[[package]]
name = "serde"
version = "1.0.200"
source = "registry+https://github.com/rust-lang/crates.io-index"

[[package]]
name = "serde"
version = "0.9.0"
`))
	require.NoError(t, err)
	require.Len(t, lf.Packages, 4)

	app := lf.Lookup("app", "")
	require.NotNil(t, app)
	assert.Equal(t, []LockedRef{{Name: "itoa"}, {Name: "serde", Version: "1.0.200"}}, app.Dependencies)

	assert.Nil(t, lf.Lookup("serde", ""), "ambiguous name without version")
	require.NotNil(t, lf.Lookup("serde", "0.9.0"))
	assert.Nil(t, lf.Lookup("missing", ""))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
