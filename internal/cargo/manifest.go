package cargo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	ManifestName = "Cargo.toml"
	LockName     = "Cargo.lock"
)

var ErrManifestNotFound = errors.New("cargo manifest not found")

type DependencyKind string

const (
	DepNormal DependencyKind = "normal"
	DepDev    DependencyKind = "dev"
	DepBuild  DependencyKind = "build"
)

// Dependency is one entry of a [dependencies]-like table.
type Dependency struct {
	Name     string         // key used in the manifest (the name visible to code)
	Package  string         // real crate name; differs from Name when renamed
	Version  string         // version requirement, empty for path/git deps without one
	Path     string         // absolute directory for path dependencies
	Kind     DependencyKind
	Optional bool
	// Workspace marks `{ workspace = true }` entries; InheritWorkspace fills them.
	Workspace bool
}

type PackageInfo struct {
	Name    string
	Version string
}

type WorkspaceInfo struct {
	Members []string
	Exclude []string
	// Dependencies is the [workspace.dependencies] table, keyed by name.
	Dependencies map[string]Dependency
}

// Manifest is the subset of Cargo.toml the grapher cares about.
type Manifest struct {
	Path         string
	Dir          string
	Package      *PackageInfo
	Workspace    *WorkspaceInfo
	Dependencies []Dependency
}

type rawManifest struct {
	Package           map[string]any            `toml:"package"`
	Workspace         *rawWorkspace             `toml:"workspace"`
	Dependencies      map[string]any            `toml:"dependencies"`
	DevDependencies   map[string]any            `toml:"dev-dependencies"`
	BuildDependencies map[string]any            `toml:"build-dependencies"`
	Target            map[string]rawTargetBlock `toml:"target"`
}

type rawWorkspace struct {
	Members      []string       `toml:"members"`
	Exclude      []string       `toml:"exclude"`
	Dependencies map[string]any `toml:"dependencies"`
}

type rawTargetBlock struct {
	Dependencies      map[string]any `toml:"dependencies"`
	DevDependencies   map[string]any `toml:"dev-dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
}

// FindManifest returns the Cargo.toml for root, which may be a directory or the manifest itself.
func FindManifest(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrManifestNotFound, root)
	}
	if !info.IsDir() {
		if filepath.Base(abs) != ManifestName {
			return "", fmt.Errorf("%w: %s is not a %s", ErrManifestNotFound, root, ManifestName)
		}
		return abs, nil
	}
	path := filepath.Join(abs, ManifestName)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrManifestNotFound, abs)
	}
	return path, nil
}

// LoadManifest reads and parses a Cargo.toml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return ParseManifest(path, data)
}

// ParseManifest parses manifest content. Relative dependency paths are resolved against
// the directory of path.
func ParseManifest(path string, data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	m := &Manifest{Path: abs, Dir: filepath.Dir(abs)}

	if raw.Package != nil {
		m.Package = &PackageInfo{
			Name:    stringValue(raw.Package["name"]),
			Version: stringValue(raw.Package["version"]),
		}
	}
	if raw.Workspace != nil {
		m.Workspace = &WorkspaceInfo{
			Members:      raw.Workspace.Members,
			Exclude:      raw.Workspace.Exclude,
			Dependencies: make(map[string]Dependency),
		}
		for _, dep := range parseDependencyTable(m.Dir, raw.Workspace.Dependencies, DepNormal) {
			m.Workspace.Dependencies[dep.Name] = dep
		}
	}

	m.Dependencies = append(m.Dependencies, parseDependencyTable(m.Dir, raw.Dependencies, DepNormal)...)
	m.Dependencies = append(m.Dependencies, parseDependencyTable(m.Dir, raw.DevDependencies, DepDev)...)
	m.Dependencies = append(m.Dependencies, parseDependencyTable(m.Dir, raw.BuildDependencies, DepBuild)...)

	targets := make([]string, 0, len(raw.Target))
	for name := range raw.Target {
		targets = append(targets, name)
	}
	sort.Strings(targets)
	for _, name := range targets {
		block := raw.Target[name]
		m.Dependencies = append(m.Dependencies, parseDependencyTable(m.Dir, block.Dependencies, DepNormal)...)
		m.Dependencies = append(m.Dependencies, parseDependencyTable(m.Dir, block.DevDependencies, DepDev)...)
		m.Dependencies = append(m.Dependencies, parseDependencyTable(m.Dir, block.BuildDependencies, DepBuild)...)
	}

	// A root package inherits from its own workspace.
	m.InheritWorkspace(m)
	return m, nil
}

// InheritWorkspace fills `{ workspace = true }` dependencies of m from the
// [workspace.dependencies] table of ws. Manifests outside the workspace
// directory are left alone.
func (m *Manifest) InheritWorkspace(ws *Manifest) {
	if ws == nil || ws.Workspace == nil {
		return
	}
	if rel, err := filepath.Rel(ws.Dir, m.Dir); err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	for i := range m.Dependencies {
		dep := &m.Dependencies[i]
		if !dep.Workspace {
			continue
		}
		shared, ok := ws.Workspace.Dependencies[dep.Name]
		if !ok {
			continue
		}
		if dep.Version == "" {
			dep.Version = shared.Version
		}
		if dep.Path == "" {
			dep.Path = shared.Path
		}
		if dep.Package == dep.Name {
			dep.Package = shared.Package
		}
	}
}

func parseDependencyTable(dir string, table map[string]any, kind DependencyKind) []Dependency {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make([]Dependency, 0, len(names))
	for _, name := range names {
		dep := Dependency{Name: name, Package: name, Kind: kind}
		switch v := table[name].(type) {
		case string:
			dep.Version = v
		case map[string]any:
			dep.Version = stringValue(v["version"])
			if pkg := stringValue(v["package"]); pkg != "" {
				dep.Package = pkg
			}
			if p := stringValue(v["path"]); p != "" {
				dep.Path = filepath.Clean(filepath.Join(dir, filepath.FromSlash(p)))
			}
			if opt, ok := v["optional"].(bool); ok {
				dep.Optional = opt
			}
			if ws, ok := v["workspace"].(bool); ok {
				dep.Workspace = ws
			}
		}
		deps = append(deps, dep)
	}
	return deps
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// Name returns the package name, or "" for virtual workspace manifests.
func (m *Manifest) Name() string {
	if m == nil || m.Package == nil {
		return ""
	}
	return m.Package.Name
}

// CrateName is the package name as it appears in Rust paths.
func (m *Manifest) CrateName() string {
	return CrateIdent(m.Name())
}

// CrateIdent converts a package name into its Rust identifier form.
func CrateIdent(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// PathDependencies returns the local path dependencies, deduplicated by directory.
func (m *Manifest) PathDependencies() []Dependency {
	seen := make(map[string]bool)
	var out []Dependency
	for _, dep := range m.Dependencies {
		if dep.Path == "" || seen[dep.Path] {
			continue
		}
		seen[dep.Path] = true
		out = append(out, dep)
	}
	return out
}

// WorkspaceMemberDirs expands the workspace member globs into crate directories that
// contain a manifest, minus the excluded ones. The result is sorted.
func (m *Manifest) WorkspaceMemberDirs() ([]string, error) {
	if m.Workspace == nil {
		return nil, nil
	}

	excluded := make(map[string]bool)
	for _, pattern := range m.Workspace.Exclude {
		matches, err := filepath.Glob(filepath.Join(m.Dir, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, fmt.Errorf("invalid workspace exclude %q: %w", pattern, err)
		}
		for _, match := range matches {
			excluded[filepath.Clean(match)] = true
		}
	}

	dirs := make(map[string]bool)
	for _, pattern := range m.Workspace.Members {
		matches, err := filepath.Glob(filepath.Join(m.Dir, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, fmt.Errorf("invalid workspace member %q: %w", pattern, err)
		}
		for _, match := range matches {
			match = filepath.Clean(match)
			if excluded[match] {
				continue
			}
			if _, err := os.Stat(filepath.Join(match, ManifestName)); err != nil {
				continue
			}
			dirs[match] = true
		}
	}

	out := make([]string, 0, len(dirs))
	for dir := range dirs {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out, nil
}
