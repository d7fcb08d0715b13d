package deps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rustgrapher/internal/cargo"
	"rustgrapher/internal/graph"
	"rustgrapher/internal/retrieval"
)

var ErrPackageNotFound = errors.New("package not found")

type Options struct {
	// Package restricts the roots to one crate; empty starts from every
	// workspace member.
	Package string
	// Depth bounds how far from the roots crates are followed; negative is unbounded.
	Depth         int
	WorkspaceOnly bool
	NoDev         bool
	NoBuild       bool
	NoTransitive  bool
	Exclude       []string
	Include       []string
	// Focus keeps only crates that depend on it or that it depends on.
	Focus string
	// Dedup merges every version of a crate into one node.
	Dedup bool
}

// crate is a package of the dependency universe.
type crate struct {
	name    string
	version string
	member  bool
	path    string // manifest of a workspace member
	deps    []dependency
}

type dependency struct {
	key  string
	kind cargo.DependencyKind
}

type universe struct {
	crates map[string]*crate
}

func crateKey(name, version string) string {
	if version == "" {
		return name
	}
	return name + "@" + version
}

// load reads the workspace of manifestPath and its Cargo.lock, if present.
func load(manifestPath string) (*universe, []string, error) {
	path, err := cargo.FindManifest(manifestPath)
	if err != nil {
		return nil, nil, err
	}
	root, err := cargo.LoadManifest(path)
	if err != nil {
		return nil, nil, err
	}

	var lock *cargo.Lockfile
	if _, err := os.Stat(filepath.Join(root.Dir, cargo.LockName)); err == nil {
		if lock, err = cargo.LoadLockfile(filepath.Join(root.Dir, cargo.LockName)); err != nil {
			return nil, nil, err
		}
	}

	manifests := []*cargo.Manifest{}
	if root.Package != nil {
		manifests = append(manifests, root)
	}
	dirs, err := root.WorkspaceMemberDirs()
	if err != nil {
		return nil, nil, err
	}
	for _, dir := range dirs {
		if dir == root.Dir {
			continue
		}
		m, err := cargo.LoadManifest(filepath.Join(dir, cargo.ManifestName))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load workspace member: %w", err)
		}
		m.InheritWorkspace(root)
		manifests = append(manifests, m)
	}
	return buildUniverse(manifests, lock)
}

func buildUniverse(members []*cargo.Manifest, lock *cargo.Lockfile) (*universe, []string, error) {
	u := &universe{crates: make(map[string]*crate)}
	memberKeys := make(map[string]string) // crate name -> key
	var roots []string

	for _, m := range members {
		if m.Name() == "" {
			continue
		}
		version := m.Package.Version
		if p := lock.Lookup(m.Name(), version); p != nil {
			version = p.Version
		}
		key := crateKey(m.Name(), version)
		u.crates[key] = &crate{name: m.Name(), version: version, member: true, path: m.Path}
		memberKeys[m.Name()] = key
		roots = append(roots, key)
	}

	external := func(name, version string) string {
		if p := lock.Lookup(name, version); p != nil {
			version = p.Version
		}
		key := crateKey(name, version)
		if _, ok := u.crates[key]; !ok {
			u.crates[key] = &crate{name: name, version: version}
		}
		return key
	}

	for _, m := range members {
		if m.Name() == "" {
			continue
		}
		c := u.crates[memberKeys[m.Name()]]
		locked := lock.Lookup(c.name, c.version)
		for _, dep := range m.Dependencies {
			if key, ok := memberKeys[dep.Package]; ok {
				c.deps = append(c.deps, dependency{key: key, kind: dep.Kind})
				continue
			}
			version := ""
			if locked != nil {
				for _, ref := range locked.Dependencies {
					if ref.Name == dep.Package {
						version = ref.Version
						break
					}
				}
			}
			if version == "" && lock == nil {
				version = strings.TrimLeft(dep.Version, "^=~ ")
			}
			c.deps = append(c.deps, dependency{key: external(dep.Package, version), kind: dep.Kind})
		}
	}

	// Transitive dependencies only come from the lockfile, which does not
	// record their kind.
	if lock != nil {
		for i := range lock.Packages {
			p := &lock.Packages[i]
			if _, isMember := memberKeys[p.Name]; isMember {
				continue
			}
			key := external(p.Name, p.Version)
			c := u.crates[key]
			c.deps = c.deps[:0]
			for _, ref := range p.Dependencies {
				if mk, ok := memberKeys[ref.Name]; ok {
					c.deps = append(c.deps, dependency{key: mk, kind: cargo.DepNormal})
					continue
				}
				c.deps = append(c.deps, dependency{key: external(ref.Name, ref.Version), kind: cargo.DepNormal})
			}
		}
	}

	for _, c := range u.crates {
		sort.SliceStable(c.deps, func(i, j int) bool { return c.deps[i].key < c.deps[j].key })
	}
	sort.Strings(roots)
	return u, roots, nil
}

// Graph builds the crate dependency graph of the workspace at manifestPath.
func Graph(manifestPath string, opts Options) (*graph.QueryResult, error) {
	u, roots, err := load(manifestPath)
	if err != nil {
		return nil, err
	}
	return u.graph(roots, opts)
}

func (u *universe) graph(roots []string, opts Options) (*graph.QueryResult, error) {
	if opts.Package != "" {
		roots = u.find(opts.Package)
		if len(roots) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, opts.Package)
		}
	}

	depth := make(map[string]int)
	queue := []string{}
	for _, key := range roots {
		if retrieval.MatchesAny(opts.Exclude, u.crates[key].name) {
			continue
		}
		depth[key] = 0
		queue = append(queue, key)
	}

	var edges []graph.Edge
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		c := u.crates[key]
		if opts.Depth >= 0 && depth[key] >= opts.Depth {
			continue
		}
		if opts.NoTransitive && depth[key] >= 1 {
			continue
		}
		for _, dep := range c.deps {
			target := u.crates[dep.key]
			if !u.allowed(target, dep.kind, opts) {
				continue
			}
			edges = append(edges, graph.Edge{
				Caller:     u.nodeID(key, opts),
				Callee:     u.nodeID(dep.key, opts),
				Raw:        target.name,
				Kind:       string(dep.kind),
				Resolution: graph.Resolved,
			})
			if _, seen := depth[dep.key]; seen {
				continue
			}
			depth[dep.key] = depth[key] + 1
			queue = append(queue, dep.key)
		}
	}

	symbols := u.symbols(depth, opts)
	g, err := graph.Build(symbols, edges)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	if opts.Focus == "" {
		return g.Full(), nil
	}
	return connected(g, opts.Focus)
}

func (u *universe) allowed(c *crate, kind cargo.DependencyKind, opts Options) bool {
	switch {
	case opts.NoDev && kind == cargo.DepDev:
		return false
	case opts.NoBuild && kind == cargo.DepBuild:
		return false
	case opts.WorkspaceOnly && !c.member:
		return false
	case retrieval.MatchesAny(opts.Exclude, c.name):
		return false
	case len(opts.Include) > 0 && !retrieval.MatchesAny(opts.Include, c.name):
		return false
	}
	return true
}

func (u *universe) find(name string) []string {
	var out []string
	for key, c := range u.crates {
		if c.name == name || cargo.CrateIdent(c.name) == cargo.CrateIdent(name) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

func (u *universe) nodeID(key string, opts Options) string {
	if opts.Dedup {
		return u.crates[key].name
	}
	return key
}

func (u *universe) symbols(included map[string]int, opts Options) []*graph.Symbol {
	byID := make(map[string]*graph.Symbol)
	versions := make(map[string][]string)
	for key := range included {
		c := u.crates[key]
		id := u.nodeID(key, opts)
		if c.version != "" {
			versions[id] = append(versions[id], c.version)
		}
		if s, ok := byID[id]; ok {
			s.IsPublic = s.IsPublic || c.member
			continue
		}
		byID[id] = &graph.Symbol{
			ID:          id,
			Name:        c.name,
			DisplayName: c.name,
			Crate:       cargo.CrateIdent(c.name),
			Kind:        graph.KindCrate,
			Filepath:    c.path,
			IsPublic:    c.member,
		}
	}

	out := make([]*graph.Symbol, 0, len(byID))
	for _, id := range sortedKeys(byID) {
		s := byID[id]
		vs := versions[id]
		sort.Strings(vs)
		s.Version = strings.Join(vs, ", ")
		out = append(out, s)
	}
	return out
}

// connected keeps the crates reachable from focus and those reaching it.
// A focus that names no crate of the graph is an error.
func connected(g *graph.CallGraph, focus string) (*graph.QueryResult, error) {
	var seeds []string
	for _, id := range g.IDs() {
		if cargo.CrateIdent(g.Nodes[id].Name) == cargo.CrateIdent(focus) {
			seeds = append(seeds, id)
		}
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: focus %s", ErrPackageNotFound, focus)
	}

	keep := make(map[string]bool)
	for _, id := range seeds {
		keep[id] = true
	}
	walk := func(next func(string) []string) {
		queue := append([]string(nil), seeds...)
		seen := make(map[string]bool)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, n := range next(cur) {
				if seen[n] {
					continue
				}
				seen[n] = true
				keep[n] = true
				queue = append(queue, n)
			}
		}
	}
	walk(func(id string) []string {
		var out []string
		for _, e := range g.Outgoing(id) {
			out = append(out, e.Callee)
		}
		return out
	})
	walk(func(id string) []string {
		var out []string
		for _, e := range g.Incoming(id) {
			out = append(out, e.Caller)
		}
		return out
	})

	res := &graph.QueryResult{}
	for _, id := range g.IDs() {
		if keep[id] {
			res.Nodes = append(res.Nodes, g.Nodes[id])
		}
	}
	for _, e := range g.Edges {
		if keep[e.Caller] && keep[e.Callee] {
			res.Edges = append(res.Edges, e)
		}
	}
	return res, nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
