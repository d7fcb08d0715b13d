package crawler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"rustgrapher/internal/cargo"
)

var ErrTargetNotFound = errors.New("target not found")

// SourceFile is a Rust file that belongs to one of the analyzed crates.
type SourceFile struct {
	Path    string   // absolute path
	RelPath string   // slash-separated, relative to the target root
	Crate   string   // crate identifier (dashes replaced)
	Module  []string // module path inside the crate derived from the file location
}

// Crate is one package taking part in the analysis.
type Crate struct {
	Name   string
	Dir    string
	Member bool // declared by the root manifest (root package or workspace member)
}

// Target is the result of a collection run.
type Target struct {
	Root     string
	Manifest *cargo.Manifest
	Crates   []Crate
	Files    []SourceFile
	Warnings []string
}

type Options struct {
	WorkspaceOnly bool
}

// Crawler discovers the source files of a Cargo project.
type Crawler struct {
	ignored []string
}

// NewCrawler creates a new crawler instance.
func NewCrawler() *Crawler {
	return &Crawler{
		ignored: []string{".git", "target", "node_modules", "vendor"},
	}
}

// Collect resolves the crates of root and returns their source files sorted by path.
func (c *Crawler) Collect(ctx context.Context, root string, opts Options) (*Target, error) {
	manifestPath, err := cargo.FindManifest(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTargetNotFound, err)
	}
	rootManifest, err := cargo.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	target := &Target{Root: rootManifest.Dir, Manifest: rootManifest}
	if err := c.resolveCrates(target, opts); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, crate := range target.Crates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := c.walkCrate(target.Root, crate)
		if err != nil {
			return nil, fmt.Errorf("failed to walk crate %s: %w", crate.Name, err)
		}
		for _, f := range files {
			if seen[f.Path] {
				continue
			}
			seen[f.Path] = true
			target.Files = append(target.Files, f)
		}
	}

	sort.Slice(target.Files, func(i, j int) bool {
		return target.Files[i].RelPath < target.Files[j].RelPath
	})
	return target, nil
}

func (c *Crawler) resolveCrates(target *Target, opts Options) error {
	root := target.Manifest
	visited := make(map[string]bool)
	var queue []*cargo.Manifest

	if root.Package != nil {
		visited[root.Dir] = true
		target.Crates = append(target.Crates, Crate{Name: root.CrateName(), Dir: root.Dir, Member: true})
		queue = append(queue, root)
	}

	memberDirs, err := root.WorkspaceMemberDirs()
	if err != nil {
		return err
	}
	for _, dir := range memberDirs {
		if visited[dir] {
			continue
		}
		m, err := cargo.LoadManifest(filepath.Join(dir, cargo.ManifestName))
		if err != nil {
			target.Warnings = append(target.Warnings, err.Error())
			continue
		}
		if m.Package == nil {
			continue
		}
		m.InheritWorkspace(root)
		visited[dir] = true
		target.Crates = append(target.Crates, Crate{Name: m.CrateName(), Dir: dir, Member: true})
		queue = append(queue, m)
	}

	if !opts.WorkspaceOnly {
		// Path dependencies, followed transitively.
		for len(queue) > 0 {
			m := queue[0]
			queue = queue[1:]
			for _, dep := range m.PathDependencies() {
				if visited[dep.Path] {
					continue
				}
				visited[dep.Path] = true
				depManifest, err := cargo.LoadManifest(filepath.Join(dep.Path, cargo.ManifestName))
				if err != nil {
					target.Warnings = append(target.Warnings, err.Error())
					continue
				}
				if depManifest.Package == nil {
					continue
				}
				depManifest.InheritWorkspace(root)
				target.Crates = append(target.Crates, Crate{Name: depManifest.CrateName(), Dir: dep.Path})
				queue = append(queue, depManifest)
			}
		}
	}

	sort.SliceStable(target.Crates, func(i, j int) bool {
		return target.Crates[i].Dir < target.Crates[j].Dir
	})
	return nil
}

func (c *Crawler) walkCrate(root string, crate Crate) ([]SourceFile, error) {
	matchers := loadIgnoreFiles(root, crate.Dir)
	var files []SourceFile

	err := filepath.WalkDir(crate.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == crate.Dir {
				return nil
			}
			if c.skipDir(d.Name()) || ignoredBy(matchers, path, true) {
				return filepath.SkipDir
			}
			// Nested packages are crates of their own.
			if _, err := os.Stat(filepath.Join(path, cargo.ManifestName)); err == nil {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), ".rs") || ignoredBy(matchers, path, false) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		files = append(files, SourceFile{
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			Crate:   crate.Name,
			Module:  ModulePath(crate.Dir, path),
		})
		return nil
	})
	return files, err
}

func (c *Crawler) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	return false
}

type ignoreMatcher struct {
	base string
	gi   *ignore.GitIgnore
}

func loadIgnoreFiles(dirs ...string) []ignoreMatcher {
	var out []ignoreMatcher
	seen := make(map[string]bool)
	for _, dir := range dirs {
		if seen[dir] {
			continue
		}
		seen[dir] = true
		gi, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
		if err != nil {
			continue
		}
		out = append(out, ignoreMatcher{base: dir, gi: gi})
	}
	return out
}

func ignoredBy(matchers []ignoreMatcher, path string, isDir bool) bool {
	for _, m := range matchers {
		rel, err := filepath.Rel(m.base, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		if isDir {
			rel += "/"
		}
		if m.gi.MatchesPath(rel) {
			return true
		}
	}
	return false
}

// ModulePath derives the module path of a file from Cargo's layout conventions.
// Binary targets are separate crates, so they live under their own prefix and
// never share a path with the library.
//
//	src/lib.rs                      -> []
//	src/a.rs, src/a/mod.rs          -> [a]
//	src/a/b.rs                      -> [a b]
//	src/main.rs                     -> [main]
//	src/bin/x.rs, src/bin/x/main.rs -> [bin x]
//	src/bin/x/util.rs               -> [bin x util]
//	tests/it.rs                     -> [tests it]
func ModulePath(crateDir, file string) []string {
	rel, err := filepath.Rel(crateDir, file)
	if err != nil {
		return nil
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	stem := strings.TrimSuffix(parts[len(parts)-1], ".rs")
	dirs := parts[:len(parts)-1]

	if len(dirs) == 0 || dirs[0] != "src" {
		// tests/, examples/, benches/ and stray files at the crate root.
		out := append([]string{}, dirs...)
		if stem != "main" && stem != "lib" && stem != "mod" || len(out) == 0 {
			out = append(out, stem)
		}
		return out
	}

	dirs = dirs[1:]
	if len(dirs) > 0 && dirs[0] == "bin" {
		if len(dirs) == 1 {
			return []string{"bin", stem}
		}
		out := append([]string{}, dirs...)
		if stem == "main" && len(dirs) == 2 {
			return out
		}
		return append(out, stem)
	}
	if len(dirs) == 0 && stem == "main" {
		return []string{"main"}
	}

	out := append([]string{}, dirs...)
	switch stem {
	case "mod":
		return out
	case "lib":
		if len(out) == 0 {
			return out
		}
	}
	return append(out, stem)
}
