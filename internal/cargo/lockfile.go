package cargo

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// LockedRef points at another [[package]] entry of the lockfile.
type LockedRef struct {
	Name    string
	Version string
}

type LockedPackage struct {
	Name         string
	Version      string
	Source       string
	Dependencies []LockedRef
}

// Lockfile holds the resolved package set of a Cargo.lock file.
type Lockfile struct {
	Packages []LockedPackage
}

type rawLockfile struct {
	Package []struct {
		Name         string   `toml:"name"`
		Version      string   `toml:"version"`
		Source       string   `toml:"source"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"package"`
}

func LoadLockfile(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lockfile %s: %w", path, err)
	}
	return ParseLockfile(data)
}

func ParseLockfile(data []byte) (*Lockfile, error) {
	var raw rawLockfile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse lockfile: %w", err)
	}

	lf := &Lockfile{Packages: make([]LockedPackage, 0, len(raw.Package))}
	for _, p := range raw.Package {
		pkg := LockedPackage{Name: p.Name, Version: p.Version, Source: p.Source}
		for _, dep := range p.Dependencies {
			// "name", "name version" or "name version (source)"
			fields := strings.Fields(dep)
			if len(fields) == 0 {
				continue
			}
			ref := LockedRef{Name: fields[0]}
			if len(fields) > 1 {
				ref.Version = fields[1]
			}
			pkg.Dependencies = append(pkg.Dependencies, ref)
		}
		lf.Packages = append(lf.Packages, pkg)
	}
	return lf, nil
}

// Lookup finds a package by name and version. An empty version matches only when the
// name is unique in the lockfile.
func (l *Lockfile) Lookup(name, version string) *LockedPackage {
	if l == nil {
		return nil
	}
	var found *LockedPackage
	for i := range l.Packages {
		p := &l.Packages[i]
		if p.Name != name {
			continue
		}
		if version != "" {
			if p.Version == version {
				return p
			}
			continue
		}
		if found != nil {
			return nil
		}
		found = p
	}
	return found
}
