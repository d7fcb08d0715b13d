package storage

import (
	"context"
	"errors"
	"time"

	"rustgrapher/internal/graph"
)

var ErrNoSnapshot = errors.New("no graph snapshot stored")

// Meta describes a stored snapshot.
type Meta struct {
	Root    string
	SavedAt time.Time
}

// GraphStore persists call graph snapshots.
type GraphStore interface {
	// SaveGraph replaces the stored snapshot with g.
	SaveGraph(ctx context.Context, g *graph.CallGraph, meta Meta) error

	// LoadGraph rebuilds the stored snapshot.
	LoadGraph(ctx context.Context) (*graph.CallGraph, error)

	// LoadMeta returns the metadata of the stored snapshot.
	LoadMeta(ctx context.Context) (*Meta, error)

	// FindSymbolsByFile retrieves all symbols defined in a file, ordered by line.
	FindSymbolsByFile(ctx context.Context, filepath string) ([]*graph.Symbol, error)

	Close() error
}
