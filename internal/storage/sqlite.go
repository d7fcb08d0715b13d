package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"rustgrapher/internal/graph"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ GraphStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS symbols (
			id TEXT PRIMARY KEY,
			name TEXT,
			display_name TEXT,
			module TEXT,
			crate TEXT,
			impl_type TEXT,
			trait TEXT,
			kind TEXT,
			filepath TEXT,
			start_line INTEGER,
			end_line INTEGER,
			signature TEXT,
			is_public INTEGER,
			is_async INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS edges (
			caller TEXT,
			target TEXT,
			callee TEXT,
			raw TEXT,
			kind TEXT,
			resolution TEXT,
			resolver TEXT,
			lines JSON,
			PRIMARY KEY (caller, target)
		);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(filepath);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

const symbolColumns = "id, name, display_name, module, crate, impl_type, trait, kind, filepath, start_line, end_line, signature, is_public, is_async"

// SaveGraph replaces the stored snapshot: symbols and edges missing from g
// are removed.
func (s *SQLiteStore) SaveGraph(ctx context.Context, g *graph.CallGraph, meta Meta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{"DELETE FROM edges", "DELETE FROM symbols", "DELETE FROM meta"} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO symbols (`+symbolColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range g.IDs() {
		n := g.Nodes[id]
		if _, err := stmt.ExecContext(ctx, n.ID, n.Name, n.DisplayName, n.Module, n.Crate, n.ImplType, n.Trait, n.Kind,
			n.Filepath, n.StartLine, n.EndLine, n.Signature, n.IsPublic, n.IsAsync); err != nil {
			return fmt.Errorf("failed to save symbol %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (caller, target, callee, raw, kind, resolution, resolver, lines)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for _, e := range g.Edges {
		lines, err := json.Marshal(e.Lines)
		if err != nil {
			return err
		}
		if _, err := edgeStmt.ExecContext(ctx, e.Caller, e.Target(), e.Callee, e.Raw, e.Kind, string(e.Resolution), e.Resolver, lines); err != nil {
			return fmt.Errorf("failed to save edge %s -> %s: %w", e.Caller, e.Target(), err)
		}
	}

	if meta.SavedAt.IsZero() {
		meta.SavedAt = time.Now()
	}
	for k, v := range map[string]string{"root": meta.Root, "saved_at": meta.SavedAt.UTC().Format(time.RFC3339)} {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadGraph(ctx context.Context) (*graph.CallGraph, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+symbolColumns+" FROM symbols ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	symbols, err := scanSymbols(rows)
	if err != nil {
		return nil, err
	}

	edgeRows, err := s.db.QueryContext(ctx, "SELECT caller, callee, raw, kind, resolution, resolver, lines FROM edges ORDER BY caller, target")
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()

	var edges []graph.Edge
	for edgeRows.Next() {
		var e graph.Edge
		var lines []byte
		if err := edgeRows.Scan(&e.Caller, &e.Callee, &e.Raw, &e.Kind, &e.Resolution, &e.Resolver, &lines); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		if len(lines) > 0 {
			if err := json.Unmarshal(lines, &e.Lines); err != nil {
				return nil, fmt.Errorf("failed to decode lines of %s: %w", e.Caller, err)
			}
		}
		edges = append(edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, err
	}

	g, err := graph.Build(symbols, edges)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild stored graph: %w", err)
	}
	return g, nil
}

func (s *SQLiteStore) LoadMeta(ctx context.Context) (*Meta, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("failed to query meta: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	savedAt, ok := values["saved_at"]
	if !ok {
		return nil, ErrNoSnapshot
	}
	meta := &Meta{Root: values["root"]}
	if meta.SavedAt, err = time.Parse(time.RFC3339, savedAt); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot time: %w", err)
	}
	return meta, nil
}

func (s *SQLiteStore) FindSymbolsByFile(ctx context.Context, filepath string) ([]*graph.Symbol, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+symbolColumns+" FROM symbols WHERE filepath = ? ORDER BY start_line, id", filepath)
	if err != nil {
		return nil, err
	}
	return scanSymbols(rows)
}

func scanSymbol(rows *sql.Rows) (*graph.Symbol, error) {
	var n graph.Symbol
	if err := rows.Scan(&n.ID, &n.Name, &n.DisplayName, &n.Module, &n.Crate, &n.ImplType, &n.Trait, &n.Kind,
		&n.Filepath, &n.StartLine, &n.EndLine, &n.Signature, &n.IsPublic, &n.IsAsync); err != nil {
		return nil, err
	}
	return &n, nil
}

func scanSymbols(rows *sql.Rows) ([]*graph.Symbol, error) {
	defer rows.Close()
	var out []*graph.Symbol
	for rows.Next() {
		n, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
