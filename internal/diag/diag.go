package diag

import (
	"context"
	"log/slog"
	"sort"
)

type Kind string

const (
	KindFileSkipped   Kind = "file_skipped"
	KindAmbiguousCall Kind = "ambiguous_call"
)

// Diagnostic is a non-fatal finding of a run. Diagnostics never end up in rendered output.
type Diagnostic struct {
	Kind       Kind     `json:"kind"`
	Path       string   `json:"path,omitempty"`
	Line       int      `json:"line,omitempty"`
	Symbol     string   `json:"symbol,omitempty"`
	Message    string   `json:"message"`
	Candidates []string `json:"candidates,omitempty"`
}

func FileSkipped(path, reason string) Diagnostic {
	return Diagnostic{Kind: KindFileSkipped, Path: path, Message: reason}
}

func AmbiguousCall(caller, raw string, line int, candidates []string) Diagnostic {
	return Diagnostic{
		Kind:       KindAmbiguousCall,
		Symbol:     caller,
		Line:       line,
		Message:    raw,
		Candidates: candidates,
	}
}

func (d Diagnostic) level() slog.Level {
	if d.Kind == KindFileSkipped {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// Log writes each diagnostic to logger, warnings for skipped files and info for the rest.
func Log(ctx context.Context, logger *slog.Logger, diags []Diagnostic) {
	for _, d := range diags {
		switch d.Kind {
		case KindFileSkipped:
			logger.Log(ctx, d.level(), "file skipped", "path", d.Path, "reason", d.Message)
		case KindAmbiguousCall:
			logger.Log(ctx, d.level(), "ambiguous call", "caller", d.Symbol, "callee", d.Message,
				"line", d.Line, "candidates", d.Candidates)
		default:
			logger.Log(ctx, d.level(), d.Message, "kind", d.Kind)
		}
	}
}

// Count returns the number of diagnostics per kind.
func Count(diags []Diagnostic) map[Kind]int {
	counts := make(map[Kind]int)
	for _, d := range diags {
		counts[d.Kind]++
	}
	return counts
}

// Sort orders diagnostics by kind, path, symbol and line.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Kind != b.Kind {
			return a.Kind > b.Kind
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Line < b.Line
	})
}
