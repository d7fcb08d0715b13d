package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	ErrDanglingEdge    = errors.New("dangling edge")
	ErrFocusNotFound   = errors.New("focus symbol not found")
	ErrAmbiguousFocus  = errors.New("ambiguous focus symbol")
)

// AmbiguousFocusError names the symbols a focus string matched.
type AmbiguousFocusError struct {
	Focus      string
	Candidates []string
}

func (e *AmbiguousFocusError) Error() string {
	return fmt.Sprintf("%s %q: candidates %s", ErrAmbiguousFocus, e.Focus, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousFocusError) Is(target error) bool {
	return target == ErrAmbiguousFocus
}

func wrapf(err error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
}
