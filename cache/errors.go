package cache

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound represents a path that has no entry
	ErrNotFound = errors.New("cache entry not found")
	// ErrConcatShadowsFile represents a concat group named after a real source file
	ErrConcatShadowsFile = errors.New("concat target shadows an existing file")
)

// CircularDependencyError is returned when a path is requested while it is
// still being built
type CircularDependencyError struct {
	Path  string
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	chain := append(append([]string{}, e.Chain...), e.Path)
	return fmt.Sprintf("circular dependency on %s: %s", e.Path, strings.Join(chain, " -> "))
}

// Declaration is one place a concat group was declared
type Declaration struct {
	Source  string
	Members []string
}

// ConcatMismatchError is returned when one concat group is declared twice
// with different member lists
type ConcatMismatchError struct {
	Name   string
	First  Declaration
	Second Declaration
}

func (e *ConcatMismatchError) Error() string {
	return fmt.Sprintf("concat group %s declared differently: %s has [%s], %s has [%s]",
		e.Name,
		e.First.Source, strings.Join(e.First.Members, ", "),
		e.Second.Source, strings.Join(e.Second.Members, ", "))
}

// MissingDependencyError is returned when an inlined or concatenated path
// does not exist
type MissingDependencyError struct {
	Path     string
	Referrer string
}

func (e *MissingDependencyError) Error() string {
	if e.Referrer == "" {
		return fmt.Sprintf("missing dependency %s", e.Path)
	}
	return fmt.Sprintf("missing dependency %s (referenced from %s)", e.Path, e.Referrer)
}

// CompileError wraps a compiler failure for a single path.
// Outside of strict mode it is only recorded as a warning.
type CompileError struct {
	Path        string
	ContentType string
	Err         error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compiling %s (%s): %s", e.Path, e.ContentType, e.Err)
}

// Unwrap returns the compiler error
func (e *CompileError) Unwrap() error {
	return e.Err
}
