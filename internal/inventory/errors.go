package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure taxonomy. Structured errors below match
// their sentinel through errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrCycleDetected      = errors.New("cycle detected")
	ErrAmbiguousMatch     = errors.New("ambiguous match")
	ErrNoMatch            = errors.New("no match")
	ErrInterpreterFailure = errors.New("interpreter failure")
	ErrIntegrityViolation = errors.New("integrity violation")
	ErrUnsupported        = errors.New("unsupported action")
)

// Kind names an entity class.
type Kind string

const (
	KindSpace Kind = "space"
	KindItem  Kind = "item"
)

// Plural returns the plural noun for the kind ("spaces", "items").
func (k Kind) Plural() string {
	return string(k) + "s"
}

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Kind Kind
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// CycleError reports a reparent that would make a space its own ancestor.
type CycleError struct {
	SpaceID     int64
	NewParentID int64
}

func (e *CycleError) Error() string {
	if e.SpaceID == e.NewParentID {
		return fmt.Sprintf("space %d cannot be its own parent", e.SpaceID)
	}
	return fmt.Sprintf("space %d is a descendant of space %d", e.NewParentID, e.SpaceID)
}

func (e *CycleError) Is(target error) bool { return target == ErrCycleDetected }

// Candidate is one entity a free-text name could refer to.
type Candidate struct {
	ID   int64
	Name string
}

// AmbiguousMatchError reports more than one entity matching a name.
type AmbiguousMatchError struct {
	Kind       Kind
	Query      string
	Candidates []Candidate
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%d %s match %q: %s", len(e.Candidates), e.Kind.Plural(), e.Query, FormatCandidates(e.Candidates))
}

func (e *AmbiguousMatchError) Is(target error) bool { return target == ErrAmbiguousMatch }

// NoMatchError reports a name that matched nothing, exactly or fuzzily.
type NoMatchError struct {
	Kind  Kind
	Query string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no %s matches %q", e.Kind, e.Query)
}

func (e *NoMatchError) Is(target error) bool { return target == ErrNoMatch }

// InterpreterError wraps a failure of the external command interpreter.
type InterpreterError struct {
	Err error
}

func (e *InterpreterError) Error() string {
	return fmt.Sprintf("interpreting command: %v", e.Err)
}

func (e *InterpreterError) Unwrap() error { return e.Err }

func (e *InterpreterError) Is(target error) bool { return target == ErrInterpreterFailure }

// FormatCandidates renders candidates as "ID:1(Bin), ID:2(Bin)".
func FormatCandidates(cs []Candidate) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = fmt.Sprintf("ID:%d(%s)", c.ID, c.Name)
	}
	return strings.Join(parts, ", ")
}
