// Package resolver binds free-text names to spaces and items.
//
// Resolution is exact first: a case-insensitive comparison against every
// current name of the requested kind. Only when nothing matches exactly is
// a fuzzy match attempted, and a fuzzy hit is always reported as an
// assumption so callers can surface the substitution.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"qrganizer/internal/inventory"
)

// DefaultThreshold is the minimum similarity accepted for a fuzzy match.
const DefaultThreshold = 0.6

// epsilon absorbs float rounding so a similarity exactly at the threshold
// is accepted.
const epsilon = 1e-9

// Match is a resolved entity.
type Match struct {
	ID    int64
	Name  string
	Query string

	// Fuzzy is set when no exact match existed and Name was substituted for
	// Query. Similarity is 1 for exact matches.
	Fuzzy      bool
	Similarity float64
}

// Assumed returns the note to show the user for a fuzzy match, or "".
func (m *Match) Assumed() string {
	if !m.Fuzzy {
		return ""
	}
	return fmt.Sprintf("(assumed '%s' for '%s')", m.Name, m.Query)
}

// Resolver resolves names against a Hierarchy. It holds no entity state, so
// every lookup sees the data of the transaction it is given.
type Resolver struct {
	threshold float64
	logger    inventory.Logger
}

// New creates a Resolver. A threshold outside (0, 1] falls back to
// DefaultThreshold; a nil logger discards output.
func New(threshold float64, logger inventory.Logger) *Resolver {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = inventory.NewNopLogger()
	}
	return &Resolver{threshold: threshold, logger: logger}
}

// Threshold returns the fuzzy acceptance threshold in use.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// ResolveSpace resolves name to exactly one space.
func (r *Resolver) ResolveSpace(ctx context.Context, h inventory.Hierarchy, name string) (*Match, error) {
	spaces, err := h.ListSpaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading spaces: %w", err)
	}
	cands := make([]inventory.Candidate, len(spaces))
	for i, s := range spaces {
		cands[i] = inventory.Candidate{ID: s.ID, Name: s.Name}
	}
	return r.Resolve(inventory.KindSpace, name, cands)
}

// ResolveItem resolves name to exactly one item.
func (r *Resolver) ResolveItem(ctx context.Context, h inventory.Hierarchy, name string) (*Match, error) {
	items, err := h.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	cands := make([]inventory.Candidate, len(items))
	for i, it := range items {
		cands[i] = inventory.Candidate{ID: it.ID, Name: it.Name}
	}
	return r.Resolve(inventory.KindItem, name, cands)
}

// Resolve picks the candidate that name refers to.
//
// It returns *inventory.AmbiguousMatchError when two or more candidates tie,
// exactly or at the best fuzzy score, and *inventory.NoMatchError when no
// candidate reaches the threshold.
func (r *Resolver) Resolve(kind inventory.Kind, name string, cands []inventory.Candidate) (*Match, error) {
	query := strings.TrimSpace(name)
	if query == "" {
		return nil, &inventory.ValidationError{Field: string(kind) + " name", Reason: "must not be empty"}
	}
	folded := fold(query)

	var exact []inventory.Candidate
	for _, c := range cands {
		if fold(strings.TrimSpace(c.Name)) == folded {
			exact = append(exact, c)
		}
	}
	switch len(exact) {
	case 1:
		return &Match{ID: exact[0].ID, Name: exact[0].Name, Query: query, Similarity: 1}, nil
	case 0:
	default:
		return nil, &inventory.AmbiguousMatchError{Kind: kind, Query: query, Candidates: exact}
	}

	best := -1.0
	var top []inventory.Candidate
	for _, c := range cands {
		s := Similarity(folded, fold(strings.TrimSpace(c.Name)))
		switch {
		case s > best+epsilon:
			best = s
			top = []inventory.Candidate{c}
		case s >= best-epsilon:
			top = append(top, c)
		}
	}

	if len(top) == 0 || best+epsilon < r.threshold {
		return nil, &inventory.NoMatchError{Kind: kind, Query: query}
	}
	if len(top) > 1 {
		return nil, &inventory.AmbiguousMatchError{Kind: kind, Query: query, Candidates: top}
	}

	m := &Match{ID: top[0].ID, Name: top[0].Name, Query: query, Fuzzy: true, Similarity: best}
	r.logger.Info("fuzzy match assumed", "kind", string(kind), "query", query, "name", m.Name, "id", m.ID, "similarity", best)
	return m, nil
}

// Similarity returns 1 - editDistance/maxLen over runes, in [0, 1]. Two
// empty strings are identical.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// fold returns the case-folded form of s. A Caser is not safe for
// concurrent use, so one is built per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
