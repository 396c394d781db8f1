package interpreter

import (
	"context"
	"strings"
	"sync"
)

// Stub is a deterministic Interpreter backed by a fixed text-to-intent
// table. Lookups ignore case and surrounding whitespace. Unmapped text
// yields the unknown intent.
type Stub struct {
	mu    sync.RWMutex
	rules map[string]Intent
	calls []string
}

var _ Interpreter = (*Stub)(nil)

// NewStub creates a Stub from rules.
func NewStub(rules map[string]Intent) *Stub {
	s := &Stub{rules: make(map[string]Intent, len(rules))}
	for text, in := range rules {
		s.rules[stubKey(text)] = in
	}
	return s
}

// Set adds or replaces the intent returned for text.
func (s *Stub) Set(text string, in Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[stubKey(text)] = in
}

func (s *Stub) Interpret(ctx context.Context, text string) (Intent, error) {
	if err := ctx.Err(); err != nil {
		return Intent{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, text)
	if in, ok := s.rules[stubKey(text)]; ok {
		return in, nil
	}
	return Intent{Action: ActionUnknown}, nil
}

// Calls returns the texts interpreted so far, oldest first.
func (s *Stub) Calls() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.calls...)
}

func stubKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
