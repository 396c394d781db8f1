// Package interpreter turns free-text commands into structured intents.
//
// Interpreters are untrusted: a backend may return the unknown action, omit
// arguments or produce text that is not JSON at all. Those cases come back
// as ordinary intents. Only a backend that cannot answer, or answers too
// late, yields an error, always matching inventory.ErrInterpreterFailure.
package interpreter

import (
	"context"
)

// Interpreter produces an Intent for one command.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (Intent, error)
}

// Func adapts a function to the Interpreter interface.
type Func func(ctx context.Context, text string) (Intent, error)

func (f Func) Interpret(ctx context.Context, text string) (Intent, error) {
	return f(ctx, text)
}
