package interpreter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qrganizer/internal/inventory"
)

// Bounded wraps an Interpreter so every call finishes within a deadline.
// Any failure of the wrapped interpreter, including expiry, is returned as
// *inventory.InterpreterError.
type Bounded struct {
	next    Interpreter
	timeout time.Duration
	logger  inventory.Logger
}

var _ Interpreter = (*Bounded)(nil)

// WithTimeout bounds next by timeout. A non-positive timeout is replaced by
// DefaultTimeout.
func WithTimeout(next Interpreter, timeout time.Duration, logger inventory.Logger) *Bounded {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = inventory.NewNopLogger()
	}
	return &Bounded{next: next, timeout: timeout, logger: logger}
}

// DefaultTimeout bounds a single interpretation when none is configured.
const DefaultTimeout = 15 * time.Second

func (b *Bounded) Interpret(ctx context.Context, text string) (Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type result struct {
		in  Intent
		err error
	}
	done := make(chan result, 1)
	go func() {
		in, err := b.next.Interpret(ctx, text)
		done <- result{in, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			b.logger.Warn("interpreter failed", "error", r.err)
			return Intent{}, &inventory.InterpreterError{Err: r.err}
		}
		return r.in, nil
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no answer within %s: %w", b.timeout, err)
		}
		b.logger.Warn("interpreter timed out", "timeout", b.timeout.String(), "error", err)
		return Intent{}, &inventory.InterpreterError{Err: err}
	}
}
