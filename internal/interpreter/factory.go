package interpreter

import (
	"context"
	"fmt"

	"qrganizer/internal/config"
	"qrganizer/internal/inventory"
)

// NewFromConfig builds the configured interpreter, already bounded by the
// configured timeout.
func NewFromConfig(ctx context.Context, cfg config.InterpreterConfig, logger inventory.Logger) (Interpreter, error) {
	var next Interpreter
	switch cfg.Type {
	case "gemini":
		g, err := NewGemini(ctx, cfg.APIKey, cfg.Model, logger)
		if err != nil {
			return nil, err
		}
		next = g
	case "stub":
		next = StubFromRules(cfg.Rules)
	default:
		return nil, fmt.Errorf("unknown interpreter type: %s", cfg.Type)
	}
	return WithTimeout(next, cfg.Timeout, logger), nil
}

// StubFromRules builds a Stub from configured rules.
func StubFromRules(rules []config.StubRule) *Stub {
	m := make(map[string]Intent, len(rules))
	for _, r := range rules {
		m[r.Text] = Intent{
			Action:       Action(r.Action),
			ItemName:     r.ItemName,
			SpaceName:    r.SpaceName,
			ExtraDetails: r.ExtraDetails,
		}
	}
	return NewStub(m)
}
