package dispatch

import (
	"qrganizer/internal/interpreter"
)

// Status classifies an Outcome.
type Status string

const (
	// StatusOK means the command was carried out.
	StatusOK Status = "ok"
	// StatusRejected means the command was understood but not applied:
	// missing arguments, unresolvable or ambiguous names, a cycle.
	StatusRejected Status = "rejected"
	// StatusFailed means the command could not be interpreted at all.
	StatusFailed Status = "failed"
)

// Outcome is the result of one dispatched command. Message is always set.
type Outcome struct {
	Message string             `json:"message"`
	Action  interpreter.Action `json:"action"`
	Status  Status             `json:"status"`
	Intent  interpreter.Intent `json:"intent"`
}

func ok(in interpreter.Intent, msg string) *Outcome {
	return &Outcome{Message: msg, Action: in.Action, Status: StatusOK, Intent: in}
}

func rejected(in interpreter.Intent, msg string) *Outcome {
	return &Outcome{Message: msg, Action: in.Action, Status: StatusRejected, Intent: in}
}
