// Package dispatch routes structured intents to hierarchy mutations.
//
// Every intent produces exactly one Outcome with a user-facing message.
// Expected conditions (missing arguments, unresolvable names, ambiguity,
// cycles) are reported through the Outcome; only storage failures and other
// unexpected errors are returned as errors.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"qrganizer/internal/interpreter"
	"qrganizer/internal/inventory"
	"qrganizer/internal/model"
	"qrganizer/internal/resolver"
)

// MessageUnknown is returned for the unknown action.
const MessageUnknown = "I'm not sure how to interpret that command."

// errReject aborts the transaction of a rejected command.
var errReject = errors.New("command rejected")

// Dispatcher binds intent arguments to entities and applies mutations.
type Dispatcher struct {
	db       inventory.Database
	resolver *resolver.Resolver
	interp   interpreter.Interpreter
	logger   inventory.Logger
}

// New creates a Dispatcher. interp may be nil when only Dispatch is used.
func New(db inventory.Database, res *resolver.Resolver, interp interpreter.Interpreter, logger inventory.Logger) *Dispatcher {
	if res == nil {
		res = resolver.New(resolver.DefaultThreshold, logger)
	}
	if logger == nil {
		logger = inventory.NewNopLogger()
	}
	return &Dispatcher{db: db, resolver: res, interp: interp, logger: logger}
}

// Dispatch applies in. Resolution and mutation share one transaction, and
// every name is resolved before anything is written. A rejected command
// rolls the transaction back.
func (d *Dispatcher) Dispatch(ctx context.Context, in interpreter.Intent) (*Outcome, error) {
	if in.Action == interpreter.ActionUnknown || in.Action == "" {
		in.Action = interpreter.ActionUnknown
		return rejected(in, MessageUnknown), nil
	}
	if err := in.Validate(); err != nil {
		d.logger.Warn("unsupported action", "action", string(in.Action), "error", err)
		return rejected(in, MessageUnknown), nil
	}
	if missing := in.Missing(); len(missing) > 0 {
		return rejected(in, missingMessage(in.Action, missing)), nil
	}

	var out *Outcome
	err := d.db.Update(ctx, func(h inventory.Hierarchy) error {
		o, err := d.apply(ctx, h, in)
		if err != nil {
			return err
		}
		out = o
		if o.Status != StatusOK {
			return errReject
		}
		return nil
	})
	if err != nil && !errors.Is(err, errReject) {
		d.logger.Error("dispatch failed", "action", string(in.Action), "error", err)
		return nil, fmt.Errorf("dispatching %s: %w", in.Action, err)
	}

	d.logger.Info("command dispatched", "action", string(in.Action), "status", string(out.Status), "message", out.Message)
	return out, nil
}

// Handle interprets text, dispatches the resulting intent and records the
// command in the command log. Interpreter failures become a failed Outcome.
func (d *Dispatcher) Handle(ctx context.Context, text string) (*Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return rejected(interpreter.Intent{Action: interpreter.ActionUnknown}, "No command given."), nil
	}
	if d.interp == nil {
		return nil, fmt.Errorf("no interpreter configured")
	}

	in, err := d.interp.Interpret(ctx, text)
	var out *Outcome
	switch {
	case errors.Is(err, inventory.ErrInterpreterFailure):
		out = &Outcome{
			Message: "Sorry, the command could not be interpreted right now. Please try again.",
			Action:  interpreter.ActionUnknown,
			Status:  StatusFailed,
			Intent:  interpreter.Intent{Action: interpreter.ActionUnknown},
		}
	case err != nil:
		return nil, fmt.Errorf("interpreting command: %w", err)
	default:
		out, err = d.Dispatch(ctx, in)
		if err != nil {
			d.record(ctx, text, &Outcome{
				Message: "An error occurred: " + err.Error(),
				Action:  in.Action,
				Status:  StatusFailed,
				Intent:  in,
			})
			return nil, err
		}
	}

	d.record(ctx, text, out)
	return out, nil
}

// History returns the most recent recorded commands, newest first.
func (d *Dispatcher) History(ctx context.Context, limit int) ([]*model.CommandRecord, error) {
	return d.db.ListCommands(ctx, limit)
}

func (d *Dispatcher) record(ctx context.Context, text string, out *Outcome) {
	_, err := d.db.RecordCommand(ctx, &model.CommandRecord{
		Text:    text,
		Action:  string(out.Action),
		Intent:  out.Intent.JSON(),
		Outcome: out.Message,
		Status:  string(out.Status),
	})
	if err != nil {
		d.logger.Error("recording command failed", "error", err)
	}
}

func (d *Dispatcher) apply(ctx context.Context, h inventory.Hierarchy, in interpreter.Intent) (*Outcome, error) {
	switch in.Action {
	case interpreter.ActionCreateItem:
		return d.createItem(ctx, h, in)
	case interpreter.ActionMoveItem:
		return d.moveItem(ctx, h, in)
	case interpreter.ActionFindItem:
		return d.findItem(ctx, h, in)
	case interpreter.ActionDeleteItem:
		return d.deleteItem(ctx, h, in)
	case interpreter.ActionCreateSpace:
		return d.createSpace(ctx, h, in)
	case interpreter.ActionCreateNestedSpace:
		return d.createNestedSpace(ctx, h, in)
	case interpreter.ActionDeleteSpace:
		return d.deleteSpace(ctx, h, in)
	case interpreter.ActionMoveSpace:
		return d.moveSpace(ctx, h, in)
	}
	return nil, fmt.Errorf("%w: no handler for %q", inventory.ErrUnsupported, in.Action)
}

func (d *Dispatcher) createItem(ctx context.Context, h inventory.Hierarchy, in interpreter.Intent) (*Outcome, error) {
	var space *resolver.Match
	if strings.TrimSpace(in.SpaceName) != "" {
		m, out, err := d.resolve(ctx, h, in, inventory.KindSpace, in.SpaceName)
		if out != nil || err != nil {
			return out, err
		}
		space = m
	}

	var spaceID *int64
	if space != nil {
		spaceID = &space.ID
	}
	it, err := h.CreateItem(ctx, capitalize(in.ItemName), nil, spaceID)
	if err != nil {
		return d.storeFailure(in, err)
	}

	if space == nil {
		return ok(in, fmt.Sprintf("Item '%s' created", it.Name)), nil
	}
	return ok(in, withNotes(fmt.Sprintf("Item '%s' created, in '%s'", it.Name, space.Name), space)), nil
}

func (d *Dispatcher) moveItem(ctx context.Context, h inventory.Hierarchy, in interpreter.Intent) (*Outcome, error) {
	item, out, err := d.resolve(ctx, h, in, inventory.KindItem, in.ItemName)
	if out != nil || err != nil {
		return out, err
	}
	space, out, err := d.resolve(ctx, h, in, inventory.KindSpace, in.SpaceName)
	if out != nil || err != nil {
		return out, err
	}

	if _, err := h.MoveItem(ctx, item.ID, &space.ID); err != nil {
		return d.storeFailure(in, err)
	}
	return ok(in, withNotes(fmt.Sprintf("Moved '%s' to '%s'", item.Name, space.Name), item, space)), nil
}

func (d *Dispatcher) findItem(ctx context.Context, h inventory.Hierarchy, in interpreter.Intent) (*Outcome, error) {
	m, out, err := d.resolve(ctx, h, in, inventory.KindItem, in.ItemName)
	if out != nil || err != nil {
		return out, err
	}

	it, err := h.GetItem(ctx, m.ID)
	if err != nil {
		return d.storeFailure(in, err)
	}
	if it.SpaceID == nil {
		return ok(in, withNotes(fmt.Sprintf("'%s' is not in any space", it.Name), m)), nil
	}

	path, err := h.GetPath(ctx, *it.SpaceID)
	if err != nil {
		return d.storeFailure(in, err)
	}
	msg := fmt.Sprintf("'%s' is in '%s'", it.Name, path[len(path)-1].Name)
	if len(path) > 1 {
		names := make([]string, len(path))
		for i, s := range path {
			names[i] = s.Name
		}
		msg += " (" + strings.Join(names, " > ") + ")"
	}
	return ok(in, withNotes(msg, m)), nil
}

func (d *Dispatcher) deleteItem(ctx context.Context, h inventory.Hierarchy, in interpreter.Intent) (*Outcome, error) {
	m, out, err := d.resolve(ctx, h, in, inventory.KindItem, in.ItemName)
	if out != nil || err != nil {
		return out, err
	}

	if err := h.DeleteItem(ctx, m.ID); err != nil {
		return d.storeFailure(in, err)
	}
	return ok(in, withNotes(fmt.Sprintf("Item '%s' deleted", m.Name), m)), nil
}

func (d *Dispatcher) createSpace(ctx context.Context, h inventory.Hierarchy, in interpreter.Intent) (*Outcome, error) {
	sp, err := h.CreateSpace(ctx, capitalize(in.SpaceName), nil)
	if err != nil {
		return d.storeFailure(in, err)
	}
	return ok(in, fmt.Sprintf("Space '%s' created", sp.Name)), nil
}

func (d *Dispatcher) createNestedSpace(ctx context.Context, h inventory.Hierarchy, in interpreter.Intent) (*Outcome, error) {
	parent, out, err := d.resolve(ctx, h, in, inventory.KindSpace, in.ExtraDetails)
	if out != nil || err != nil {
		return out, err
	}

	sp, err := h.CreateSpace(ctx, capitalize(in.SpaceName), &parent.ID)
	if err != nil {
		return d.storeFailure(in, err)
	}
	return ok(in, withNotes(fmt.Sprintf("Space '%s' created under '%s'", sp.Name, parent.Name), parent)), nil
}

func (d *Dispatcher) deleteSpace(ctx context.Context, h inventory.Hierarchy, in interpreter.Intent) (*Outcome, error) {
	m, out, err := d.resolve(ctx, h, in, inventory.KindSpace, in.SpaceName)
	if out != nil || err != nil {
		return out, err
	}

	res, err := h.DeleteSpace(ctx, m.ID)
	if err != nil {
		return d.storeFailure(in, err)
	}
	msg := fmt.Sprintf("Space '%s' deleted", m.Name)
	if nested := res.Spaces - 1; nested > 0 || res.Items > 0 {
		msg += fmt.Sprintf(" along with %s and %s", plural(nested, "nested space"), plural(res.Items, "item"))
	}
	return ok(in, withNotes(msg, m)), nil
}

func (d *Dispatcher) moveSpace(ctx context.Context, h inventory.Hierarchy, in interpreter.Intent) (*Outcome, error) {
	space, out, err := d.resolve(ctx, h, in, inventory.KindSpace, in.SpaceName)
	if out != nil || err != nil {
		return out, err
	}
	parent, out, err := d.resolve(ctx, h, in, inventory.KindSpace, in.ExtraDetails)
	if out != nil || err != nil {
		return out, err
	}

	if _, err := h.ReparentSpace(ctx, space.ID, &parent.ID); err != nil {
		var ce *inventory.CycleError
		if errors.As(err, &ce) {
			if space.ID == parent.ID {
				return rejected(in, fmt.Sprintf("Cannot move space '%s' under itself.", space.Name)), nil
			}
			return rejected(in, fmt.Sprintf("Cannot move space '%s' under '%s': '%s' is inside '%s'.",
				space.Name, parent.Name, parent.Name, space.Name)), nil
		}
		return d.storeFailure(in, err)
	}
	return ok(in, withNotes(fmt.Sprintf("Moved space '%s' under '%s'", space.Name, parent.Name), space, parent)), nil
}

// resolve binds name to one entity of kind. Expected resolver failures come
// back as a rejected Outcome.
func (d *Dispatcher) resolve(ctx context.Context, h inventory.Hierarchy, in interpreter.Intent, kind inventory.Kind, name string) (*resolver.Match, *Outcome, error) {
	var (
		m   *resolver.Match
		err error
	)
	if kind == inventory.KindSpace {
		m, err = d.resolver.ResolveSpace(ctx, h, name)
	} else {
		m, err = d.resolver.ResolveItem(ctx, h, name)
	}

	var (
		am *inventory.AmbiguousMatchError
		nm *inventory.NoMatchError
		ve *inventory.ValidationError
	)
	switch {
	case err == nil:
		return m, nil, nil
	case errors.As(err, &am):
		return nil, rejected(in, fmt.Sprintf("Multiple %s named '%s'. Please specify which one: %s",
			kind.Plural(), am.Query, inventory.FormatCandidates(am.Candidates))), nil
	case errors.As(err, &nm):
		return nil, rejected(in, fmt.Sprintf("No %s found named '%s'.", kind, nm.Query)), nil
	case errors.As(err, &ve):
		return nil, rejected(in, fmt.Sprintf("Invalid %s: %s.", ve.Field, ve.Reason)), nil
	}
	return nil, nil, err
}

// storeFailure converts expected store errors to a rejected Outcome and
// passes anything else through.
func (d *Dispatcher) storeFailure(in interpreter.Intent, err error) (*Outcome, error) {
	var (
		nf *inventory.NotFoundError
		ve *inventory.ValidationError
		ce *inventory.CycleError
	)
	switch {
	case errors.As(err, &nf):
		return rejected(in, fmt.Sprintf("%s %d no longer exists.", capitalize(string(nf.Kind)), nf.ID)), nil
	case errors.As(err, &ve):
		return rejected(in, fmt.Sprintf("Invalid %s: %s.", ve.Field, ve.Reason)), nil
	case errors.As(err, &ce):
		return rejected(in, capitalize(ce.Error())+"."), nil
	}
	return nil, err
}

func missingMessage(a interpreter.Action, missing []interpreter.Field) string {
	labels := make([]string, len(missing))
	for i, f := range missing {
		labels[i] = fieldLabel(a, f)
	}
	verb := "is"
	if len(labels) > 1 {
		verb = "are"
	}
	return fmt.Sprintf("%s %s required to %s.", capitalize(strings.Join(labels, " and ")), verb, purposes[a])
}

func fieldLabel(a interpreter.Action, f interpreter.Field) string {
	switch f {
	case interpreter.FieldItemName:
		return "item name"
	case interpreter.FieldSpaceName:
		return "space name"
	case interpreter.FieldExtraDetails:
		if a == interpreter.ActionMoveSpace {
			return "new parent space name"
		}
		return "parent space name"
	}
	return string(f)
}

var purposes = map[interpreter.Action]string{
	interpreter.ActionCreateItem:        "create an item",
	interpreter.ActionMoveItem:          "move an item",
	interpreter.ActionFindItem:          "find an item",
	interpreter.ActionDeleteItem:        "delete an item",
	interpreter.ActionCreateSpace:       "create a space",
	interpreter.ActionCreateNestedSpace: "create a nested space",
	interpreter.ActionDeleteSpace:       "delete a space",
	interpreter.ActionMoveSpace:         "move a space",
}

// withNotes appends the assumption note of every fuzzy match to msg.
func withNotes(msg string, matches ...*resolver.Match) string {
	for _, m := range matches {
		if note := m.Assumed(); note != "" {
			msg += " " + note
		}
	}
	return msg
}

// capitalize upper-cases the first letter of s and trims it.
func capitalize(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
