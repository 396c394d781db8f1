package interpreter

import (
	"encoding/json"
	"fmt"
	"strings"

	"qrganizer/internal/inventory"
)

// Action is the discriminant of an Intent.
type Action string

const (
	ActionCreateItem        Action = "create_item"
	ActionMoveItem          Action = "move_item"
	ActionFindItem          Action = "find_item"
	ActionDeleteItem        Action = "delete_item"
	ActionCreateSpace       Action = "create_space"
	ActionCreateNestedSpace Action = "create_nested_space"
	ActionDeleteSpace       Action = "delete_space"
	ActionMoveSpace         Action = "move_space"
	ActionUnknown           Action = "unknown"
)

// Field names an Intent argument.
type Field string

const (
	FieldItemName     Field = "item_name"
	FieldSpaceName    Field = "space_name"
	FieldExtraDetails Field = "extra_details"
)

// required lists the arguments each known action cannot do without.
var required = map[Action][]Field{
	ActionCreateItem:        {FieldItemName},
	ActionMoveItem:          {FieldItemName, FieldSpaceName},
	ActionFindItem:          {FieldItemName},
	ActionDeleteItem:        {FieldItemName},
	ActionCreateSpace:       {FieldSpaceName},
	ActionCreateNestedSpace: {FieldSpaceName, FieldExtraDetails},
	ActionDeleteSpace:       {FieldSpaceName},
	ActionMoveSpace:         {FieldSpaceName, FieldExtraDetails},
	ActionUnknown:           nil,
}

// Actions returns every action tag in the closed set, unknown last.
func Actions() []Action {
	return []Action{
		ActionCreateItem, ActionMoveItem, ActionFindItem, ActionDeleteItem,
		ActionCreateSpace, ActionCreateNestedSpace, ActionDeleteSpace, ActionMoveSpace,
		ActionUnknown,
	}
}

// Known reports whether a is in the closed action set.
func (a Action) Known() bool {
	_, ok := required[a]
	return ok
}

// Validate rejects an action tag outside the closed set with an error
// matching inventory.ErrUnsupported.
func (in Intent) Validate() error {
	if !in.Action.Known() {
		return fmt.Errorf("%w: %q", inventory.ErrUnsupported, in.Action)
	}
	return nil
}

// Intent is the structured form of a free-text command.
// For create_nested_space and move_space, ExtraDetails names the parent.
type Intent struct {
	Action       Action `json:"action"`
	ItemName     string `json:"item_name,omitempty"`
	SpaceName    string `json:"space_name,omitempty"`
	ExtraDetails string `json:"extra_details,omitempty"`
}

// Arg returns the value of f.
func (in Intent) Arg(f Field) string {
	switch f {
	case FieldItemName:
		return in.ItemName
	case FieldSpaceName:
		return in.SpaceName
	case FieldExtraDetails:
		return in.ExtraDetails
	}
	return ""
}

// Missing returns the required arguments of the intent's action that are
// blank. Unknown actions have no requirements.
func (in Intent) Missing() []Field {
	var out []Field
	for _, f := range required[in.Action] {
		if strings.TrimSpace(in.Arg(f)) == "" {
			out = append(out, f)
		}
	}
	return out
}

// JSON returns the intent encoded the way it is logged.
func (in Intent) JSON() string {
	b, err := json.Marshal(in)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// aliases maps the argument keys accepted from interpreter output.
var aliases = map[string]Field{
	"item_name":     FieldItemName,
	"itemname":      FieldItemName,
	"item":          FieldItemName,
	"space_name":    FieldSpaceName,
	"spacename":     FieldSpaceName,
	"space":         FieldSpaceName,
	"extra_details": FieldExtraDetails,
	"extradetails":  FieldExtraDetails,
	"parent":        FieldExtraDetails,
	"parent_name":   FieldExtraDetails,
}

// ParseIntent decodes interpreter output. It never fails: missing keys are
// left blank, unknown keys and non-string values are ignored, and anything
// that is not a JSON object becomes ActionUnknown with the raw text kept in
// ExtraDetails. Action tags outside the closed set are kept verbatim.
func ParseIntent(raw string) Intent {
	body := extractObject(raw)

	var obj map[string]any
	if body == "" || json.Unmarshal([]byte(body), &obj) != nil {
		return Intent{Action: ActionUnknown, ExtraDetails: strings.TrimSpace(raw)}
	}

	var in Intent
	canonical := make(map[Field]bool)
	for k, v := range obj {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "action" {
			in.Action = Action(strings.ToLower(s))
			continue
		}
		f, ok := aliases[key]
		if !ok || canonical[f] {
			continue
		}
		// The canonical key wins over any alias for the same field.
		canonical[f] = key == string(f)
		switch f {
		case FieldItemName:
			in.ItemName = s
		case FieldSpaceName:
			in.SpaceName = s
		case FieldExtraDetails:
			in.ExtraDetails = s
		}
	}
	if in.Action == "" {
		in.Action = ActionUnknown
	}
	return in
}

// extractObject returns the outermost {...} span of s, dropping markdown
// code fences and chatter around it.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
