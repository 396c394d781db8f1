package model

import "time"

// Space is a node in the location hierarchy (room, shelf, bin, ...).
// Depth is 0 for a root space and parent depth + 1 otherwise.
type Space struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parent_id"`
	Depth     int64     `json:"depth"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRoot reports whether the space has no parent.
func (s *Space) IsRoot() bool {
	return s.ParentID == nil
}

// Item is a physical belonging stored in at most one space.
type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	SpaceID     *int64    `json:"space_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SpaceNode is a space together with its child spaces and the items it
// directly owns. Trees of SpaceNodes are built by lookup, never persisted.
type SpaceNode struct {
	Space
	Children []*SpaceNode `json:"children"`
	Items    []*Item      `json:"items"`
}

// CommandRecord is one free-text command and the outcome it produced.
type CommandRecord struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Action    string    `json:"action"`
	Intent    string    `json:"intent"` // raw JSON of the parsed intent
	Outcome   string    `json:"outcome"`
	Status    string    `json:"status"` // "ok", "rejected" or "failed"
	CreatedAt time.Time `json:"created_at"`
}

// SearchHit is a single ranked search result.
type SearchHit struct {
	Kind  string   `json:"kind"` // "space" or "item"
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Path  []string `json:"path"` // names of the enclosing spaces, root first
	Score int      `json:"score"`
}
