package inventory

import (
	"context"

	"qrganizer/internal/model"
)

// DeleteResult counts the rows removed by a cascading space delete.
type DeleteResult struct {
	Spaces int
	Items  int
}

// Hierarchy is the Hierarchy Store: the sole owner of structural mutation.
// Every mutation either fully applies or leaves state unchanged. Missing
// entities are reported as *NotFoundError, reparent loops as *CycleError.
type Hierarchy interface {
	// Space operations

	// CreateSpace inserts a space under parentID (nil for a root space).
	// Depth is derived from the parent.
	CreateSpace(ctx context.Context, name string, parentID *int64) (*model.Space, error)

	// UpdateSpace renames a space.
	UpdateSpace(ctx context.Context, id int64, name string) (*model.Space, error)

	// ReparentSpace moves a space under newParentID (nil makes it a root) and
	// recomputes the depth of the whole moved subtree.
	ReparentSpace(ctx context.Context, id int64, newParentID *int64) (*model.Space, error)

	// DeleteSpace removes a space, every descendant space and every item
	// owned by any of them.
	DeleteSpace(ctx context.Context, id int64) (*DeleteResult, error)

	GetSpace(ctx context.Context, id int64) (*model.Space, error)
	ListSpaces(ctx context.Context) ([]*model.Space, error)

	// GetPath returns the ancestor chain of a space, root first, ending with
	// the space itself.
	GetPath(ctx context.Context, id int64) ([]*model.Space, error)

	// GetSubtree returns the nested tree rooted at spaceID, or all root trees
	// when spaceID is nil.
	GetSubtree(ctx context.Context, spaceID *int64) ([]*model.SpaceNode, error)

	// GetChildren returns the direct children of a space with their own
	// items and no further nesting.
	GetChildren(ctx context.Context, spaceID int64) ([]*model.SpaceNode, error)

	// Item operations

	// CreateItem inserts an item into spaceID (nil for no space).
	CreateItem(ctx context.Context, name string, description *string, spaceID *int64) (*model.Item, error)

	// UpdateItem replaces an item's name and description.
	UpdateItem(ctx context.Context, id int64, name string, description *string) (*model.Item, error)

	// MoveItem reassigns an item to spaceID (nil removes it from any space).
	MoveItem(ctx context.Context, id int64, spaceID *int64) (*model.Item, error)

	DeleteItem(ctx context.Context, id int64) error
	GetItem(ctx context.Context, id int64) (*model.Item, error)
	ListItems(ctx context.Context) ([]*model.Item, error)

	// ListItemsInSpace returns the items directly owned by a space.
	ListItemsInSpace(ctx context.Context, spaceID int64) ([]*model.Item, error)

	// Search ranks spaces and items whose names fuzzily contain query.
	Search(ctx context.Context, query string, limit int) ([]*model.SearchHit, error)

	// Command log

	RecordCommand(ctx context.Context, rec *model.CommandRecord) (*model.CommandRecord, error)
	ListCommands(ctx context.Context, limit int) ([]*model.CommandRecord, error)
}

// Database is a Hierarchy backed by durable storage. Methods called directly
// on a Database each run in their own transaction; Update and View scope
// several calls to one transaction.
type Database interface {
	Hierarchy

	// Update runs fn inside a read-write transaction, committing when fn
	// returns nil and rolling back otherwise (including on ctx cancellation).
	Update(ctx context.Context, fn func(h Hierarchy) error) error

	// View runs fn inside a transaction that is always rolled back.
	View(ctx context.Context, fn func(h Hierarchy) error) error

	// Revision returns a counter raised by every committed change to
	// spaces or items. Snapshots are versioned with it.
	Revision(ctx context.Context) (int64, error)

	// Migrate applies pending schema migrations.
	Migrate() error

	// CheckMigrations verifies the schema is at the latest version.
	CheckMigrations() error

	// BackupTo writes a consistent copy of the database to destPath.
	BackupTo(destPath string) error

	// Path returns the database file path (":memory:" for in-memory).
	Path() string

	Close() error
}
