package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"qrganizer/internal/config"
	"qrganizer/internal/database"
	"qrganizer/internal/dispatch"
	"qrganizer/internal/encryption"
	"qrganizer/internal/interpreter"
	"qrganizer/internal/inventory"
	"qrganizer/internal/model"
	"qrganizer/internal/resolver"
	"qrganizer/internal/vault"
)

// ErrBehindVault is returned when a vault holds a newer snapshot than the
// local database.
var ErrBehindVault = errors.New("local database is behind the vault")

// ErrUnconfirmedMatch is returned when a destructive operation would act on
// a fuzzy name match the caller has not confirmed.
var ErrUnconfirmedMatch = errors.New("fuzzy match not confirmed")

// QRApp is the application layer between the CLI (or HTTP server) and the
// inventory core. It constructs all dependencies from config, exposes
// name-or-id based operations and closes the database on Close.
type QRApp struct {
	cfg      *config.Config
	db       *database.SQLiteDatabase
	vaults   []inventory.Vault
	sealer   inventory.Sealer
	resolver *resolver.Resolver
	logger   inventory.Logger
	logFile  *os.File
	notices  io.Writer
	opID     string

	mu         sync.Mutex
	interp     interpreter.Interpreter
	dispatcher *dispatch.Dispatcher
}

// Options tune NewQRApp. The zero value is ready for the CLI.
type Options struct {
	// Console receives warnings and errors in addition to the log file.
	Console io.Writer
	// Notices receives one line per name that was resolved by fuzzy
	// match, naming the substitution. Defaults to io.Discard.
	Notices io.Writer
	// Interpreter replaces the configured one.
	Interpreter interpreter.Interpreter
	// IDs generates the operation id; defaults to UUIDs.
	IDs inventory.IDGenerator
	// SkipVaultCheck skips comparing the local revision with the vaults.
	SkipVaultCheck bool
}

// NewQRApp creates a fully wired QRApp from the given config.
// operation identifies the command being run (e.g. "SpaceAdd", "Serve").
// Pending migrations are applied. The caller must call Close when done.
func NewQRApp(ctx context.Context, cfg *config.Config, operation string, opts Options) (*QRApp, error) {
	if opts.IDs == nil {
		opts.IDs = inventory.UUIDGenerator{}
	}
	opID := opts.IDs.New()

	slogger, logFile, err := newLogger(cfg.LogDir, opID, opts.Console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With("operation", operation)}

	if opts.Notices == nil {
		opts.Notices = io.Discard
	}
	a := &QRApp{cfg: cfg, logger: logger, logFile: logFile, notices: opts.Notices, opID: opID, interp: opts.Interpreter}
	if err := a.open(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	logger.Debug("application ready", "database", a.db.Path(), "vaults", len(a.vaults))
	return a, nil
}

func (a *QRApp) open(ctx context.Context, opts Options) error {
	db, err := database.NewDatabaseFromConfig(a.cfg.Database, inventory.RealClock{}, a.logger)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	a.db = db

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("database schema out of date: %w", err)
	}

	for _, vc := range a.cfg.Vaults {
		v, err := vault.NewVaultFromConfig(ctx, vc)
		if err != nil {
			return fmt.Errorf("creating vault %q: %w", vc.Name, err)
		}
		a.vaults = append(a.vaults, v)
	}

	sealer, err := encryption.NewSealerFromConfig(a.cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating sealer: %w", err)
	}
	a.sealer = sealer

	a.resolver = resolver.New(a.cfg.Resolver.FuzzyThreshold, a.logger)

	if !opts.SkipVaultCheck {
		if err := a.checkVaults(ctx); err != nil {
			return err
		}
	}
	return nil
}

// checkVaults refuses to work on a local database older than the newest
// snapshot, since writing to it would fork the history.
func (a *QRApp) checkVaults(ctx context.Context) error {
	local, err := a.db.Revision(ctx)
	if err != nil {
		return fmt.Errorf("checking local revision: %w", err)
	}
	for i, v := range a.vaults {
		remote, err := v.SnapshotVersion(ctx, SnapshotName)
		if err != nil {
			return fmt.Errorf("checking vault %q: %w", a.cfg.Vaults[i].Name, err)
		}
		if remote > local {
			return fmt.Errorf("%w %q (local=%d, vault=%d): run 'qrg restore'",
				ErrBehindVault, a.cfg.Vaults[i].Name, local, remote)
		}
	}
	return nil
}

// DB returns the underlying database.
func (a *QRApp) DB() inventory.Database { return a.db }

// Logger returns the application logger.
func (a *QRApp) Logger() inventory.Logger { return a.logger }

// OperationID returns the id tagging this run's log lines.
func (a *QRApp) OperationID() string { return a.opID }

// Dispatcher returns the command dispatcher, building the interpreter on
// first use so commands that never interpret text need no API key.
func (a *QRApp) Dispatcher(ctx context.Context) (*dispatch.Dispatcher, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dispatcher != nil {
		return a.dispatcher, nil
	}
	if a.interp == nil {
		in, err := interpreter.NewFromConfig(ctx, a.cfg.Interpreter, a.logger)
		if err != nil {
			return nil, fmt.Errorf("creating interpreter: %w", err)
		}
		a.interp = in
	}
	a.dispatcher = dispatch.New(a.db, a.resolver, a.interp, a.logger)
	return a.dispatcher, nil
}

// Say interprets and applies one free-text command.
func (a *QRApp) Say(ctx context.Context, text string) (*dispatch.Outcome, error) {
	d, err := a.Dispatcher(ctx)
	if err != nil {
		return nil, err
	}
	return d.Handle(ctx, text)
}

// History returns the most recent free-text commands, newest first.
func (a *QRApp) History(ctx context.Context, limit int) ([]*model.CommandRecord, error) {
	return a.db.ListCommands(ctx, limit)
}

// Spaces

// AddSpace creates a space, under parentRef when it is not empty.
func (a *QRApp) AddSpace(ctx context.Context, name, parentRef string) (*model.Space, error) {
	var sp *model.Space
	err := a.db.Update(ctx, func(h inventory.Hierarchy) error {
		var parentID *int64
		if parentRef != "" {
			m, err := a.spaceRef(ctx, h, parentRef)
			if err != nil {
				return err
			}
			parentID = &m.ID
		}
		var err error
		sp, err = h.CreateSpace(ctx, name, parentID)
		return err
	})
	return sp, err
}

// RenameSpace renames the space ref points to.
func (a *QRApp) RenameSpace(ctx context.Context, ref, name string) (*model.Space, error) {
	var sp *model.Space
	err := a.db.Update(ctx, func(h inventory.Hierarchy) error {
		m, err := a.spaceRef(ctx, h, ref)
		if err != nil {
			return err
		}
		sp, err = h.UpdateSpace(ctx, m.ID, name)
		return err
	})
	return sp, err
}

// MoveSpace reparents ref under parentRef, or makes it a root when
// parentRef is empty.
func (a *QRApp) MoveSpace(ctx context.Context, ref, parentRef string) (*model.Space, error) {
	var sp *model.Space
	err := a.db.Update(ctx, func(h inventory.Hierarchy) error {
		m, err := a.spaceRef(ctx, h, ref)
		if err != nil {
			return err
		}
		var parentID *int64
		if parentRef != "" {
			pm, err := a.spaceRef(ctx, h, parentRef)
			if err != nil {
				return err
			}
			parentID = &p.ID
		}
		sp, err = h.ReparentSpace(ctx, m.ID, parentID)
		return err
	})
	return sp, err
}

// RemoveSpace deletes ref with its whole subtree. A name resolved by fuzzy
// match is refused with ErrUnconfirmedMatch unless confirmed is set.
func (a *QRApp) RemoveSpace(ctx context.Context, ref string, confirmed bool) (*model.Space, *inventory.DeleteResult, error) {
	var (
		sp  *model.Space
		res *inventory.DeleteResult
	)
	err := a.db.Update(ctx, func(h inventory.Hierarchy) error {
		m, err := a.spaceRef(ctx, h, ref)
		if err != nil {
			return err
		}
		if err := confirm(m, confirmed); err != nil {
			return err
		}
		if sp, err = h.GetSpace(ctx, m.ID); err != nil {
			return err
		}
		res, err = h.DeleteSpace(ctx, m.ID)
		return err
	})
	return sp, res, err
}

// Tree returns all root trees, or the subtree of ref when it is not empty.
func (a *QRApp) Tree(ctx context.Context, ref string) ([]*model.SpaceNode, error) {
	var tree []*model.SpaceNode
	err := a.db.View(ctx, func(h inventory.Hierarchy) error {
		var root *int64
		if ref != "" {
			m, err := a.spaceRef(ctx, h, ref)
			if err != nil {
				return err
			}
			root = &m.ID
		}
		var err error
		tree, err = h.GetSubtree(ctx, root)
		return err
	})
	return tree, err
}

// Children returns the direct children of ref.
func (a *QRApp) Children(ctx context.Context, ref string) ([]*model.SpaceNode, error) {
	var out []*model.SpaceNode
	err := a.db.View(ctx, func(h inventory.Hierarchy) error {
		m, err := a.spaceRef(ctx, h, ref)
		if err != nil {
			return err
		}
		out, err = h.GetChildren(ctx, m.ID)
		return err
	})
	return out, err
}

// Items

// AddItem creates an item, in spaceRef when it is not empty.
func (a *QRApp) AddItem(ctx context.Context, name string, description *string, spaceRef string) (*model.Item, error) {
	var it *model.Item
	err := a.db.Update(ctx, func(h inventory.Hierarchy) error {
		var spaceID *int64
		if spaceRef != "" {
			m, err := a.spaceRef(ctx, h, spaceRef)
			if err != nil {
				return err
			}
			spaceID = &m.ID
		}
		var err error
		it, err = h.CreateItem(ctx, name, description, spaceID)
		return err
	})
	return it, err
}

// ListItems lists every item, or only those in spaceRef.
func (a *QRApp) ListItems(ctx context.Context, spaceRef string) ([]*model.Item, error) {
	var items []*model.Item
	err := a.db.View(ctx, func(h inventory.Hierarchy) error {
		var err error
		if spaceRef == "" {
			items, err = h.ListItems(ctx)
			return err
		}
		m, err := a.spaceRef(ctx, h, spaceRef)
		if err != nil {
			return err
		}
		items, err = h.ListItemsInSpace(ctx, m.ID)
		return err
	})
	return items, err
}

// UpdateItem renames ref. A nil description keeps the current one.
func (a *QRApp) UpdateItem(ctx context.Context, ref, name string, description *string) (*model.Item, error) {
	var it *model.Item
	err := a.db.Update(ctx, func(h inventory.Hierarchy) error {
		m, err := a.itemRef(ctx, h, ref)
		if err != nil {
			return err
		}
		if description == nil {
			cur, err := h.GetItem(ctx, m.ID)
			if err != nil {
				return err
			}
			description = cur.Description
		}
		it, err = h.UpdateItem(ctx, m.ID, name, description)
		return err
	})
	return it, err
}

// MoveItem puts ref into spaceRef, or out of every space when spaceRef is
// empty.
func (a *QRApp) MoveItem(ctx context.Context, ref, spaceRef string) (*model.Item, error) {
	var it *model.Item
	err := a.db.Update(ctx, func(h inventory.Hierarchy) error {
		m, err := a.itemRef(ctx, h, ref)
		if err != nil {
			return err
		}
		var spaceID *int64
		if spaceRef != "" {
			sm, err := a.spaceRef(ctx, h, spaceRef)
			if err != nil {
				return err
			}
			spaceID = &s.ID
		}
		it, err = h.MoveItem(ctx, m.ID, spaceID)
		return err
	})
	return it, err
}

// RemoveItem deletes ref. Like RemoveSpace, a fuzzy match needs confirmed.
func (a *QRApp) RemoveItem(ctx context.Context, ref string, confirmed bool) (*model.Item, error) {
	var it *model.Item
	err := a.db.Update(ctx, func(h inventory.Hierarchy) error {
		m, err := a.itemRef(ctx, h, ref)
		if err != nil {
			return err
		}
		if err := confirm(m, confirmed); err != nil {
			return err
		}
		if it, err = h.GetItem(ctx, m.ID); err != nil {
			return err
		}
		return h.DeleteItem(ctx, m.ID)
	})
	return it, err
}

// Search ranks spaces and items against query.
func (a *QRApp) Search(ctx context.Context, query string, limit int) ([]*model.SearchHit, error) {
	return a.db.Search(ctx, query, limit)
}

// spaceRef turns a CLI reference into a space: "#3" is an id, anything
// else (including a bare "2024") is a name for the resolver. Fuzzy
// substitutions are written to the notices writer.
func (a *QRApp) spaceRef(ctx context.Context, h inventory.Hierarchy, ref string) (*resolver.Match, error) {
	if id, ok := parseRef(ref); ok {
		return &resolver.Match{ID: id, Query: ref, Similarity: 1}, nil
	}
	m, err := a.resolver.ResolveSpace(ctx, h, ref)
	if err != nil {
		return nil, err
	}
	a.notify(m)
	return m, nil
}

func (a *QRApp) itemRef(ctx context.Context, h inventory.Hierarchy, ref string) (*resolver.Match, error) {
	if id, ok := parseRef(ref); ok {
		return &resolver.Match{ID: id, Query: ref, Similarity: 1}, nil
	}
	m, err := a.resolver.ResolveItem(ctx, h, ref)
	if err != nil {
		return nil, err
	}
	a.notify(m)
	return m, nil
}

func (a *QRApp) notify(m *resolver.Match) {
	if !m.Fuzzy {
		return
	}
	fmt.Fprintf(a.notices, "Assumed '%s' for '%s'\n", m.Name, m.Query)
}

// confirm refuses a fuzzy match unless the caller confirmed it.
func confirm(m *resolver.Match, confirmed bool) error {
	if !m.Fuzzy || confirmed {
		return nil
	}
	return fmt.Errorf("%w: '%s' only approximately matches '%s'", ErrUnconfirmedMatch, m.Query, m.Name)
}

// parseRef accepts "#N" as an id reference.
func parseRef(ref string) (int64, bool) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, "#") {
		return 0, false
	}
	id, err := strconv.ParseInt(ref[1:], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Close closes the database and the log file.
func (a *QRApp) Close() error {
	var firstErr error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
