package database

import (
	"context"
	"database/sql"
	"fmt"

	"qrganizer/internal/database/migrations"
	"qrganizer/internal/database/sqlc"
	"qrganizer/internal/inventory"
	"qrganizer/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements inventory.Database on SQLite.
//
// Connections are opened with _txlock=immediate, so every transaction takes
// the write lock at BEGIN. Structural mutations touching many rows are
// therefore serialized by the engine and never interleave.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
	clock   inventory.Clock
	logger  inventory.Logger
}

// NewSQLiteDatabase opens a SQLite database.
// path can be a file path or ":memory:" for an in-memory database.
// A nil clock or logger falls back to the real clock and a no-op logger.
func NewSQLiteDatabase(path string, clock inventory.Clock, logger inventory.Logger) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	s := NewSQLiteDatabaseFromDB(db, clock, logger)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an existing connection pool.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock inventory.Clock, logger inventory.Logger) *SQLiteDatabase {
	if clock == nil {
		clock = inventory.RealClock{}
	}
	if logger == nil {
		logger = inventory.NewNopLogger()
	}
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		clock:   clock,
		logger:  logger,
	}
}

// OpenConnection opens and configures a SQLite connection pool.
// Foreign keys, busy timeout and immediate transactions are set through the
// DSN so they apply to every pooled connection. In-memory databases are
// limited to one connection because each connection would otherwise see
// its own empty database.
func OpenConnection(path string) (*sql.DB, error) {
	memory := path == ":memory:"

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func dsn(path string) string {
	const params = "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if path == ":memory:" {
		return "file::memory:?" + params
	}
	return "file:" + path + "?" + params + "&_journal_mode=WAL"
}

// Update runs fn in a read-write transaction. A cancelled ctx rolls it back.
func (s *SQLiteDatabase) Update(ctx context.Context, fn func(h inventory.Hierarchy) error) error {
	return s.run(ctx, true, func(h *hierarchy) error { return fn(h) })
}

// View runs fn in a transaction that is always rolled back.
func (s *SQLiteDatabase) View(ctx context.Context, fn func(h inventory.Hierarchy) error) error {
	return s.run(ctx, false, func(h *hierarchy) error { return fn(h) })
}

func (s *SQLiteDatabase) run(ctx context.Context, commit bool, fn func(h *hierarchy) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	h := &hierarchy{q: s.queries.WithTx(tx), clock: s.clock, logger: s.logger}
	if err := fn(h); err != nil {
		return err
	}

	if !commit {
		return nil
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// inTx runs one hierarchy call in its own read-write transaction.
func inTx[T any](ctx context.Context, s *SQLiteDatabase, fn func(h *hierarchy) (T, error)) (T, error) {
	var out T
	err := s.run(ctx, true, func(h *hierarchy) error {
		v, err := fn(h)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// readTx runs one hierarchy call in a rolled-back transaction.
func readTx[T any](ctx context.Context, s *SQLiteDatabase, fn func(h *hierarchy) (T, error)) (T, error) {
	var out T
	err := s.run(ctx, false, func(h *hierarchy) error {
		v, err := fn(h)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Space operations

func (s *SQLiteDatabase) CreateSpace(ctx context.Context, name string, parentID *int64) (*model.Space, error) {
	return inTx(ctx, s, func(h *hierarchy) (*model.Space, error) { return h.CreateSpace(ctx, name, parentID) })
}

func (s *SQLiteDatabase) UpdateSpace(ctx context.Context, id int64, name string) (*model.Space, error) {
	return inTx(ctx, s, func(h *hierarchy) (*model.Space, error) { return h.UpdateSpace(ctx, id, name) })
}

func (s *SQLiteDatabase) ReparentSpace(ctx context.Context, id int64, newParentID *int64) (*model.Space, error) {
	return inTx(ctx, s, func(h *hierarchy) (*model.Space, error) { return h.ReparentSpace(ctx, id, newParentID) })
}

func (s *SQLiteDatabase) DeleteSpace(ctx context.Context, id int64) (*inventory.DeleteResult, error) {
	return inTx(ctx, s, func(h *hierarchy) (*inventory.DeleteResult, error) { return h.DeleteSpace(ctx, id) })
}

func (s *SQLiteDatabase) GetSpace(ctx context.Context, id int64) (*model.Space, error) {
	return readTx(ctx, s, func(h *hierarchy) (*model.Space, error) { return h.GetSpace(ctx, id) })
}

func (s *SQLiteDatabase) ListSpaces(ctx context.Context) ([]*model.Space, error) {
	return readTx(ctx, s, func(h *hierarchy) ([]*model.Space, error) { return h.ListSpaces(ctx) })
}

func (s *SQLiteDatabase) GetPath(ctx context.Context, id int64) ([]*model.Space, error) {
	return readTx(ctx, s, func(h *hierarchy) ([]*model.Space, error) { return h.GetPath(ctx, id) })
}

func (s *SQLiteDatabase) GetSubtree(ctx context.Context, spaceID *int64) ([]*model.SpaceNode, error) {
	return readTx(ctx, s, func(h *hierarchy) ([]*model.SpaceNode, error) { return h.GetSubtree(ctx, spaceID) })
}

func (s *SQLiteDatabase) GetChildren(ctx context.Context, spaceID int64) ([]*model.SpaceNode, error) {
	return readTx(ctx, s, func(h *hierarchy) ([]*model.SpaceNode, error) { return h.GetChildren(ctx, spaceID) })
}

// Item operations

func (s *SQLiteDatabase) CreateItem(ctx context.Context, name string, description *string, spaceID *int64) (*model.Item, error) {
	return inTx(ctx, s, func(h *hierarchy) (*model.Item, error) { return h.CreateItem(ctx, name, description, spaceID) })
}

func (s *SQLiteDatabase) UpdateItem(ctx context.Context, id int64, name string, description *string) (*model.Item, error) {
	return inTx(ctx, s, func(h *hierarchy) (*model.Item, error) { return h.UpdateItem(ctx, id, name, description) })
}

func (s *SQLiteDatabase) MoveItem(ctx context.Context, id int64, spaceID *int64) (*model.Item, error) {
	return inTx(ctx, s, func(h *hierarchy) (*model.Item, error) { return h.MoveItem(ctx, id, spaceID) })
}

func (s *SQLiteDatabase) DeleteItem(ctx context.Context, id int64) error {
	return s.run(ctx, true, func(h *hierarchy) error { return h.DeleteItem(ctx, id) })
}

func (s *SQLiteDatabase) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	return readTx(ctx, s, func(h *hierarchy) (*model.Item, error) { return h.GetItem(ctx, id) })
}

func (s *SQLiteDatabase) ListItems(ctx context.Context) ([]*model.Item, error) {
	return readTx(ctx, s, func(h *hierarchy) ([]*model.Item, error) { return h.ListItems(ctx) })
}

func (s *SQLiteDatabase) ListItemsInSpace(ctx context.Context, spaceID int64) ([]*model.Item, error) {
	return readTx(ctx, s, func(h *hierarchy) ([]*model.Item, error) { return h.ListItemsInSpace(ctx, spaceID) })
}

func (s *SQLiteDatabase) Search(ctx context.Context, query string, limit int) ([]*model.SearchHit, error) {
	return readTx(ctx, s, func(h *hierarchy) ([]*model.SearchHit, error) { return h.Search(ctx, query, limit) })
}

// Command log

func (s *SQLiteDatabase) RecordCommand(ctx context.Context, rec *model.CommandRecord) (*model.CommandRecord, error) {
	return inTx(ctx, s, func(h *hierarchy) (*model.CommandRecord, error) { return h.RecordCommand(ctx, rec) })
}

func (s *SQLiteDatabase) ListCommands(ctx context.Context, limit int) ([]*model.CommandRecord, error) {
	return readTx(ctx, s, func(h *hierarchy) ([]*model.CommandRecord, error) { return h.ListCommands(ctx, limit) })
}

// Revision returns the change counter of spaces and items, 0 for an
// untouched database. Every committed mutation raises it.
func (s *SQLiteDatabase) Revision(ctx context.Context) (int64, error) {
	rev, err := s.queries.GetRevision(ctx)
	if err != nil {
		return 0, fmt.Errorf("getting revision: %w", err)
	}
	return rev, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Migrate applies all pending schema migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements inventory.Database
var _ inventory.Database = (*SQLiteDatabase)(nil)
