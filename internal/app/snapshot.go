package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"qrganizer/internal/config"
	"qrganizer/internal/database"
	"qrganizer/internal/encryption"
	"qrganizer/internal/inventory"
	"qrganizer/internal/vault"
)

// SnapshotName is the name database snapshots are stored under in a vault.
const SnapshotName = "qrganizer.db"

// ErrLocalAhead is returned by Restore when the local database has changes
// the newest snapshot does not.
var ErrLocalAhead = errors.New("local database has changes not in any vault")

// ErrNothingToBackUp is returned by Backup for a database that has never
// been changed. Vaults report version 0 for a missing snapshot, so such a
// snapshot could not be told apart from none.
var ErrNothingToBackUp = errors.New("database has no changes to back up")

// BackupResult describes an uploaded snapshot.
type BackupResult struct {
	Version int64
	Bytes   int64
	Vaults  []string
}

// Backup snapshots the database, seals it and uploads it to every
// configured vault, versioned with the current revision.
func (a *QRApp) Backup(ctx context.Context) (*BackupResult, error) {
	if len(a.vaults) == 0 {
		return nil, fmt.Errorf("no vaults configured")
	}
	if !a.sealer.Ready() {
		return nil, encryption.ErrNotConfigured
	}

	version, err := a.db.Revision(ctx)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, ErrNothingToBackUp
	}

	dir, err := os.MkdirTemp("", "qrg-backup-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	plain := filepath.Join(dir, "snapshot.db")
	if err := a.db.BackupTo(plain); err != nil {
		return nil, err
	}
	sealed := filepath.Join(dir, "snapshot.sealed")
	size, err := sealFile(a.sealer, plain, sealed)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	names := make([]string, len(a.vaults))
	for i, v := range a.vaults {
		names[i] = a.cfg.Vaults[i].Name
		g.Go(func() error {
			f, err := os.Open(sealed)
			if err != nil {
				return fmt.Errorf("opening sealed snapshot: %w", err)
			}
			defer f.Close()
			if err := v.PutSnapshot(gctx, SnapshotName, f, size, version); err != nil {
				return fmt.Errorf("uploading to vault %q: %w", names[i], err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Error("backup failed", "version", version, "error", err)
		return nil, err
	}

	a.logger.Info("backup uploaded", "version", version, "bytes", size, "vaults", len(names))
	return &BackupResult{Version: version, Bytes: size, Vaults: names}, nil
}

func sealFile(s inventory.Sealer, src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("opening snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("creating sealed snapshot: %w", err)
	}
	if err := s.Seal(in, out); err != nil {
		out.Close()
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("closing sealed snapshot: %w", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return 0, fmt.Errorf("stat sealed snapshot: %w", err)
	}
	return info.Size(), nil
}

// RestoreResult describes a restored snapshot.
type RestoreResult struct {
	Version int64
	Vault   string
	Path    string
}

// Restore replaces the local database file with the newest snapshot found in
// the configured vaults. No QRApp may have the database open. Unless force
// is set, a local database with a higher revision than the snapshot is kept
// and ErrLocalAhead returned.
func Restore(ctx context.Context, cfg *config.Config, passphrase string, force bool, console io.Writer) (*RestoreResult, error) {
	if cfg.Database.Type != "sqlite" {
		return nil, fmt.Errorf("restore needs a sqlite database, not %q", cfg.Database.Type)
	}

	slogger, logFile, err := newLogger(cfg.LogDir, inventory.UUIDGenerator{}.New(), console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	defer logFile.Close()
	logger := &slogAdapter{l: slogger.With("operation", "Restore")}

	src, srcName, version, err := newestSnapshot(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(cfg.Database.DataDir, database.DatabaseFileName)
	if !force {
		local, err := localRevision(ctx, dbPath)
		if err != nil {
			return nil, err
		}
		if local > version {
			return nil, fmt.Errorf("%w (local=%d, vault=%d): use --force to overwrite", ErrLocalAhead, local, version)
		}
	}

	sealer, err := encryption.NewSealerFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating sealer: %w", err)
	}
	opener, err := sealer.Unlock(passphrase)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Database.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	staged, err := download(ctx, src, opener, cfg.Database.DataDir)
	if err != nil {
		return nil, err
	}
	defer removeDB(staged)

	if err := verifySnapshot(staged); err != nil {
		return nil, err
	}

	removeDB(dbPath)
	if err := os.Rename(staged, dbPath); err != nil {
		return nil, fmt.Errorf("replacing database: %w", err)
	}

	logger.Info("database restored", "vault", srcName, "version", version, "path", dbPath)
	return &RestoreResult{Version: version, Vault: srcName, Path: dbPath}, nil
}

// newestSnapshot picks the vault holding the highest snapshot version.
// Version 0 means the vault holds no snapshot.
func newestSnapshot(ctx context.Context, cfg *config.Config) (inventory.Vault, string, int64, error) {
	if len(cfg.Vaults) == 0 {
		return nil, "", 0, fmt.Errorf("no vaults configured")
	}

	var (
		best    inventory.Vault
		name    string
		version int64
	)
	for _, vc := range cfg.Vaults {
		v, err := vault.NewVaultFromConfig(ctx, vc)
		if err != nil {
			return nil, "", 0, fmt.Errorf("creating vault %q: %w", vc.Name, err)
		}
		ver, err := v.SnapshotVersion(ctx, SnapshotName)
		if err != nil {
			return nil, "", 0, fmt.Errorf("checking vault %q: %w", vc.Name, err)
		}
		if ver > version {
			best, name, version = v, vc.Name, ver
		}
	}
	if best == nil {
		return nil, "", 0, fmt.Errorf("%w in any vault", vault.ErrSnapshotNotFound)
	}
	return best, name, version, nil
}

// localRevision returns the revision of the database at path, 0 if there is
// none.
func localRevision(ctx context.Context, path string) (int64, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	db, err := database.NewSQLiteDatabase(path, nil, nil)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	if err := db.CheckMigrations(); err != nil {
		return 0, nil
	}
	return db.Revision(ctx)
}

// download fetches and opens the snapshot into a file in dir, returning its
// path.
func download(ctx context.Context, v inventory.Vault, opener inventory.Opener, dir string) (string, error) {
	sealed, err := os.CreateTemp(dir, ".restore-*.sealed")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(sealed.Name())
	defer sealed.Close()

	if err := v.GetSnapshot(ctx, SnapshotName, sealed); err != nil {
		return "", err
	}
	if _, err := sealed.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding snapshot: %w", err)
	}

	plain, err := os.CreateTemp(dir, ".restore-*.db")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if err := opener.Open(sealed, plain); err != nil {
		plain.Close()
		os.Remove(plain.Name())
		return "", err
	}
	if err := plain.Close(); err != nil {
		os.Remove(plain.Name())
		return "", fmt.Errorf("closing restored snapshot: %w", err)
	}
	return plain.Name(), nil
}

// verifySnapshot opens the staged file as a database and brings its schema
// up to date.
func verifySnapshot(path string) error {
	db, err := database.NewSQLiteDatabase(path, nil, nil)
	if err != nil {
		return fmt.Errorf("snapshot is not a database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating snapshot: %w", err)
	}
	return db.CheckMigrations()
}

// removeDB deletes a database file with its WAL side files.
func removeDB(path string) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		os.Remove(p)
	}
}
