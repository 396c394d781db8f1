package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"qrganizer/internal/inventory"
)

// FileSystemVault stores snapshots as files:
//
//	<root>/
//	  snapshots/
//	    <name>          (sealed snapshot)
//	    <name>.version  (decimal version marker)
type FileSystemVault struct {
	name string
	root string
	dir  string
}

var _ inventory.Vault = (*FileSystemVault)(nil)

// NewFileSystemVault creates the vault directory layout under root.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	dir := filepath.Join(root, "snapshots")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating vault directory: %w", err)
	}
	return &FileSystemVault{name: name, root: root, dir: dir}, nil
}

// PutSnapshot writes the snapshot atomically, then its version marker.
func (v *FileSystemVault) PutSnapshot(ctx context.Context, name string, r io.Reader, size int64, version int64) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := v.writeFile(filepath.Join(v.dir, name), r, size); err != nil {
		return err
	}
	marker := strings.NewReader(strconv.FormatInt(version, 10))
	return v.writeFile(filepath.Join(v.dir, name+".version"), marker, marker.Size())
}

func (v *FileSystemVault) GetSnapshot(ctx context.Context, name string, w io.Writer) error {
	if err := checkName(name); err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(v.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	return nil
}

// SnapshotVersion returns 0 when no version marker exists.
func (v *FileSystemVault) SnapshotVersion(ctx context.Context, name string) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	data, err := os.ReadFile(filepath.Join(v.dir, name+".version"))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading version marker: %w", err)
	}
	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version marker: %w", err)
	}
	return version, nil
}

// ValidateSetup checks that the snapshot directory exists and accepts writes.
func (v *FileSystemVault) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(v.dir)
	if err != nil {
		return fmt.Errorf("vault directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault path is not a directory: %s", v.dir)
	}
	probe, err := os.CreateTemp(v.dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("vault directory not writable: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

// writeFile copies r to destPath through a temp file and rename.
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
