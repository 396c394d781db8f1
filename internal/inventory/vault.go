package inventory

import (
	"context"
	"io"
)

// Vault stores versioned database snapshots off the local machine.
type Vault interface {
	// PutSnapshot stores the snapshot read from r under name, replacing any
	// previous one. size is the number of bytes that will be read from r.
	// version is recorded alongside for freshness checks.
	PutSnapshot(ctx context.Context, name string, r io.Reader, size int64, version int64) error

	// GetSnapshot writes the stored snapshot for name to w.
	GetSnapshot(ctx context.Context, name string, w io.Writer) error

	// SnapshotVersion returns the version stored with name, or 0 if none.
	SnapshotVersion(ctx context.Context, name string) (int64, error)

	// ValidateSetup verifies that the vault is reachable and writable.
	ValidateSetup(ctx context.Context) error
}
