// Package vault stores sealed database snapshots away from the local
// machine.
package vault

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSnapshotNotFound is returned by GetSnapshot for a name never stored.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// checkName rejects snapshot names that could escape the vault layout.
func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid snapshot name %q", name)
	}
	return nil
}
