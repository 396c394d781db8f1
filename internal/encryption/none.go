package encryption

import (
	"fmt"
	"io"

	"qrganizer/internal/inventory"
)

// NoneSealer passes snapshots through unchanged. It needs no keys and
// accepts any passphrase.
type NoneSealer struct{}

var _ inventory.Sealer = NoneSealer{}

func (NoneSealer) GenerateKeys(string) error { return nil }

func (NoneSealer) Seal(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying snapshot: %w", err)
	}
	return nil
}

func (NoneSealer) Unlock(string) (inventory.Opener, error) { return noneOpener{}, nil }

func (NoneSealer) Ready() bool { return true }

type noneOpener struct{}

func (noneOpener) Open(r io.Reader, w io.Writer) error {
	return NoneSealer{}.Seal(r, w)
}
