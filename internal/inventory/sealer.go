package inventory

import "io"

// Sealer protects snapshots before they leave the machine. Sealing needs
// only public material; opening needs the passphrase-protected private key.
type Sealer interface {
	// GenerateKeys creates the key pair, protecting the private half with
	// passphrase. Called once from `qrg config init`.
	GenerateKeys(passphrase string) error

	// Seal reads plaintext from r and writes sealed bytes to w.
	Seal(r io.Reader, w io.Writer) error

	// Unlock returns an Opener for the duration of one restore.
	Unlock(passphrase string) (Opener, error)

	// Ready reports whether the sealer has the keys it needs.
	Ready() bool
}

// Opener reverses Seal.
type Opener interface {
	Open(r io.Reader, w io.Writer) error
}
