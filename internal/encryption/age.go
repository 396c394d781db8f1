// Package encryption seals database snapshots before they are sent to a
// vault.
package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"qrganizer/internal/config"
	"qrganizer/internal/inventory"
)

// ErrNotConfigured is returned when a key file is missing.
var ErrNotConfigured = errors.New("encryption keys not generated; run 'qrg config init'")

// AgeSealer seals snapshots to an X25519 recipient. The recipient is kept in
// plaintext; the identity is itself age-encrypted under a passphrase
// (scrypt), so a backup can be made without the passphrase and a restore
// cannot.
type AgeSealer struct {
	publicKeyPath  string
	privateKeyPath string
}

var _ inventory.Sealer = (*AgeSealer)(nil)

func NewAgeSealer(cfg config.EncryptionConfig) *AgeSealer {
	return &AgeSealer{
		publicKeyPath:  cfg.PublicKeyPath,
		privateKeyPath: cfg.PrivateKeyPath,
	}
}

// GenerateKeys writes a fresh key pair. Existing keys are never replaced,
// since every snapshot sealed to them would become unreadable.
func (s *AgeSealer) GenerateKeys(passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase must not be empty")
	}
	for _, p := range []string{s.publicKeyPath, s.privateKeyPath} {
		if _, err := os.Stat(p); err == nil {
			return fmt.Errorf("key file already exists: %s", p)
		}
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return fmt.Errorf("creating key directory: %w", err)
		}
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	var sealed bytes.Buffer
	lock, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating passphrase recipient: %w", err)
	}
	w, err := age.Encrypt(&sealed, lock)
	if err != nil {
		return fmt.Errorf("sealing private key: %w", err)
	}
	if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
		return fmt.Errorf("sealing private key: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("sealing private key: %w", err)
	}

	if err := os.WriteFile(s.privateKeyPath, sealed.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	if err := os.WriteFile(s.publicKeyPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	return nil
}

// Seal encrypts r to the stored recipient.
func (s *AgeSealer) Seal(r io.Reader, w io.Writer) error {
	recipient, err := s.recipient()
	if err != nil {
		return err
	}

	enc, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("starting encryption: %w", err)
	}
	if _, err := io.Copy(enc, r); err != nil {
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finishing encryption: %w", err)
	}
	return nil
}

// Unlock decrypts the identity with passphrase.
func (s *AgeSealer) Unlock(passphrase string) (inventory.Opener, error) {
	sealed, err := os.ReadFile(s.privateKeyPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	key, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating passphrase identity: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(sealed), key)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key (wrong passphrase?): %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(plain))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("private key file holds no identity")
	}
	return &ageOpener{identities: identities}, nil
}

// Ready reports whether both key files exist.
func (s *AgeSealer) Ready() bool {
	for _, p := range []string{s.publicKeyPath, s.privateKeyPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

func (s *AgeSealer) recipient() (age.Recipient, error) {
	data, err := os.ReadFile(s.publicKeyPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	rec, err := age.ParseX25519Recipient(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	return rec, nil
}

type ageOpener struct {
	identities []age.Identity
}

func (o *ageOpener) Open(r io.Reader, w io.Writer) error {
	dec, err := age.Decrypt(r, o.identities...)
	if err != nil {
		return fmt.Errorf("decrypting snapshot: %w", err)
	}
	if _, err := io.Copy(w, dec); err != nil {
		return fmt.Errorf("decrypting snapshot: %w", err)
	}
	return nil
}
