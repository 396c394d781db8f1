package encryption

import (
	"fmt"

	"qrganizer/internal/config"
	"qrganizer/internal/inventory"
)

// NewSealerFromConfig creates a Sealer based on the configuration type.
func NewSealerFromConfig(cfg config.EncryptionConfig) (inventory.Sealer, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeSealer(cfg), nil
	case "none":
		return NoneSealer{}, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
