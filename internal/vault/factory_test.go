package vault

import (
	"context"
	"path/filepath"
	"testing"

	"qrganizer/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.VaultConfig
		wantErr bool
	}{
		{
			name: "memory vault",
			cfg:  config.VaultConfig{Type: "memory", Name: "mem"},
		},
		{
			name: "filesystem vault",
			cfg:  config.VaultConfig{Type: "filesystem", Name: "fs", FSVaultRoot: filepath.Join(t.TempDir(), "v")},
		},
		{
			name:    "filesystem vault without root",
			cfg:     config.VaultConfig{Type: "filesystem", Name: "fs"},
			wantErr: true,
		},
		{
			name:    "s3 vault without bucket",
			cfg:     config.VaultConfig{Type: "s3", Name: "s3"},
			wantErr: true,
		},
		{
			name:    "unknown vault type",
			cfg:     config.VaultConfig{Type: "ftp", Name: "x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewVaultFromConfig(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVaultFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if err := got.ValidateSetup(context.Background()); err != nil {
				t.Errorf("ValidateSetup() error = %v", err)
			}
		})
	}
}
