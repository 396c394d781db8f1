package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/qrganizer",
		LogDir:  "/home/user/.local/share/qrganizer/log",
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: "/home/user/.local/share/qrganizer/db",
		},
		Interpreter: InterpreterConfig{
			Type:    "stub",
			Timeout: 3 * time.Second,
			Rules: []StubRule{
				{Text: "put the hammer in the garage", Action: "move_item", ItemName: "hammer", SpaceName: "garage"},
			},
		},
		Resolver: ResolverConfig{FuzzyThreshold: 0.75},
		Server:   ServerConfig{Addr: ":9090", ReadTimeout: 5 * time.Second},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: "/backup/vault"},
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/home/user/.local/share/qrganizer/keys/qrg.pub",
			PrivateKeyPath: "/home/user/.local/share/qrganizer/keys/qrg.key",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.Database.DataDir != original.Database.DataDir {
		t.Errorf("Database.DataDir = %q, want %q", got.Database.DataDir, original.Database.DataDir)
	}
	if got.Interpreter.Type != "stub" {
		t.Errorf("Interpreter.Type = %q, want %q", got.Interpreter.Type, "stub")
	}
	if got.Interpreter.Timeout != 3*time.Second {
		t.Errorf("Interpreter.Timeout = %v, want %v", got.Interpreter.Timeout, 3*time.Second)
	}
	if len(got.Interpreter.Rules) != 1 {
		t.Fatalf("len(Interpreter.Rules) = %d, want 1", len(got.Interpreter.Rules))
	}
	if got.Interpreter.Rules[0].SpaceName != "garage" {
		t.Errorf("Rules[0].SpaceName = %q, want %q", got.Interpreter.Rules[0].SpaceName, "garage")
	}
	if got.Resolver.FuzzyThreshold != 0.75 {
		t.Errorf("Resolver.FuzzyThreshold = %v, want 0.75", got.Resolver.FuzzyThreshold)
	}
	if got.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want %q", got.Server.Addr, ":9090")
	}
	if len(got.Vaults) != 1 {
		t.Fatalf("len(Vaults) = %d, want 1", len(got.Vaults))
	}
	if got.Vaults[0].FSVaultRoot != "/backup/vault" {
		t.Errorf("Vault.FSVaultRoot = %q, want %q", got.Vaults[0].FSVaultRoot, "/backup/vault")
	}
	if got.Encryption.PrivateKeyPath != original.Encryption.PrivateKeyPath {
		t.Errorf("Encryption.PrivateKeyPath = %q, want %q", got.Encryption.PrivateKeyPath, original.Encryption.PrivateKeyPath)
	}
}

func TestManager_Read_FillsDefaults(t *testing.T) {
	m := &Manager{}
	got, err := m.Read(strings.NewReader("[database]\ntype = \"memory\"\n"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.Interpreter.Type != "gemini" {
		t.Errorf("Interpreter.Type = %q, want %q", got.Interpreter.Type, "gemini")
	}
	if got.Interpreter.Timeout != DefaultInterpreterTimeout {
		t.Errorf("Interpreter.Timeout = %v, want %v", got.Interpreter.Timeout, DefaultInterpreterTimeout)
	}
	if got.Resolver.FuzzyThreshold != DefaultFuzzyThreshold {
		t.Errorf("Resolver.FuzzyThreshold = %v, want %v", got.Resolver.FuzzyThreshold, DefaultFuzzyThreshold)
	}
	if got.Encryption.Type != "age" {
		t.Errorf("Encryption.Type = %q, want %q", got.Encryption.Type, "age")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("QRG_DB_DATA_DIR", "/env/db")
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("QRG_INTERPRETER_TIMEOUT", "2s")
	t.Setenv("QRG_SERVER_ADDR", ":7000")
	t.Setenv("QRG_FUZZY_THRESHOLD", "0.8")

	cfg := NewConfig("/data/qrg")
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.Database.DataDir != "/env/db" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/env/db")
	}
	if cfg.Interpreter.APIKey != "secret" {
		t.Errorf("Interpreter.APIKey = %q, want %q", cfg.Interpreter.APIKey, "secret")
	}
	if cfg.Interpreter.Timeout != 2*time.Second {
		t.Errorf("Interpreter.Timeout = %v, want 2s", cfg.Interpreter.Timeout)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, ":7000")
	}
	if cfg.Resolver.FuzzyThreshold != 0.8 {
		t.Errorf("Resolver.FuzzyThreshold = %v, want 0.8", cfg.Resolver.FuzzyThreshold)
	}
}

func TestApplyEnv_UnsetKeepsValues(t *testing.T) {
	for _, k := range []string{"QRG_DB_DATA_DIR", "GEMINI_API_KEY", "QRG_INTERPRETER_TIMEOUT", "QRG_SERVER_ADDR", "QRG_FUZZY_THRESHOLD"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg := NewConfig("/data/qrg")
	cfg.Interpreter.APIKey = "from-file"
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.Database.DataDir != "/data/qrg/db" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/data/qrg/db")
	}
	if cfg.Interpreter.APIKey != "from-file" {
		t.Errorf("Interpreter.APIKey = %q, want %q", cfg.Interpreter.APIKey, "from-file")
	}
	if cfg.Resolver.FuzzyThreshold != DefaultFuzzyThreshold {
		t.Errorf("Resolver.FuzzyThreshold = %v, want %v", cfg.Resolver.FuzzyThreshold, DefaultFuzzyThreshold)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "memory database", mutate: func(c *Config) { c.Database = DatabaseConfig{Type: "memory"} }},
		{name: "threshold of one", mutate: func(c *Config) { c.Resolver.FuzzyThreshold = 1 }},
		{name: "unknown database", mutate: func(c *Config) { c.Database.Type = "postgres" }, wantErr: "database"},
		{name: "sqlite without data_dir", mutate: func(c *Config) { c.Database.DataDir = "" }, wantErr: "data_dir"},
		{name: "unknown interpreter", mutate: func(c *Config) { c.Interpreter.Type = "gpt" }, wantErr: "interpreter"},
		{name: "zero timeout", mutate: func(c *Config) { c.Interpreter.Timeout = 0 }, wantErr: "timeout"},
		{name: "zero threshold", mutate: func(c *Config) { c.Resolver.FuzzyThreshold = 0 }, wantErr: "fuzzy_threshold"},
		{name: "threshold above one", mutate: func(c *Config) { c.Resolver.FuzzyThreshold = 1.2 }, wantErr: "fuzzy_threshold"},
		{name: "unknown vault", mutate: func(c *Config) { c.Vaults[0].Type = "ftp" }, wantErr: "vaults[0]"},
		{name: "unknown encryption", mutate: func(c *Config) { c.Encryption.Type = "rot13" }, wantErr: "encryption"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/data/qrg")
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/qrg")

	if cfg.BaseDir != "/data/qrg" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/qrg")
	}
	if cfg.LogDir != "/data/qrg/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/qrg/log")
	}
	if cfg.Encryption.PublicKeyPath != "/data/qrg/keys/qrg.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", cfg.Encryption.PublicKeyPath, "/data/qrg/keys/qrg.pub")
	}
	if cfg.Interpreter.Timeout != DefaultInterpreterTimeout {
		t.Errorf("Interpreter.Timeout = %v, want %v", cfg.Interpreter.Timeout, DefaultInterpreterTimeout)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "qrganizer.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "qrganizer.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, NewConfig(dir)); err == nil {
			t.Fatal("second Init() expected error")
		}
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		dir := t.TempDir()
		cfg := NewConfig(dir)
		cfg.Resolver.FuzzyThreshold = 2

		if err := Init(filepath.Join(dir, "qrganizer.toml"), cfg); err == nil {
			t.Fatal("Init() expected validation error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		t.Setenv("QRG_SERVER_ADDR", "")
		os.Unsetenv("QRG_SERVER_ADDR")

		dir := t.TempDir()
		path := filepath.Join(dir, "qrganizer.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}
		cfg.Server.Addr = ":8181"

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
		if got.Server.Addr != ":8181" {
			t.Errorf("Server.Addr = %q, want %q", got.Server.Addr, ":8181")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		if _, err := ReadFromFile("/nonexistent/path/qrganizer.toml"); err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
