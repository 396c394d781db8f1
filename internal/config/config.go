package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

const (
	DefaultFuzzyThreshold     = 0.6
	DefaultInterpreterTimeout = 15 * time.Second
	DefaultInterpreterModel   = "gemini-2.0-flash"
	DefaultServerAddr         = "127.0.0.1:8080"
)

// Config represents the main configuration for qrg.
type Config struct {
	BaseDir     string            `toml:"base_dir"`
	LogDir      string            `toml:"log_dir"`
	Database    DatabaseConfig    `toml:"database"`
	Interpreter InterpreterConfig `toml:"interpreter"`
	Resolver    ResolverConfig    `toml:"resolver"`
	Server      ServerConfig      `toml:"server"`
	Vaults      []VaultConfig     `toml:"vaults"`
	Encryption  EncryptionConfig  `toml:"encryption"`
}

// DatabaseConfig represents configuration for the inventory database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// InterpreterConfig selects the backend that turns free text into intents.
type InterpreterConfig struct {
	Type    string        `toml:"type"` // "gemini" or "stub"
	Model   string        `toml:"model,omitempty"`
	APIKey  string        `toml:"api_key,omitempty"`
	Timeout time.Duration `toml:"timeout"`

	// Rules are only used when Type == "stub".
	Rules []StubRule `toml:"rules,omitempty"`
}

// StubRule maps one exact input text to a fixed intent.
type StubRule struct {
	Text         string `toml:"text"`
	Action       string `toml:"action"`
	ItemName     string `toml:"item_name,omitempty"`
	SpaceName    string `toml:"space_name,omitempty"`
	ExtraDetails string `toml:"extra_details,omitempty"`
}

// ResolverConfig tunes name resolution.
type ResolverConfig struct {
	FuzzyThreshold float64 `toml:"fuzzy_threshold"`
}

// ServerConfig holds the REST listener settings.
type ServerConfig struct {
	Addr         string        `toml:"addr"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

// VaultConfig represents configuration for a snapshot vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`
	// S3Endpoint points at an S3-compatible service instead of AWS.
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for snapshots.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "none"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// NewConfig creates a Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Interpreter: InterpreterConfig{
			Type:    "gemini",
			Model:   DefaultInterpreterModel,
			Timeout: DefaultInterpreterTimeout,
		},
		Resolver: ResolverConfig{FuzzyThreshold: DefaultFuzzyThreshold},
		Server: ServerConfig{
			Addr:         DefaultServerAddr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: filepath.Join(baseDir, "vault")},
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "qrg.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "qrg.key"),
		},
	}
}

// applyDefaults fills zero values left by a sparse config file.
func (c *Config) applyDefaults() {
	if c.Interpreter.Type == "" {
		c.Interpreter.Type = "gemini"
	}
	if c.Interpreter.Model == "" {
		c.Interpreter.Model = DefaultInterpreterModel
	}
	if c.Interpreter.Timeout == 0 {
		c.Interpreter.Timeout = DefaultInterpreterTimeout
	}
	if c.Resolver.FuzzyThreshold == 0 {
		c.Resolver.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Encryption.Type == "" {
		c.Encryption.Type = "age"
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite":
		if c.Database.DataDir == "" {
			return fmt.Errorf("database: data_dir required for sqlite")
		}
	case "memory":
	default:
		return fmt.Errorf("database: unknown type %q", c.Database.Type)
	}

	switch c.Interpreter.Type {
	case "gemini", "stub":
	default:
		return fmt.Errorf("interpreter: unknown type %q", c.Interpreter.Type)
	}
	if c.Interpreter.Timeout <= 0 {
		return fmt.Errorf("interpreter: timeout must be positive, got %s", c.Interpreter.Timeout)
	}

	if t := c.Resolver.FuzzyThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("resolver: fuzzy_threshold must be in (0, 1], got %v", t)
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server: timeouts must not be negative")
	}

	for i, v := range c.Vaults {
		switch v.Type {
		case "memory":
		case "filesystem":
			if v.FSVaultRoot == "" {
				return fmt.Errorf("vaults[%d]: fs_vault_root is required", i)
			}
		case "s3":
			if v.S3Bucket == "" {
				return fmt.Errorf("vaults[%d]: s3_bucket is required", i)
			}
		default:
			return fmt.Errorf("vaults[%d]: unknown type %q", i, v.Type)
		}
	}

	switch c.Encryption.Type {
	case "age", "none":
	default:
		return fmt.Errorf("encryption: unknown type %q", c.Encryption.Type)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader, fills defaults and applies
// environment overrides.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// envOverrides lists the settings that can be overridden from the
// environment. It is seeded with the current values so unset variables
// leave them in place.
type envOverrides struct {
	DataDir   string        `env:"QRG_DB_DATA_DIR"`
	APIKey    string        `env:"GEMINI_API_KEY"`
	Timeout   time.Duration `env:"QRG_INTERPRETER_TIMEOUT"`
	Addr      string        `env:"QRG_SERVER_ADDR"`
	Threshold float64       `env:"QRG_FUZZY_THRESHOLD"`
}

// ApplyEnv overrides cfg fields from their environment variables.
func ApplyEnv(cfg *Config) error {
	o := envOverrides{
		DataDir:   cfg.Database.DataDir,
		APIKey:    cfg.Interpreter.APIKey,
		Timeout:   cfg.Interpreter.Timeout,
		Addr:      cfg.Server.Addr,
		Threshold: cfg.Resolver.FuzzyThreshold,
	}
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("reading environment overrides: %w", err)
	}

	cfg.Database.DataDir = o.DataDir
	cfg.Interpreter.APIKey = o.APIKey
	cfg.Interpreter.Timeout = o.Timeout
	cfg.Server.Addr = o.Addr
	cfg.Resolver.FuzzyThreshold = o.Threshold
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
