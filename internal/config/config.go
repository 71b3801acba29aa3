package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Default ContentRegistry deployment on Celo Alfajores.
const (
	DefaultRPCURL          = "https://alfajores-forno.celo-testnet.org"
	DefaultContractAddress = "0x70eb8f655a401064c5f8a45eeed399365b651b82"
	DefaultGatewayURL      = "https://ipfs.io"
	DefaultServerAddr      = "127.0.0.1:8080"
	DefaultMaxContentBytes = 8 << 20
)

// Config represents the main configuration for autolearner.
type Config struct {
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Content  ContentConfig  `toml:"content"`
	Cache    VaultConfig    `toml:"cache"`
	Database DatabaseConfig `toml:"database"`
	Wallet   WalletConfig   `toml:"wallet"`
	Server   ServerConfig   `toml:"server"`
}

// LedgerConfig selects the content registry backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type LedgerConfig struct {
	Type            string `toml:"type"`                       // "celo" or "memory"
	RPCURL          string `toml:"rpc_url,omitempty"`          // only used for type=celo
	ContractAddress string `toml:"contract_address,omitempty"` // only used for type=celo
}

// ContentConfig holds settings for fetching content-addressed payloads.
type ContentConfig struct {
	GatewayURL string `toml:"gateway_url"`
	Timeout    string `toml:"timeout,omitempty"` // Go duration; empty or "0" means no timeout
	MaxBytes   int64  `toml:"max_bytes"`
}

// VaultConfig represents configuration for the content cache.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "none", "memory", "filesystem", "s3" or "redis"
	Name string `toml:"name"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// Redis-specific fields (only used when Type == "redis")
	RedisAddr      string `toml:"redis_addr,omitempty"`
	RedisPassword  string `toml:"redis_password,omitempty"`
	RedisDB        int    `toml:"redis_db,omitempty"`
	RedisKeyPrefix string `toml:"redis_key_prefix,omitempty"`
}

// DatabaseConfig represents configuration for the local submission log.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// WalletConfig holds the key store paths and an optional watch-only address.
type WalletConfig struct {
	AddressPath string `toml:"address_path"`
	KeyPath     string `toml:"key_path"`
	Address     string `toml:"address,omitempty"` // watch-only identity when no key store exists
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// NewConfig creates a new Config with default values rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Ledger: LedgerConfig{
			Type:            "celo",
			RPCURL:          DefaultRPCURL,
			ContractAddress: DefaultContractAddress,
		},
		Content: ContentConfig{
			GatewayURL: DefaultGatewayURL,
			MaxBytes:   DefaultMaxContentBytes,
		},
		Cache: VaultConfig{
			Type:   "filesystem",
			Name:   "local",
			FSRoot: filepath.Join(baseDir, "cache"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Wallet: WalletConfig{
			AddressPath: filepath.Join(baseDir, "keys", "wallet.addr"),
			KeyPath:     filepath.Join(baseDir, "keys", "wallet.key"),
		},
		Server: ServerConfig{
			Addr:           DefaultServerAddr,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
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

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
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

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
