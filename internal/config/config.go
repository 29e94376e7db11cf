package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Server    *ServerConfig    `yaml:"server"`
	Tokenizer *TokenizerConfig `yaml:"tokenizer"`
	Pin       *PinConfig       `yaml:"pin,omitempty"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Bind           string   `yaml:"bind"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// TokenizerConfig controls tokenizer resolution and loading
type TokenizerConfig struct {
	// LocalDir is checked for a tokenizer.json artifact before any remote
	// repository is considered.
	LocalDir string `yaml:"localDir"`
	// DefaultRepo is used when no local artifact exists and the caller
	// supplies no override.
	DefaultRepo string `yaml:"defaultRepo"`
	// LocalOnly forbids network access during loading.
	LocalOnly bool `yaml:"localOnly"`
	// CacheDir holds artifacts downloaded from the hub. Empty means the
	// hub package's default cache location.
	CacheDir string `yaml:"cacheDir,omitempty"`
	// Endpoint overrides the hub base URL, mostly for tests.
	Endpoint string `yaml:"endpoint,omitempty"`
	// AuthToken authenticates hub downloads of gated repositories.
	AuthToken string `yaml:"authToken,omitempty"`
}

// PinConfig contains pinning proxy settings
type PinConfig struct {
	Bind           string                  `yaml:"bind"`
	Port           int                     `yaml:"port"`
	Provider       string                  `yaml:"provider"`
	Providers      map[string]*PinProvider `yaml:"providers,omitempty"`
	AllowedOrigins []string                `yaml:"allowedOrigins,omitempty"`
}

// PinProvider describes one upstream pinning endpoint. Uploads are forwarded
// verbatim; only the location of the CID in the reply differs per provider.
type PinProvider struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token,omitempty"`
	// Gateway is the public gateway base used to build gateway_url.
	Gateway string `yaml:"gateway,omitempty"`
	// CIDField names the JSON field carrying the CID in the upstream reply.
	// Defaults to "cid".
	CIDField string `yaml:"cidField,omitempty"`
}

// LoadConfig loads configuration from file, falling back to defaults when the
// file does not exist, and applies environment overrides afterwards.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(config)
	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerConfig{
			Bind: "127.0.0.1",
			Port: 8010,
			AllowedOrigins: []string{
				"http://127.0.0.1:8000",
				"http://localhost:8000",
				"*",
			},
		},
		Tokenizer: &TokenizerConfig{
			LocalDir:    "assets/qwen-tokenizer",
			DefaultRepo: "Qwen/Qwen2.5-3B-Instruct",
			LocalOnly:   false,
		},
		Pin: &PinConfig{
			Bind: "127.0.0.1",
			Port: 8011,
		},
	}
}

// applyEnv overrides file/default values with process environment variables.
// Variable names match the original deployment scripts.
func applyEnv(config *Config) {
	if v := os.Getenv("LOCAL_TOKENIZER_DIR"); v != "" {
		config.Tokenizer.LocalDir = v
	}
	if v := os.Getenv("LOCAL_ONLY"); v != "" {
		config.Tokenizer.LocalOnly = v == "1" || v == "true"
	}
	if v := os.Getenv("DEFAULT_REPO"); v != "" {
		config.Tokenizer.DefaultRepo = v
	}
	if v := os.Getenv("HF_ENDPOINT"); v != "" {
		config.Tokenizer.Endpoint = v
	}
	if v := os.Getenv("HF_TOKEN"); v != "" {
		config.Tokenizer.AuthToken = v
	}
	if v := os.Getenv("TOKENIZER_CACHE_DIR"); v != "" {
		config.Tokenizer.CacheDir = v
	}
	if v := os.Getenv("TOKENIZERD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("TOKENIZERD_BIND"); v != "" {
		config.Server.Bind = v
	}
	if v := os.Getenv("PINPROXY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			config.Pin.Port = port
		}
	}
	if v := os.Getenv("PIN_PROVIDER"); v != "" {
		config.Pin.Provider = v
	}
}
