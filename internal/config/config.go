// Package config loads credential-source configuration from
// ~/.llmkeys/config.yaml with environment-variable overrides.
package config

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultHTTPTimeout bounds key- and token-endpoint calls.
const DefaultHTTPTimeout = 10 * time.Second

// Config holds the configuration for every credential source. Each section
// maps to one source; an empty section leaves that source unconfigured.
type Config struct {
	// HTTPTimeout is a Go duration string, e.g. "10s".
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	Remote         RemoteConfig         `yaml:"remote"`
	AWS            AWSConfig            `yaml:"aws"`
	ServiceAccount ServiceAccountConfig `yaml:"service_account"`
	OIDC           OIDCConfig           `yaml:"oidc"`
	Keyring        KeyringConfig        `yaml:"keyring"`
}

// RemoteConfig configures the central HTTP key service.
type RemoteConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// AWSConfig configures the Secrets Manager source.
type AWSConfig struct {
	SecretID string `yaml:"secret_id"`
	Region   string `yaml:"region"`
}

// ServiceAccountConfig configures the offline credential-file source.
type ServiceAccountConfig struct {
	Path     string `yaml:"path"`
	Endpoint string `yaml:"endpoint"`
}

// OIDCConfig configures the client-credentials source.
type OIDCConfig struct {
	TokenEndpoint string `yaml:"token_endpoint"`
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	KeyEndpoint   string `yaml:"key_endpoint"`
	Scope         string `yaml:"scope"`
}

// Scopes splits the space-separated scope string into a slice.
func (c *OIDCConfig) Scopes() []string {
	return strings.Fields(c.Scope)
}

// KeyringConfig configures the OS keyring source.
type KeyringConfig struct {
	Service string `yaml:"service"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPTimeout: DefaultHTTPTimeout,
	}
}

// Dir returns the path to ~/.llmkeys.
func Dir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".llmkeys")
	}
	return filepath.Join(homeDir, ".llmkeys")
}

// Load reads ~/.llmkeys/config.yaml and applies environment overrides.
// Environment variables win over the file; a missing or malformed file
// falls back to defaults.
func Load() (*Config, error) {
	return loadFrom(filepath.Join(Dir(), "config.yaml"))
}

func loadFrom(path string) (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		_ = yaml.Unmarshal(data, cfg) // Ignore unmarshal errors, use defaults
	}

	applyEnvOverrides(cfg)

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	return cfg, nil
}

// applyEnvOverrides layers the environment variable contract over cfg.
func applyEnvOverrides(cfg *Config) {
	setIfEnv(&cfg.Remote.Endpoint, "FASTAPI_KEY_ENDPOINT")
	setIfEnv(&cfg.Remote.APIKey, "FASTAPI_API_KEY")

	setIfEnv(&cfg.AWS.SecretID, "LLMKEYS_AWS_SECRET_ID")
	setIfEnv(&cfg.AWS.Region, "LLMKEYS_AWS_REGION")

	setIfEnv(&cfg.ServiceAccount.Path, "SERVICE_ACCOUNT_FILE")
	setIfEnv(&cfg.ServiceAccount.Endpoint, "SERVICE_ACCOUNT_KEY_ENDPOINT")

	setIfEnv(&cfg.OIDC.TokenEndpoint, "OIDC_TOKEN_ENDPOINT")
	setIfEnv(&cfg.OIDC.ClientID, "OIDC_CLIENT_ID")
	setIfEnv(&cfg.OIDC.ClientSecret, "OIDC_CLIENT_SECRET")
	setIfEnv(&cfg.OIDC.KeyEndpoint, "OIDC_KEY_ENDPOINT")
	setIfEnv(&cfg.OIDC.Scope, "OIDC_SCOPE")

	setIfEnv(&cfg.Keyring.Service, "LLMKEYS_KEYRING_SERVICE")

	if v := os.Getenv("LLMKEYS_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.HTTPTimeout = d
		}
	}
}

func setIfEnv(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// HTTPClient returns a client bounded by the configured timeout.
func (c *Config) HTTPClient() *http.Client {
	timeout := c.HTTPTimeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}
