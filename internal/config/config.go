package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultRegion is used when no region, or an unknown one, is configured.
	DefaultRegion = "us"

	DefaultBlueprint        = "githubPullRequest"
	DefaultServerPort       = 8000
	DefaultRotationInterval = 150 * time.Minute
	DefaultWaitTimeout      = 10 * time.Second
	DefaultValidateTimeout  = 10 * time.Second
	DefaultRequestTimeout   = 30 * time.Second
)

// Values written by CreateDefaultConfig for the user to replace.
const (
	PlaceholderClientID     = "your-client-id"
	PlaceholderClientSecret = "your-client-secret"
)

var regionBaseURLs = map[string]string{
	"us":     "https://api.port.io",
	"eu":     "https://api.eu.port.io",
	"us-api": "https://api.port.io",
	"eu-api": "https://api.eu.port.io",
}

// BaseURLForRegion maps a region selector to the Port API origin.
// Unrecognized regions fall back to us.
func BaseURLForRegion(region string) string {
	if url, ok := regionBaseURLs[strings.ToLower(strings.TrimSpace(region))]; ok {
		return url
	}
	return regionBaseURLs[DefaultRegion]
}

// Credentials is the static credential set read once at startup.
// An unset value is the empty string.
type Credentials struct {
	PrimaryToken   string `yaml:"primary_token"`
	SecondaryToken string `yaml:"secondary_token"`
	ServiceToken   string `yaml:"service_token"`
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
}

// HasClientCredentials reports whether both client id and secret are set.
func (c Credentials) HasClientCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// HasAnySource reports whether at least one usable credential source exists.
func (c Credentials) HasAnySource() bool {
	return c.PrimaryToken != "" || c.SecondaryToken != "" || c.HasClientCredentials()
}

// APIConfig configures the upstream Port API.
type APIConfig struct {
	Region  string        `yaml:"region"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	TrustProxy bool   `yaml:"trust_proxy"`
}

// TokenConfig configures the token lifecycle.
type TokenConfig struct {
	RotationInterval time.Duration `yaml:"rotation_interval"`
	WaitTimeout      time.Duration `yaml:"wait_timeout"`
	ValidateTimeout  time.Duration `yaml:"validate_timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config represents the main configuration structure.
type Config struct {
	API         APIConfig     `yaml:"api"`
	Credentials Credentials   `yaml:"credentials"`
	Server      ServerConfig  `yaml:"server"`
	Token       TokenConfig   `yaml:"token"`
	Logging     LoggingConfig `yaml:"logging"`
}

// Defaults returns a configuration populated with default values.
func Defaults() *Config {
	return &Config{
		API: APIConfig{
			Region:  DefaultRegion,
			Timeout: DefaultRequestTimeout,
		},
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
		Token: TokenConfig{
			RotationInterval: DefaultRotationInterval,
			WaitTimeout:      DefaultWaitTimeout,
			ValidateTimeout:  DefaultValidateTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultConfigPath returns the default path to the configuration file.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".port-chart/config.yaml"
	}
	return filepath.Join(home, ".port-chart", "config.yaml")
}

// BaseURL returns the upstream origin. An explicit URL wins over the region.
func (c *Config) BaseURL() string {
	if c.API.URL != "" {
		return strings.TrimRight(c.API.URL, "/")
	}
	return BaseURLForRegion(c.API.Region)
}

// ListenAddr returns the host:port the server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate ensures the configuration is valid.
func (c *Config) Validate() error {
	if !c.Credentials.HasAnySource() {
		return fmt.Errorf(`missing authentication credentials

To authenticate, use one of the following methods:

1. Client credentials (recommended, tokens are generated and rotated automatically):
   export PORT_CLIENT_ID="your-client-id"
   export PORT_CLIENT_SECRET="your-client-secret"

2. Static API tokens:
   export PORT_API_TOKEN_PRIMARY="your-token"
   export PORT_API_TOKEN_SECONDARY="your-backup-token"

3. Configuration file:
   Run: portchart config init
   Then edit: %s`, DefaultConfigPath())
	}

	if c.Credentials.ClientID == PlaceholderClientID || c.Credentials.ClientSecret == PlaceholderClientSecret {
		return fmt.Errorf("client credentials are still the template placeholders: edit %s or set %s and %s",
			DefaultConfigPath(), EnvClientID, EnvClientSecret)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Token.RotationInterval <= 0 {
		return fmt.Errorf("token rotation_interval must be positive, got %s", c.Token.RotationInterval)
	}
	if c.Token.WaitTimeout <= 0 {
		return fmt.Errorf("token wait_timeout must be positive, got %s", c.Token.WaitTimeout)
	}
	if c.Token.ValidateTimeout <= 0 {
		return fmt.Errorf("token validate_timeout must be positive, got %s", c.Token.ValidateTimeout)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", c.API.Timeout)
	}

	return nil
}
