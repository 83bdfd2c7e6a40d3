package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvPrimaryToken     = "PORT_API_TOKEN_PRIMARY"
	EnvSecondaryToken   = "PORT_API_TOKEN_SECONDARY"
	EnvServiceToken     = "PORT_SERVICE_TOKEN"
	EnvClientID         = "PORT_CLIENT_ID"
	EnvClientSecret     = "PORT_CLIENT_SECRET"
	EnvRegion           = "PORT_API_REGION"
	EnvAPIURL           = "PORT_API_URL"
	EnvRotationInterval = "PORT_TOKEN_ROTATION_INTERVAL"
	EnvWaitTimeout      = "PORT_TOKEN_WAIT_TIMEOUT"
	EnvServerPort       = "PORT"
	EnvServerHost       = "HOST"
	EnvTrustProxy       = "TRUST_PROXY"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
)

// Overrides holds values supplied on the command line.
// Empty fields leave the loaded value untouched.
type Overrides struct {
	ClientID     string
	ClientSecret string
	Region       string
	APIURL       string
	Port         int
	LogLevel     string
}

// ConfigManager manages configuration loading with precedence: CLI flags > env vars > config file.
type ConfigManager struct {
	configPath string
}

// ConfigPath returns the configuration file path.
func (cm *ConfigManager) ConfigPath() string {
	return cm.configPath
}

// NewConfigManager creates a new ConfigManager.
func NewConfigManager(configPath string) *ConfigManager {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}

	// Load .env files (doesn't override existing env vars)
	loadEnvFiles()

	return &ConfigManager{
		configPath: configPath,
	}
}

// loadEnvFiles loads .env files from current directory and ~/.port-chart/.env.
func loadEnvFiles() {
	// Skip .env loading during tests
	if os.Getenv("TESTING") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		godotenv.Load(".env")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		envPath := filepath.Join(home, ".port-chart", ".env")
		if _, err := os.Stat(envPath); err == nil {
			godotenv.Load(envPath)
		}
	}
}

// Load loads configuration with precedence: env vars > config file > defaults.
func (cm *ConfigManager) Load() (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(cm.configPath); err == nil {
		if err := cm.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := cm.loadFromEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithOverrides loads configuration with CLI flag overrides.
// Precedence: CLI flags > env vars > config file > defaults.
func (cm *ConfigManager) LoadWithOverrides(o Overrides) (*Config, error) {
	cfg, err := cm.Load()
	if err != nil {
		return nil, err
	}

	if o.ClientID != "" {
		cfg.Credentials.ClientID = o.ClientID
	}
	if o.ClientSecret != "" {
		cfg.Credentials.ClientSecret = o.ClientSecret
	}
	if o.Region != "" {
		cfg.API.Region = o.Region
	}
	if o.APIURL != "" {
		cfg.API.URL = o.APIURL
	}
	if o.Port != 0 {
		cfg.Server.Port = o.Port
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}

	return cfg, nil
}

// loadFromFile loads configuration from YAML file.
func (cm *ConfigManager) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return err
	}

	fileConfig := &Config{}
	if err := yaml.Unmarshal(data, fileConfig); err != nil {
		return err
	}

	// Merge file config into defaults
	if fileConfig.API.Region != "" {
		cfg.API.Region = fileConfig.API.Region
	}
	if fileConfig.API.URL != "" {
		cfg.API.URL = fileConfig.API.URL
	}
	if fileConfig.API.Timeout != 0 {
		cfg.API.Timeout = fileConfig.API.Timeout
	}
	cfg.Credentials = fileConfig.Credentials
	if fileConfig.Server.Host != "" {
		cfg.Server.Host = fileConfig.Server.Host
	}
	if fileConfig.Server.Port != 0 {
		cfg.Server.Port = fileConfig.Server.Port
	}
	cfg.Server.TrustProxy = fileConfig.Server.TrustProxy
	if fileConfig.Token.RotationInterval != 0 {
		cfg.Token.RotationInterval = fileConfig.Token.RotationInterval
	}
	if fileConfig.Token.WaitTimeout != 0 {
		cfg.Token.WaitTimeout = fileConfig.Token.WaitTimeout
	}
	if fileConfig.Token.ValidateTimeout != 0 {
		cfg.Token.ValidateTimeout = fileConfig.Token.ValidateTimeout
	}
	if fileConfig.Logging.Level != "" {
		cfg.Logging.Level = fileConfig.Logging.Level
	}
	if fileConfig.Logging.Format != "" {
		cfg.Logging.Format = fileConfig.Logging.Format
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (cm *ConfigManager) loadFromEnv(cfg *Config) error {
	setString(&cfg.Credentials.PrimaryToken, EnvPrimaryToken)
	setString(&cfg.Credentials.SecondaryToken, EnvSecondaryToken)
	setString(&cfg.Credentials.ServiceToken, EnvServiceToken)
	setString(&cfg.Credentials.ClientID, EnvClientID)
	setString(&cfg.Credentials.ClientSecret, EnvClientSecret)

	setString(&cfg.API.Region, EnvRegion)
	setString(&cfg.API.URL, EnvAPIURL)

	setString(&cfg.Server.Host, EnvServerHost)
	if v := os.Getenv(EnvServerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvServerPort, v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv(EnvTrustProxy); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTrustProxy, v, err)
		}
		cfg.Server.TrustProxy = trust
	}

	if err := setDuration(&cfg.Token.RotationInterval, EnvRotationInterval); err != nil {
		return err
	}
	if err := setDuration(&cfg.Token.WaitTimeout, EnvWaitTimeout); err != nil {
		return err
	}

	setString(&cfg.Logging.Level, EnvLogLevel)
	setString(&cfg.Logging.Format, EnvLogFormat)

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

// WriteConfig writes cfg to the configuration file, creating its directory.
func (cm *ConfigManager) WriteConfig(cfg *Config) error {
	dir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Holds secrets
	if err := os.WriteFile(cm.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig creates a default configuration file.
func (cm *ConfigManager) CreateDefaultConfig() error {
	cfg := Defaults()
	cfg.Credentials = Credentials{
		ClientID:     PlaceholderClientID,
		ClientSecret: PlaceholderClientSecret,
	}
	return cm.WriteConfig(cfg)
}
