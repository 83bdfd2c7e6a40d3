package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable the loader reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TESTING", "1")
	for _, key := range []string{
		EnvPrimaryToken, EnvSecondaryToken, EnvServiceToken, EnvClientID, EnvClientSecret,
		EnvRegion, EnvAPIURL, EnvRotationInterval, EnvWaitTimeout,
		EnvServerPort, EnvServerHost, EnvTrustProxy, EnvLogLevel, EnvLogFormat,
	} {
		t.Setenv(key, "")
	}
}

func TestConfigManager_Load(t *testing.T) {
	clearEnv(t)

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configContent := `api:
  region: eu
credentials:
  primary_token: file-primary
  client_id: test-client-id
  client_secret: test-client-secret
server:
  port: 9000
token:
  rotation_interval: 1h
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	manager := NewConfigManager(configPath)
	cfg, err := manager.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.API.Region != "eu" {
		t.Errorf("Expected region 'eu', got '%s'", cfg.API.Region)
	}
	if cfg.BaseURL() != "https://api.eu.port.io" {
		t.Errorf("Expected EU base URL, got '%s'", cfg.BaseURL())
	}
	if cfg.Credentials.ClientID != "test-client-id" {
		t.Errorf("Expected client_id 'test-client-id', got '%s'", cfg.Credentials.ClientID)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Token.RotationInterval != time.Hour {
		t.Errorf("Expected rotation interval 1h, got %s", cfg.Token.RotationInterval)
	}
	// Unset values keep their defaults
	if cfg.Token.WaitTimeout != DefaultWaitTimeout {
		t.Errorf("Expected default wait timeout, got %s", cfg.Token.WaitTimeout)
	}
}

func TestConfigManager_Load_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	configContent := `credentials:
  primary_token: file-primary
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	t.Setenv(EnvPrimaryToken, "env-primary")
	t.Setenv(EnvSecondaryToken, "env-secondary")
	t.Setenv(EnvServerPort, "8123")
	t.Setenv(EnvWaitTimeout, "2s")

	cfg, err := NewConfigManager(configPath).Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Credentials.PrimaryToken != "env-primary" {
		t.Errorf("Expected env primary token to win, got '%s'", cfg.Credentials.PrimaryToken)
	}
	if cfg.Credentials.SecondaryToken != "env-secondary" {
		t.Errorf("Expected secondary token from env, got '%s'", cfg.Credentials.SecondaryToken)
	}
	if cfg.Server.Port != 8123 {
		t.Errorf("Expected port 8123, got %d", cfg.Server.Port)
	}
	if cfg.Token.WaitTimeout != 2*time.Second {
		t.Errorf("Expected wait timeout 2s, got %s", cfg.Token.WaitTimeout)
	}
}

func TestConfigManager_Load_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvRotationInterval, "soon")

	_, err := NewConfigManager(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	if err == nil {
		t.Fatal("Expected error for invalid rotation interval")
	}
}

func TestConfigManager_Load_TrustProxy(t *testing.T) {
	clearEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  trust_proxy: true\n"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := NewConfigManager(configPath).Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.Server.TrustProxy {
		t.Error("Expected trust_proxy from file")
	}

	t.Setenv(EnvTrustProxy, "false")
	cfg, err = NewConfigManager(configPath).Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.TrustProxy {
		t.Error("Expected env to disable trust_proxy")
	}

	t.Setenv(EnvTrustProxy, "maybe")
	if _, err := NewConfigManager(configPath).Load(); err == nil {
		t.Error("Expected error for invalid TRUST_PROXY")
	}
}

func TestConfigManager_Load_TrustProxyOffByDefault(t *testing.T) {
	clearEnv(t)

	cfg, err := NewConfigManager(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.TrustProxy {
		t.Error("Expected proxy headers to be untrusted by default")
	}
}

func TestConfigManager_LoadWithOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvClientID, "env-client-id")

	manager := NewConfigManager(filepath.Join(t.TempDir(), "config.yaml"))
	cfg, err := manager.LoadWithOverrides(Overrides{
		ClientID: "flag-client-id",
		Region:   "EU",
		Port:     8080,
	})
	if err != nil {
		t.Fatalf("Failed to load config with overrides: %v", err)
	}

	if cfg.Credentials.ClientID != "flag-client-id" {
		t.Errorf("Expected client_id 'flag-client-id', got '%s'", cfg.Credentials.ClientID)
	}
	if cfg.BaseURL() != "https://api.eu.port.io" {
		t.Errorf("Expected EU base URL, got '%s'", cfg.BaseURL())
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
}

func TestConfigManager_CreateDefaultConfig(t *testing.T) {
	clearEnv(t)

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nested", "config.yaml")

	manager := NewConfigManager(configPath)
	if err := manager.CreateDefaultConfig(); err != nil {
		t.Fatalf("Failed to create default config: %v", err)
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	cfg, err := manager.Load()
	if err != nil {
		t.Fatalf("Failed to load created config: %v", err)
	}

	if cfg.Credentials.ClientID != "your-client-id" {
		t.Errorf("Expected placeholder client_id, got '%s'", cfg.Credentials.ClientID)
	}
	if cfg.Token.RotationInterval != DefaultRotationInterval {
		t.Errorf("Expected rotation interval to round-trip, got %s", cfg.Token.RotationInterval)
	}
}

func TestBaseURLForRegion(t *testing.T) {
	tests := []struct {
		region string
		want   string
	}{
		{"us", "https://api.port.io"},
		{"eu", "https://api.eu.port.io"},
		{"EU", "https://api.eu.port.io"},
		{"eu-api", "https://api.eu.port.io"},
		{"us-api", "https://api.port.io"},
		{"", "https://api.port.io"},
		{"mars", "https://api.port.io"},
	}

	for _, tt := range tests {
		if got := BaseURLForRegion(tt.region); got != tt.want {
			t.Errorf("BaseURLForRegion(%q) = %q, want %q", tt.region, got, tt.want)
		}
	}
}

func TestConfig_BaseURL_ExplicitURLWins(t *testing.T) {
	cfg := Defaults()
	cfg.API.Region = "eu"
	cfg.API.URL = "http://localhost:9999/"

	if got := cfg.BaseURL(); got != "http://localhost:9999" {
		t.Errorf("Expected explicit URL without trailing slash, got '%s'", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	withCreds := func(c Credentials) *Config {
		cfg := Defaults()
		cfg.Credentials = c
		return cfg
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "client credentials",
			config:  withCreds(Credentials{ClientID: "id", ClientSecret: "secret"}),
			wantErr: false,
		},
		{
			name:    "primary token only",
			config:  withCreds(Credentials{PrimaryToken: "tok"}),
			wantErr: false,
		},
		{
			name:    "no credential source",
			config:  withCreds(Credentials{}),
			wantErr: true,
		},
		{
			name:    "client id without secret",
			config:  withCreds(Credentials{ClientID: "id"}),
			wantErr: true,
		},
		{
			name:    "service token alone is not a source",
			config:  withCreds(Credentials{ServiceToken: "svc"}),
			wantErr: true,
		},
		{
			name:    "template placeholders",
			config:  withCreds(Credentials{ClientID: PlaceholderClientID, ClientSecret: PlaceholderClientSecret}),
			wantErr: true,
		},
		{
			name:    "placeholder secret with primary token",
			config:  withCreds(Credentials{PrimaryToken: "tok", ClientID: "id", ClientSecret: PlaceholderClientSecret}),
			wantErr: true,
		},
		{
			name: "zero rotation interval",
			config: func() *Config {
				cfg := withCreds(Credentials{PrimaryToken: "tok"})
				cfg.Token.RotationInterval = 0
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "bad port",
			config: func() *Config {
				cfg := withCreds(Credentials{PrimaryToken: "tok"})
				cfg.Server.Port = 70000
				return cfg
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
