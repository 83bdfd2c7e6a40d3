package commands

import (
	"fmt"

	"github.com/port-experimental/port-pr-chart/internal/api"
	"github.com/port-experimental/port-pr-chart/internal/config"
	"github.com/port-experimental/port-pr-chart/internal/logging"
	"github.com/port-experimental/port-pr-chart/internal/token"
	"github.com/spf13/cobra"
)

// loadConfig resolves the effective configuration for cmd and initializes
// logging from it.
func loadConfig(cmd *cobra.Command, port int) (*config.Config, error) {
	flags := GetGlobalFlags(cmd.Context())
	configManager := config.NewConfigManager(flags.ConfigFile)

	cfg, err := configManager.LoadWithOverrides(config.Overrides{
		ClientID:     flags.ClientID,
		ClientSecret: flags.ClientSecret,
		Region:       flags.Region,
		APIURL:       flags.APIURL,
		Port:         port,
		LogLevel:     flags.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if flags.Debug {
		cfg.Logging.Level = "debug"
	}
	if flags.LogFormat != "" {
		cfg.Logging.Format = flags.LogFormat
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	return cfg, nil
}

// newTokenStack builds the upstream client and the token manager over it.
func newTokenStack(cfg *config.Config) (*api.Client, *token.Manager) {
	client := api.NewClient(cfg.BaseURL(), cfg.API.Timeout)
	manager := token.NewManager(cfg.Credentials, client,
		token.WithRotationInterval(cfg.Token.RotationInterval),
		token.WithRequestTimeout(cfg.Token.ValidateTimeout),
	)
	return client, manager
}
