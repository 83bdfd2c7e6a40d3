package commands

import (
	"errors"
	"fmt"

	"charm.land/huh/v2"
	"github.com/port-experimental/port-pr-chart/internal/config"
	"github.com/port-experimental/port-pr-chart/internal/output"
	"github.com/spf13/cobra"
)

// RegisterConfig registers the config command.
func RegisterConfig(rootCmd *cobra.Command) {
	var show, init, interactive bool

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage portchart configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if init {
				return runConfigInit(cmd, interactive)
			}

			if show {
				return runConfigShow(cmd)
			}

			output.Println("Use --show to display configuration")
			output.Println("Use --init to create a new configuration file")
			return nil
		},
	}

	configCmd.Flags().BoolVar(&show, "show", false, "Show current configuration")
	configCmd.Flags().BoolVar(&init, "init", false, "Initialize configuration file")
	configCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for values when initializing")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, interactive)
		},
	}
	initCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for values")
	configCmd.AddCommand(initCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, interactive bool) error {
	flags := GetGlobalFlags(cmd.Context())
	configManager := config.NewConfigManager(flags.ConfigFile)

	if !interactive {
		if err := configManager.CreateDefaultConfig(); err != nil {
			return fmt.Errorf("failed to create configuration: %w", err)
		}
		output.Done("Configuration file created at %s", configManager.ConfigPath())
		output.Println()
		output.Println("Edit the file and replace the placeholder credentials before running `portchart serve`.")
		return nil
	}

	cfg := config.Defaults()
	if err := promptConfig(cfg); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			output.Warn("Aborted, nothing written")
			return nil
		}
		return fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := configManager.WriteConfig(cfg); err != nil {
		return fmt.Errorf("failed to create configuration: %w", err)
	}
	output.Done("Configuration file created at %s", configManager.ConfigPath())
	return nil
}

// promptConfig fills cfg from an interactive form.
func promptConfig(cfg *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Port region").
				Options(
					huh.NewOption("US (api.port.io)", "us"),
					huh.NewOption("EU (api.eu.port.io)", "eu"),
				).
				Value(&cfg.API.Region),
			huh.NewInput().
				Title("Client ID").
				Description("Used to generate and rotate tokens automatically").
				Value(&cfg.Credentials.ClientID),
			huh.NewInput().
				Title("Client secret").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Credentials.ClientSecret),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Primary API token (optional)").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Credentials.PrimaryToken),
			huh.NewInput().
				Title("Secondary API token (optional)").
				Description("Used as a backup when the primary token is rejected").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Credentials.SecondaryToken),
		),
	)
	return form.Run()
}

func runConfigShow(cmd *cobra.Command) error {
	flags := GetGlobalFlags(cmd.Context())
	configManager := config.NewConfigManager(flags.ConfigFile)

	cfg, err := configManager.LoadWithOverrides(config.Overrides{
		ClientID:     flags.ClientID,
		ClientSecret: flags.ClientSecret,
		Region:       flags.Region,
		APIURL:       flags.APIURL,
		LogLevel:     flags.LogLevel,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	creds := cfg.Credentials
	fields := []output.Field{
		{Label: "Config file", Value: configManager.ConfigPath()},
		{Label: "Region", Value: cfg.API.Region},
		{Label: "API URL", Value: cfg.BaseURL()},
		{Label: "Listen address", Value: cfg.ListenAddr()},
		{Label: "Client ID", Value: output.Presence(setOrNot(creds.ClientID))},
		{Label: "Client secret", Value: output.Presence(setOrNot(creds.ClientSecret))},
		{Label: "Primary token", Value: output.Presence(setOrNot(creds.PrimaryToken))},
		{Label: "Secondary token", Value: output.Presence(setOrNot(creds.SecondaryToken))},
		{Label: "Service token", Value: output.Presence(setOrNot(creds.ServiceToken))},
		{Label: "Rotation interval", Value: cfg.Token.RotationInterval.String()},
		{Label: "Token wait timeout", Value: cfg.Token.WaitTimeout.String()},
		{Label: "Log level", Value: cfg.Logging.Level},
	}
	output.Println(output.Panel("Current Configuration", fields))

	if err := cfg.Validate(); err != nil {
		output.Println()
		output.Warn("Configuration is not usable yet:")
		output.Println(err.Error())
	}
	return nil
}

func setOrNot(v string) string {
	if v == "" {
		return "Not Set"
	}
	return "Set"
}
