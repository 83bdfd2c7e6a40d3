package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/port-experimental/port-pr-chart/internal/output"
	"github.com/port-experimental/port-pr-chart/internal/token"
	"github.com/spf13/cobra"
)

// RegisterToken registers the token command and its subcommands.
func RegisterToken(rootCmd *cobra.Command) {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect and manage the Port API token",
		Long: `Inspect and manage the Port API token.

Each subcommand builds a fresh token manager from the current configuration,
so results reflect what a newly started server would see.`,
	}

	tokenCmd.AddCommand(newTokenStatusCmd())
	tokenCmd.AddCommand(newTokenGenerateCmd())
	tokenCmd.AddCommand(newTokenValidateCmd())
	tokenCmd.AddCommand(newTokenRotateCmd())

	rootCmd.AddCommand(tokenCmd)
}

func newTokenStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which tokens are configured and the rotation schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, 0)
			if err != nil {
				return err
			}
			_, manager := newTokenStack(cfg)
			manager.AwaitToken(cmd.Context(), cfg.Token.WaitTimeout)

			status := manager.Status()
			if asJSON {
				return output.PrintJSON(status)
			}
			output.Println(renderStatus(status))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	return cmd
}

func newTokenGenerateCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Exchange client credentials for a new access token",
		Long: `Exchange client credentials for a new access token.

The token is printed only with --reveal, and always to stdout so it can be
captured by scripts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, 0)
			if err != nil {
				return err
			}
			_, manager := newTokenStack(cfg)

			tok, err := manager.GenerateToken(cmd.Context())
			if err != nil {
				return err
			}

			if reveal {
				fmt.Fprintln(cmd.OutOrStdout(), tok)
				return nil
			}
			output.Done("Token generated successfully")
			output.Printf("%s\n", output.Dim("Use --reveal to print it"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the generated token")
	return cmd
}

func newTokenValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [token]",
		Short: "Check a token against the Port API",
		Long: `Check a token against the Port API.

Without an argument the current token is validated, generating one from
client credentials first if no static token is configured.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, 0)
			if err != nil {
				return err
			}
			_, manager := newTokenStack(cfg)

			var candidate string
			if len(args) == 1 {
				candidate = args[0]
			} else {
				candidate = manager.AwaitToken(cmd.Context(), cfg.Token.WaitTimeout)
			}
			if candidate == "" {
				return fmt.Errorf("%w: configure client credentials or PORT_API_TOKEN_PRIMARY", token.ErrEmptyToken)
			}

			if err := manager.CheckToken(cmd.Context(), candidate); err != nil {
				return err
			}
			output.Done("Token is valid")
			return nil
		},
	}
	return cmd
}

func newTokenRotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Validate the current token and replace it if rejected",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, 0)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			_, manager := newTokenStack(cfg)
			manager.AwaitToken(cmd.Context(), cfg.Token.WaitTimeout)

			outcome := manager.Rotate(cmd.Context())
			switch outcome {
			case token.OutcomeStillValid:
				output.Done("Current token is still valid")
			case token.OutcomeGenerated:
				output.Done("Rotated to a newly generated token")
			case token.OutcomeBackup:
				output.Warn("Rotated to the %s backup token", manager.Status().Source)
			default:
				return errors.New("all tokens appear to be invalid")
			}
			return nil
		},
	}
	return cmd
}

func renderStatus(s token.Status) string {
	fields := []output.Field{
		{Label: "Current token", Value: output.Presence(string(s.CurrentToken))},
	}
	if s.Source != token.SourceNone {
		fields = append(fields, output.Field{Label: "Source", Value: output.Cyan(string(s.Source))})
	}
	if s.ExpiresAt != nil {
		fields = append(fields, output.Field{Label: "Expires", Value: formatTime(*s.ExpiresAt)})
	}
	fields = append(fields,
		output.Field{Label: "Primary token", Value: output.Presence(string(s.PrimaryToken))},
		output.Field{Label: "Secondary token", Value: output.Presence(string(s.SecondaryToken))},
		output.Field{Label: "Service token", Value: output.Presence(string(s.ServiceToken))},
		output.Field{Label: "Last rotation", Value: formatTime(s.LastRotation)},
		output.Field{Label: "Next rotation", Value: formatTime(s.NextRotation)},
	)
	return output.Panel("Port API token", fields)
}

func formatTime(t time.Time) string {
	return t.Local().Format(time.RFC1123)
}
