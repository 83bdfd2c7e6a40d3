package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/port-experimental/port-pr-chart/internal/commands"
	"github.com/port-experimental/port-pr-chart/internal/output"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildDate = "unknown"
	commit    = "unknown"
)

func init() {
	// Fall back to VCS stamps when not built with -ldflags
	if info, ok := debug.ReadBuildInfo(); ok && version == "dev" {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && commit == "unknown" {
				commit = setting.Value
				if len(commit) > 7 {
					commit = commit[:7]
				}
			}
			if setting.Key == "vcs.time" && buildDate == "unknown" {
				buildDate = setting.Value
			}
		}
	}

	commands.SetBuildInfo(commands.BuildInfo{
		Version:   version,
		BuildDate: buildDate,
		Commit:    commit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	})
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "portchart",
		Short: "Port PR chart - dashboard backend for Port pull request metrics",
		Long: `Port PR chart - dashboard backend for Port pull request metrics

Serves catalog entities and chart aggregates from Port to the PR dashboard,
and keeps the Port API token valid while it runs.

Credentials can be provided via:
  1. CLI flags (--client-id, --client-secret) - highest priority
  2. Environment variables (PORT_CLIENT_ID, PORT_CLIENT_SECRET,
     PORT_API_TOKEN_PRIMARY, PORT_API_TOKEN_SECONDARY) or a .env file
  3. Configuration file (~/.port-chart/config.yaml)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	var (
		configFile   string
		clientID     string
		clientSecret string
		apiURL       string
		region       string
		logLevel     string
		logFormat    string
		debug        bool
		noColor      bool
		quiet        bool
		verbose      bool
	)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", "", "Port API client ID (overrides config/env)")
	rootCmd.PersistentFlags().StringVar(&clientSecret, "client-secret", "", "Port API client secret (overrides config/env)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Port API URL (overrides region)")
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "Port region: us or eu (overrides config/env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json or console")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug mode")
	rootCmd.PersistentFlags().MarkHidden("debug")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	// Store global flags in context and initialize color output
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		output.Init(noColor)

		if quiet {
			output.SetVerbosity(output.QuietLevel)
		} else if verbose {
			output.SetVerbosity(output.VerboseLevel)
		} else {
			output.SetVerbosity(output.NormalLevel)
		}

		cmd.SetContext(commands.WithGlobalFlags(cmd.Context(), commands.GlobalFlags{
			ConfigFile:   configFile,
			ClientID:     clientID,
			ClientSecret: clientSecret,
			APIURL:       apiURL,
			Region:       region,
			LogLevel:     logLevel,
			LogFormat:    logFormat,
			Debug:        debug,
			NoColor:      noColor,
			Quiet:        quiet,
			Verbose:      verbose,
		}))
	}

	// Add subcommands
	commands.RegisterServe(rootCmd)
	commands.RegisterToken(rootCmd)
	commands.RegisterConfig(rootCmd)
	commands.RegisterVersion(rootCmd)
	commands.RegisterCompletion(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		// Initialize output in case PreRun didn't execute
		output.Init(noColor)
		output.SetVerbosity(output.NormalLevel)
		output.PrintError(err)
		os.Exit(1)
	}
}
