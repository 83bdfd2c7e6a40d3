package commands

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/cli/browser"
	"github.com/port-experimental/port-pr-chart/internal/api"
	"github.com/port-experimental/port-pr-chart/internal/logging"
	"github.com/port-experimental/port-pr-chart/internal/output"
	"github.com/port-experimental/port-pr-chart/internal/server"
	"github.com/port-experimental/port-pr-chart/internal/token"
	"github.com/spf13/cobra"
)

// RegisterServe registers the serve command.
func RegisterServe(rootCmd *cobra.Command) {
	var (
		port      int
		host      string
		open      bool
		blueprint string
	)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API server",
		Long: `Run the dashboard API server.

The server proxies the Port catalog for the PR chart dashboard and keeps the
Port API token valid: it generates one from client credentials on first use,
rotates it every rotation interval, and rotates it immediately when Port
rejects it.`,
		Example: `  # Serve on the default port (8000)
  portchart serve

  # Serve on a different port and open the dashboard
  portchart serve --port 9000 --open

  # Use the EU region
  PORT_API_REGION=eu portchart serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, port)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			output.VerbosePrintf("API URL: %s\nRotation interval: %s\nToken wait timeout: %s\n",
				cfg.BaseURL(), cfg.Token.RotationInterval, cfg.Token.WaitTimeout)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, manager := newTokenStack(cfg)
			catalog := api.NewCatalog(client, manager, cfg.Token.WaitTimeout)
			srv := server.New(catalog, manager, server.Options{
				Version:          buildInfo.Version,
				DefaultBlueprint: blueprint,
				TrustProxy:       cfg.Server.TrustProxy,
			})

			scheduler := token.NewScheduler(manager, cfg.Token.RotationInterval, nil)
			scheduler.Start(ctx)
			defer scheduler.Stop()

			logging.Info().
				Str("api_url", cfg.BaseURL()).
				Str("region", cfg.API.Region).
				Dur("rotation_interval", cfg.Token.RotationInterval).
				Msg("Starting Port PR chart server")

			return srv.Run(ctx, cfg.ListenAddr(), func(addr string) {
				url := dashboardURL(addr)
				output.Done("Dashboard API listening on %s", url)
				if open {
					if err := browser.OpenURL(url); err != nil {
						output.Warn("Could not open browser: %v", err)
					}
				}
			})
		},
	}

	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().StringVar(&host, "host", "", "Interface to bind (overrides HOST)")
	serveCmd.Flags().BoolVar(&open, "open", false, "Open the dashboard in a browser once the server is up")
	serveCmd.Flags().StringVarP(&blueprint, "blueprint", "b", "", "Default blueprint for catalog routes")

	rootCmd.AddCommand(serveCmd)
}

// dashboardURL turns a bound listener address into a browsable URL.
func dashboardURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
