package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/server"
	"mercator-hq/ganymede/pkg/telemetry/health"
	"mercator-hq/ganymede/pkg/telemetry/logging"
)

var runFlags struct {
	port     int
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Ganymede server",
	Long: `Start the Ganymede HTTPS server with the specified configuration.

Startup provisions a self-signed certificate pair if none exists, loads the
persisted API token hash, and binds a TLS 1.3 listener. If no token hash is
configured the server still starts, but reports unhealthy and rejects all
protected routes until one is generated with "ganymede token generate".

Examples:
  # Start with default config
  ganymede run

  # Start with custom config
  ganymede run --config /etc/ganymede/config.yaml

  # Override the listen port
  ganymede run --port 8443

  # Validate config without starting the server
  ganymede run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runFlags.port, "port", "p", 0, "override listen port")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.port != 0 {
		cfg.Server.Port = runFlags.port
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	defer logger.Shutdown()

	ctx := cli.SetupSignalHandler()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	versionHandler := health.VersionHandler(Version, GitCommit, BuildDate)
	if err := srv.RegisterRoute(http.MethodGet, "/api/version", versionHandler, server.RouteOptions{Limited: true}); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Printf("Ganymede v%s\n", Version)
	fmt.Printf("✓ Configuration loaded from %s\n", cfgFile)
	fmt.Printf("✓ Serving on %s\n", cfg.Server.URL())
	fmt.Printf("  Health:  %s/api/health\n", cfg.Server.URL())
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("  Metrics: %s%s\n", cfg.Server.URL(), cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until a signal, context cancellation or fatal error.
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}
