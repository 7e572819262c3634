package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ganymede",
	Short: "Ganymede - secure HTTPS API server foundation",
	Long: `Ganymede is a reusable secure-server foundation for HTTPS APIs.

It provides:
  - Token-based authentication (only a SHA-256 hash is ever stored)
  - Per-route fixed-window rate limiting with pluggable counter stores
  - Security response headers on every response
  - Self-signed TLS certificate provisioning
  - Prometheus metrics and structured logging`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configuration file, falling back to defaults when the
// default file is absent and no --config flag was given. An explicitly named
// file must exist.
func loadConfig() (*config.Config, error) {
	if !rootCmd.PersistentFlags().Changed("config") {
		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			return config.Default(), nil
		}
	}
	return config.Load(cfgFile)
}
