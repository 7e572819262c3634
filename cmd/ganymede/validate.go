package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate the configuration file without starting the server.

Parsing is strict: unknown sections or fields are rejected, and every value
is checked against its constraints (port range, rate limit expressions, CSP
syntax, storage backend, key size). All problems are reported at once.

Exits non-zero when the configuration is invalid.

Examples:
  # Validate the default config file
  ganymede validate

  # Validate a specific file
  ganymede validate --config /etc/ganymede/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("✗ %s is invalid:\n", cfgFile)
			for _, fieldErr := range verr.Errors {
				fmt.Printf("  - %s: %s\n", fieldErr.Field, fieldErr.Message)
			}
			return fmt.Errorf("%d validation error(s)", len(verr.Errors))
		}
		return fmt.Errorf("failed to load %s: %w", cfgFile, err)
	}

	fmt.Printf("✓ %s is valid\n", cfgFile)
	fmt.Printf("  Server:      %s\n", cfg.Server.URL())
	fmt.Printf("  Rate limit:  enabled=%v default=%s backend=%s\n",
		cfg.RateLimit.Enabled, cfg.RateLimit.Default, cfg.RateLimit.Storage.Backend)
	fmt.Printf("  Certificate: %s (%d days, RSA %d)\n",
		cfg.Certificate.CertPath(), cfg.Certificate.DaysValid, cfg.Certificate.KeySize)
	fmt.Printf("  Auth header: %s\n", cfg.Auth.Header)

	return nil
}
