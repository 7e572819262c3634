package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/security/tlscert"
)

var certsGenerateFlags struct {
	force bool
}

var certsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Provision the TLS key and certificate pair",
	Long: `Provision the self-signed TLS key and certificate pair.

Without --force this is idempotent: a valid existing pair is left untouched.
The certificate covers the configured host plus localhost and 127.0.0.1.
The private key is written with owner-only permissions (0600).

Examples:
  # Provision if missing or expired
  ganymede certs generate

  # Replace unconditionally
  ganymede certs generate --force`,
	RunE: generateCerts,
}

func init() {
	certsCmd.AddCommand(certsGenerateCmd)

	certsGenerateCmd.Flags().BoolVar(&certsGenerateFlags.force, "force", false, "replace the pair even if valid")
}

func generateCerts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	provisioner := tlscert.New(tlscert.Config{
		Directory: cfg.Certificate.Directory,
		KeyPath:   cfg.Certificate.KeyPath(),
		CertPath:  cfg.Certificate.CertPath(),
		Host:      cfg.Server.Host,
		DaysValid: cfg.Certificate.DaysValid,
		KeySize:   cfg.Certificate.KeySize,
	}, logger)

	ctx := cmd.Context()
	if certsGenerateFlags.force {
		err = provisioner.Generate(ctx)
	} else {
		err = provisioner.Ensure(ctx)
	}
	if err != nil {
		return cli.NewCommandError("certs generate", err)
	}

	fmt.Printf("✓ Certificate: %s\n", cfg.Certificate.CertPath())
	fmt.Printf("✓ Private key: %s\n", cfg.Certificate.KeyPath())
	fmt.Printf("  Host: %s, valid for %d days, RSA %d bits\n",
		cfg.Server.Host, cfg.Certificate.DaysValid, cfg.Certificate.KeySize)

	return nil
}
