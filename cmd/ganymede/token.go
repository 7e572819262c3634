package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/security/token"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the API token",
	Long: `Manage the API token used to authenticate protected routes.

The raw token is shown exactly once, at generation time. Only its SHA-256
hash is persisted; a lost token cannot be recovered, only replaced.

Subcommands:
  generate - Generate a new API token

Examples:
  # Generate a new token
  ganymede token generate`,
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API token",
	Long: `Generate a new API token and persist its hash.

The token is drawn from a cryptographically secure source (256 bits of
entropy) and printed once. The env file receives only the SHA-256 hash,
replacing any previous hash: generating a new token immediately invalidates
the old one.

Examples:
  # Generate a token using the configured env file
  ganymede token generate

  # Generate against a specific config
  ganymede token generate --config /etc/ganymede/config.yaml`,
	RunE: generateToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenGenerateCmd)
}

func generateToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	authority := token.New(cfg.Auth.EnvFile)
	raw, err := authority.Generate()
	if err != nil {
		return cli.NewCommandError("token generate", err)
	}

	fmt.Println("API token generated.")
	fmt.Println()
	fmt.Printf("  %s\n", raw)
	fmt.Println()
	fmt.Printf("The hash was written to %s. This token is shown only once;\n", cfg.Auth.EnvFile)
	fmt.Println("store it securely. Any previous token is now invalid.")
	fmt.Println()
	fmt.Printf("Clients authenticate with:  %s: <token>\n", cfg.Auth.Header)

	return nil
}
