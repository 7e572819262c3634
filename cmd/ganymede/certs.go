package main

import (
	"github.com/spf13/cobra"
)

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Manage TLS certificates",
	Long: `Manage the self-signed TLS certificates Ganymede serves with.

Subcommands:
  generate - Provision the key and certificate pair
  info     - Display certificate details

Examples:
  # Provision certificates if missing or expired
  ganymede certs generate

  # Replace the pair unconditionally
  ganymede certs generate --force

  # Display certificate information
  ganymede certs info`,
}

func init() {
	rootCmd.AddCommand(certsCmd)
}
