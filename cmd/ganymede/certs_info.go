package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/security/tlscert"
)

var certsInfoFlags struct {
	format string
}

var certsInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display certificate details",
	Long: `Display details of the provisioned certificate: subject, validity
window, subject alternative names and days until expiry.

Examples:
  # Human-readable summary
  ganymede certs info

  # Machine-readable output
  ganymede certs info --format json`,
	RunE: showCertInfo,
}

func init() {
	certsCmd.AddCommand(certsInfoCmd)

	certsInfoCmd.Flags().StringVar(&certsInfoFlags.format, "format", "text", "output format: text, json")
}

func showCertInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	cert, err := tlscert.LoadCertificate(cfg.Certificate.CertPath())
	if err != nil {
		return cli.NewCommandError("certs info", err)
	}

	info := tlscert.ExtractInfo(cert)
	days, warning := tlscert.CheckExpiration(cert)

	if certsInfoFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(os.Stdout, struct {
			*tlscert.Info
			DaysUntilExpiry int    `json:"days_until_expiry"`
			Warning         string `json:"warning,omitempty"`
		}{info, days, warning})
	}

	fmt.Printf("Certificate: %s\n", cfg.Certificate.CertPath())
	fmt.Printf("  Subject:       %s\n", info.Subject)
	fmt.Printf("  Issuer:        %s\n", info.Issuer)
	fmt.Printf("  Serial:        %s\n", info.SerialNumber)
	fmt.Printf("  Not before:    %s\n", info.NotBefore.Format(time.RFC3339))
	fmt.Printf("  Not after:     %s\n", info.NotAfter.Format(time.RFC3339))
	fmt.Printf("  DNS names:     %s\n", strings.Join(info.DNSNames, ", "))
	fmt.Printf("  IP addresses:  %s\n", strings.Join(info.IPAddresses, ", "))
	fmt.Printf("  Days to expiry: %d\n", days)
	if warning != "" {
		fmt.Printf("\n⚠️  %s\n", warning)
	}
	if err := tlscert.ValidateCertificate(cert); err != nil {
		fmt.Printf("\n✗ %v\n", err)
	} else {
		fmt.Println("\n✓ Certificate is currently valid")
	}

	return nil
}
