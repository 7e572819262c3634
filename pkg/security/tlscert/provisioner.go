package tlscert

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"time"
)

// Config describes the certificate material to provision.
type Config struct {
	// Directory holds both files.
	Directory string

	// KeyPath and CertPath are the full paths of the PEM files.
	KeyPath  string
	CertPath string

	// Host is placed in the certificate's subject alternative names,
	// alongside localhost and 127.0.0.1.
	Host string

	// DaysValid is the validity window of a generated certificate.
	DaysValid int

	// KeySize is the RSA key size in bits.
	KeySize int
}

// Provisioner ensures a valid self-signed key/certificate pair exists on
// disk. Certificates it produces are for development and internal use; they
// are not signed by any authority.
type Provisioner struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Provisioner. A nil logger falls back to slog.Default.
func New(cfg Config, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{cfg: cfg, logger: logger.With("component", "tlscert")}
}

// Ensure makes sure a usable pair exists. When both files are present and
// the certificate is unexpired this is a no-op: calling twice in succession
// leaves the files byte-identical. Otherwise a new pair is generated. If
// generation fails but a parseable pair is already on disk, the provisioner
// proceeds with it and logs a warning instead of failing.
func (p *Provisioner) Ensure(ctx context.Context) error {
	if err := p.pairValid(); err == nil {
		p.logger.Debug("certificate pair present and valid", "cert", p.cfg.CertPath)
		return nil
	} else {
		p.logger.Info("provisioning certificate pair", "reason", err.Error())
	}

	if err := p.generate(ctx, false); err != nil {
		if p.pairParseable() {
			p.logger.Warn("certificate generation failed, continuing with existing pair",
				"error", err,
				"cert", p.cfg.CertPath,
			)
			return nil
		}
		return err
	}
	return nil
}

// Generate unconditionally replaces the pair. Used by the force path of the
// certs command.
func (p *Provisioner) Generate(ctx context.Context) error {
	return p.generate(ctx, true)
}

// pairValid returns nil when both files exist and the certificate is inside
// its validity window.
func (p *Provisioner) pairValid() error {
	if _, err := os.Stat(p.cfg.KeyPath); err != nil {
		return fmt.Errorf("key file: %w", err)
	}
	cert, err := LoadCertificate(p.cfg.CertPath)
	if err != nil {
		return err
	}
	return ValidateCertificate(cert)
}

// pairParseable reports whether both files exist and the certificate parses,
// regardless of expiry. Used to decide the degraded-continue path.
func (p *Provisioner) pairParseable() bool {
	if _, err := os.Stat(p.cfg.KeyPath); err != nil {
		return false
	}
	_, err := LoadCertificate(p.cfg.CertPath)
	return err == nil
}

func (p *Provisioner) generate(ctx context.Context, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(p.cfg.Directory, 0o750); err != nil {
		return fmt.Errorf("failed to create certificate directory %q: %w", p.cfg.Directory, err)
	}

	key, err := rsa.GenerateKey(rand.Reader, p.cfg.KeySize)
	if err != nil {
		return fmt.Errorf("failed to generate %d-bit RSA key: %w", p.cfg.KeySize, err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	dnsNames := []string{"localhost"}
	ipAddresses := []net.IP{net.ParseIP("127.0.0.1")}
	if ip := net.ParseIP(p.cfg.Host); ip != nil {
		if !ip.IsLoopback() {
			ipAddresses = append(ipAddresses, ip)
		}
	} else if p.cfg.Host != "" && p.cfg.Host != "localhost" {
		dnsNames = append(dnsNames, p.cfg.Host)
	}

	notBefore := time.Now()
	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Ganymede Development"},
			CommonName:   p.cfg.Host,
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.AddDate(0, 0, p.cfg.DaysValid),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              dnsNames,
		IPAddresses:           ipAddresses,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	if force {
		// Force replaces the pair; remove so the exclusive create succeeds.
		_ = os.Remove(p.cfg.KeyPath)
		_ = os.Remove(p.cfg.CertPath)
	} else {
		// An expired pair is regenerated in place.
		p.removeExpired()
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	certPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: der,
	})

	if err := writeExclusive(p.cfg.KeyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := writeExclusive(p.cfg.CertPath, certPEM, 0o644); err != nil {
		// Do not leave a key without its certificate behind.
		_ = os.Remove(p.cfg.KeyPath)
		return fmt.Errorf("failed to write certificate: %w", err)
	}

	p.logger.Info("self-signed certificate generated",
		"cert", p.cfg.CertPath,
		"key", p.cfg.KeyPath,
		"hosts", dnsNames,
		"days_valid", p.cfg.DaysValid,
		"key_size", p.cfg.KeySize,
	)
	return nil
}

// removeExpired deletes the pair only when the certificate is parseable and
// expired. A missing or corrupt pair is left for the exclusive create to
// arbitrate between concurrent provisioners.
func (p *Provisioner) removeExpired() {
	cert, err := LoadCertificate(p.cfg.CertPath)
	if err != nil {
		return
	}
	if time.Now().After(cert.NotAfter) {
		_ = os.Remove(p.cfg.KeyPath)
		_ = os.Remove(p.cfg.CertPath)
	}
}

// writeExclusive creates the file refusing to overwrite: when two processes
// provision into the same directory at once, the loser fails instead of
// silently clobbering the winner's files.
func writeExclusive(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists (concurrent provisioning?): %w", path, err)
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
