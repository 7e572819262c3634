package tlscert

import (
	"bytes"
	"context"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		Directory: dir,
		KeyPath:   filepath.Join(dir, "key.pem"),
		CertPath:  filepath.Join(dir, "cert.pem"),
		Host:      "localhost",
		DaysValid: 30,
		KeySize:   2048, // smallest accepted size keeps the tests fast
	}
}

func readPair(t *testing.T, cfg Config) (key, cert []byte) {
	t.Helper()
	key, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		t.Fatalf("reading key: %v", err)
	}
	cert, err = os.ReadFile(cfg.CertPath)
	if err != nil {
		t.Fatalf("reading cert: %v", err)
	}
	return key, cert
}

func TestEnsureGeneratesPair(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil)

	if err := p.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}

	cert, err := LoadCertificate(cfg.CertPath)
	if err != nil {
		t.Fatalf("generated certificate does not load: %v", err)
	}
	if err := ValidateCertificate(cert); err != nil {
		t.Errorf("generated certificate invalid: %v", err)
	}

	hasLocalhost := false
	for _, name := range cert.DNSNames {
		if name == "localhost" {
			hasLocalhost = true
		}
	}
	if !hasLocalhost {
		t.Errorf("SANs %v missing localhost", cert.DNSNames)
	}
	if len(cert.IPAddresses) == 0 {
		t.Error("certificate has no IP SANs, want 127.0.0.1")
	}

	info, err := os.Stat(cfg.KeyPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key file permissions = %o, want 600", perm)
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil)

	if err := p.Ensure(context.Background()); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	key1, cert1 := readPair(t, cfg)

	if err := p.Ensure(context.Background()); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	key2, cert2 := readPair(t, cfg)

	if !bytes.Equal(key1, key2) {
		t.Error("second Ensure rewrote the key file")
	}
	if !bytes.Equal(cert1, cert2) {
		t.Error("second Ensure rewrote the certificate file")
	}
}

func TestEnsureRegeneratesAfterKeyDeletion(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil)

	if err := p.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	first, err := LoadCertificate(cfg.CertPath)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(cfg.KeyPath); err != nil {
		t.Fatal(err)
	}
	// The stale certificate must also go or the exclusive create would fail.
	if err := os.Remove(cfg.CertPath); err != nil {
		t.Fatal(err)
	}

	if err := p.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure after deletion: %v", err)
	}
	second, err := LoadCertificate(cfg.CertPath)
	if err != nil {
		t.Fatal(err)
	}

	if first.SerialNumber.Cmp(second.SerialNumber) == 0 {
		t.Error("regenerated certificate has the same serial number")
	}
}

func TestGenerateForceReplacesValidPair(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil)

	if err := p.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, cert1 := readPair(t, cfg)

	if err := p.Generate(context.Background()); err != nil {
		t.Fatalf("forced Generate: %v", err)
	}
	_, cert2 := readPair(t, cfg)

	if bytes.Equal(cert1, cert2) {
		t.Error("forced Generate kept the old certificate")
	}
}

func TestEnsureConcurrentProvisioningDoesNotClobber(t *testing.T) {
	cfg := testConfig(t)

	if err := New(cfg, nil).Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	key1, cert1 := readPair(t, cfg)

	// Simulate a racing provisioner that believes the pair is absent: the
	// exclusive create must fail rather than overwrite.
	racer := New(cfg, nil)
	if err := racer.generate(context.Background(), false); err == nil {
		t.Fatal("racing generate overwrote existing files")
	}

	key2, cert2 := readPair(t, cfg)
	if !bytes.Equal(key1, key2) || !bytes.Equal(cert1, cert2) {
		t.Error("race altered the on-disk pair")
	}
}

func TestValidateCertificateExpiry(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		notBefore time.Time
		notAfter  time.Time
		wantErr   bool
	}{
		{"valid", now.Add(-time.Hour), now.Add(time.Hour), false},
		{"expired", now.Add(-2 * time.Hour), now.Add(-time.Hour), true},
		{"not yet valid", now.Add(time.Hour), now.Add(2 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert := &x509.Certificate{NotBefore: tt.notBefore, NotAfter: tt.notAfter}
			err := ValidateCertificate(cert)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCertificate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckExpirationWarning(t *testing.T) {
	soon := &x509.Certificate{NotAfter: time.Now().Add(10 * 24 * time.Hour)}
	days, warning := CheckExpiration(soon)
	if warning == "" {
		t.Errorf("no warning for certificate expiring in %d days", days)
	}

	far := &x509.Certificate{NotAfter: time.Now().Add(200 * 24 * time.Hour)}
	if _, warning := CheckExpiration(far); warning != "" {
		t.Errorf("unexpected warning %q for a long-lived certificate", warning)
	}
}
