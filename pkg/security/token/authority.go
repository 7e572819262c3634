package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	// EnvVar is the environment variable holding the persisted token hash.
	EnvVar = "API_TOKEN_HASH"

	// tokenBytes is the entropy of a generated token: 32 bytes = 256 bits.
	tokenBytes = 32

	// hashHexLen is the length of a SHA-256 digest in hex.
	hashHexLen = sha256.Size * 2
)

// Reason classifies a failed verification.
type Reason string

const (
	// ReasonMissing means no credential was supplied.
	ReasonMissing Reason = "missing"

	// ReasonInvalid means the credential does not match the stored hash.
	ReasonInvalid Reason = "invalid"

	// ReasonError means the stored hash itself is absent or malformed.
	ReasonError Reason = "error"
)

// Result is the outcome of verifying a candidate token.
type Result struct {
	OK     bool
	Reason Reason
}

// Observer receives authentication outcomes for metrics. Implementations must
// be safe for concurrent use.
type Observer interface {
	AuthSuccess()
	AuthFailure(reason string)
	SetTokenConfigured(configured bool)
}

// nopObserver discards all observations.
type nopObserver struct{}

func (nopObserver) AuthSuccess()            {}
func (nopObserver) AuthFailure(string)      {}
func (nopObserver) SetTokenConfigured(bool) {}

// NopObserver returns an Observer that discards everything.
func NopObserver() Observer { return nopObserver{} }

// Authority owns the API secret lifecycle: it generates raw tokens, persists
// only their SHA-256 hash to an env file, and verifies candidates against the
// hash loaded at startup.
//
// The raw token exists only in the return value of Generate; it is never
// stored and must never be logged. The loaded hash is immutable for the
// process lifetime; rotating the token requires a restart.
type Authority struct {
	envFile  string
	hash     string
	loaded   bool
	observer Observer
}

// Option customises an Authority.
type Option func(*Authority)

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(a *Authority) {
		if o != nil {
			a.observer = o
		}
	}
}

// New creates an Authority persisting to the given env file.
func New(envFile string, opts ...Option) *Authority {
	a := &Authority{
		envFile:  envFile,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate produces a new raw token from a cryptographically secure source,
// persists its hash, and returns the raw value for one-time display. Any
// previously persisted hash is overwritten, invalidating the prior token
// immediately.
func (a *Authority) Generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to gather token entropy: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	hash := hashToken(raw)

	// Preserve unrelated variables already in the env file.
	vars, err := godotenv.Read(a.envFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read env file %q: %w", a.envFile, err)
		}
		vars = map[string]string{}
	}
	vars[EnvVar] = hash

	if err := godotenv.Write(vars, a.envFile); err != nil {
		return "", fmt.Errorf("failed to persist token hash to %q: %w", a.envFile, err)
	}

	a.hash = hash
	a.loaded = true
	a.observer.SetTokenConfigured(true)

	return raw, nil
}

// Load reads the persisted hash. The process environment takes precedence
// over the env file, mirroring the usual dotenv layering. An absent hash is
// not an error: the server starts unconfigured and reports itself unhealthy.
func (a *Authority) Load() error {
	a.loaded = true

	if v := os.Getenv(EnvVar); v != "" {
		a.hash = v
		a.observer.SetTokenConfigured(true)
		return nil
	}

	vars, err := godotenv.Read(a.envFile)
	if err != nil {
		if os.IsNotExist(err) {
			a.observer.SetTokenConfigured(false)
			return nil
		}
		return fmt.Errorf("failed to read env file %q: %w", a.envFile, err)
	}

	a.hash = vars[EnvVar]
	a.observer.SetTokenConfigured(a.hash != "")
	return nil
}

// IsConfigured reports whether a token hash was loaded.
func (a *Authority) IsConfigured() bool {
	return a.loaded && a.hash != ""
}

// Verify checks a candidate token against the stored hash. The comparison
// covers the full digests in constant time; it never short-circuits on a
// partial prefix match of attacker-controlled input. Every outcome is
// reported to the observer.
func (a *Authority) Verify(candidate string) Result {
	if candidate == "" {
		a.observer.AuthFailure(string(ReasonMissing))
		return Result{Reason: ReasonMissing}
	}

	if !a.validHash() {
		a.observer.AuthFailure(string(ReasonError))
		return Result{Reason: ReasonError}
	}

	digest := hashToken(candidate)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(a.hash)) != 1 {
		a.observer.AuthFailure(string(ReasonInvalid))
		return Result{Reason: ReasonInvalid}
	}

	a.observer.AuthSuccess()
	return Result{OK: true}
}

// validHash reports whether the stored hash looks like a SHA-256 hex digest.
func (a *Authority) validHash() bool {
	if len(a.hash) != hashHexLen {
		return false
	}
	_, err := hex.DecodeString(a.hash)
	return err == nil
}

// hashToken returns the hex SHA-256 digest of a raw token.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
