// Package token manages the API secret: generation from a cryptographically
// secure source, hash-only persistence in an env file, and constant-time
// verification of candidate credentials.
//
// The raw token is surfaced exactly once, at generation time. Only its
// SHA-256 digest is ever written to storage, so a leaked env file does not
// reveal the credential. Regenerating overwrites the stored hash and
// invalidates the previous token immediately.
package token
