// Package logging provides structured logging on top of log/slog with two
// properties request-serving code relies on: writes never block the caller
// (a buffered background writer drains them, dropping and counting entries
// under pressure), and secrets never reach the sink (values under sensitive
// keys and strings that look like token material are redacted before
// encoding).
package logging
