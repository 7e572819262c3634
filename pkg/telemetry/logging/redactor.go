package logging

import (
	"fmt"
	"regexp"
	"strings"
)

// Redactor strips secrets from log fields. API tokens and their hashes must
// never reach a log sink, whatever level the entry was written at; the
// redactor is the last line of defence behind callers that already know not
// to log them.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a Redactor with the built-in secret patterns.
func NewRedactor() *Redactor {
	compile := func(expr, replacement string) *redactPattern {
		return &redactPattern{regex: regexp.MustCompile(expr), replacement: replacement}
	}
	return &Redactor{
		patterns: []*redactPattern{
			// SHA-256 hex digests, the shape of a stored token hash.
			compile(`\b[0-9a-fA-F]{64}\b`, "[redacted-hash]"),
			// Bearer tokens in captured header values.
			compile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer [redacted]"),
			// Key-value token leaks, e.g. "api_key=..." in echoed config.
			compile(`(?i)(api[-_]?key|token|secret|password)[:=]\s*\S+`, "$1=[redacted]"),
		},
	}
}

// RedactString redacts secrets from a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactArgs redacts secrets from variadic log arguments given as
// key1, value1, key2, value2, ... Values under sensitive keys are dropped
// entirely; other string values go through pattern redaction.
func (r *Redactor) RedactArgs(args ...any) []any {
	if len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 1; i < len(redacted); i += 2 {
		if key, ok := redacted[i-1].(string); ok && isSensitiveKey(key) {
			redacted[i] = "[redacted]"
			continue
		}
		switch v := redacted[i].(type) {
		case string:
			redacted[i] = r.RedactString(v)
		case fmt.Stringer:
			redacted[i] = r.RedactString(v.String())
		}
	}

	return redacted
}

var sensitiveKeys = []string{
	"token", "api_key", "apikey", "x-api-key",
	"secret", "password", "passwd",
	"hash", "authorization",
	"private_key", "privatekey",
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
