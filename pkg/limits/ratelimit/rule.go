package ratelimit

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Rule is a parsed rate limit: at most Limit requests per Window.
type Rule struct {
	Limit  int64
	Window time.Duration
}

var ruleExpr = regexp.MustCompile(`^(\d+)/(second|minute|hour)$`)

// ParseRule parses a rule expression of the form "N/second", "N/minute" or
// "N/hour", e.g. "100/minute".
func ParseRule(expr string) (Rule, error) {
	m := ruleExpr.FindStringSubmatch(expr)
	if m == nil {
		return Rule{}, fmt.Errorf("invalid rate limit expression %q: expected \"N/second\", \"N/minute\" or \"N/hour\"", expr)
	}

	limit, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid rate limit expression %q: %w", expr, err)
	}
	if limit < 1 {
		return Rule{}, fmt.Errorf("invalid rate limit expression %q: limit must be at least 1", expr)
	}

	var window time.Duration
	switch m[2] {
	case "second":
		window = time.Second
	case "minute":
		window = time.Minute
	case "hour":
		window = time.Hour
	}

	return Rule{Limit: limit, Window: window}, nil
}

// MustParseRule is ParseRule that panics on error. Intended for rule literals
// in route registrations.
func MustParseRule(expr string) Rule {
	rule, err := ParseRule(expr)
	if err != nil {
		panic(err)
	}
	return rule
}

// String renders the rule back into expression form.
func (r Rule) String() string {
	var unit string
	switch r.Window {
	case time.Second:
		unit = "second"
	case time.Minute:
		unit = "minute"
	case time.Hour:
		unit = "hour"
	default:
		return fmt.Sprintf("%d/%s", r.Limit, r.Window)
	}
	return fmt.Sprintf("%d/%s", r.Limit, unit)
}
