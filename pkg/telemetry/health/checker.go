package health

import (
	"time"
)

// State is the server's health state.
type State string

const (
	// StateHealthy means the server is fully operational.
	StateHealthy State = "healthy"

	// StateUnhealthy means the server is up but cannot serve protected
	// routes, typically because no API token is configured.
	StateUnhealthy State = "unhealthy"
)

// Status is the health report returned by the endpoint. Code mirrors the
// HTTP status so clients reading only the body still see the verdict.
type Status struct {
	Code      int       `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	State     State     `json:"status"`
}

// Source reports whether the server's security prerequisites are met.
// The token authority satisfies this.
type Source interface {
	IsConfigured() bool
}

// Checker derives the health state from its sources on every call, so a
// token configured after startup is reflected without a restart.
type Checker struct {
	source Source
}

// NewChecker creates a checker over source.
func NewChecker(source Source) *Checker {
	return &Checker{source: source}
}

// Check computes the current health status.
func (c *Checker) Check() Status {
	now := time.Now().UTC()

	if !c.source.IsConfigured() {
		return Status{
			Code:      500,
			Message:   "no API token configured",
			Timestamp: now,
			State:     StateUnhealthy,
		}
	}

	return Status{
		Code:      200,
		Message:   "ok",
		Timestamp: now,
		State:     StateHealthy,
	}
}
