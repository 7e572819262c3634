// Package telemetry groups the server's observability concerns.
//
//   - logging: structured logging with secret redaction and async writes
//   - metrics: Prometheus metrics for requests, auth and rate limiting
//   - health: health state derived from the token authority
package telemetry
