// Package metrics exposes the server's Prometheus metrics: request counts
// and latencies, authentication outcomes, token configuration state and rate
// limit rejections. All metrics live on a private registry owned by the
// Collector.
package metrics
