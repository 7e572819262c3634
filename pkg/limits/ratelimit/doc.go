// Package ratelimit implements fixed-window request rate limiting keyed by
// (client, endpoint). Rules are written as "N/unit" expressions such as
// "100/minute"; counters live in a pluggable store so limits can be
// per-process, durable, or shared between instances.
package ratelimit
