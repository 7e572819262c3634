// Package storage provides the pluggable counter stores behind the rate
// limiter: an in-process map (default), SQLite for durability across
// restarts, and Redis for counters shared between instances.
package storage
