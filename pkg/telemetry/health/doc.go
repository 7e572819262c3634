// Package health reports whether the server can serve protected routes. The
// state is derived on every check from the token authority, never cached: a
// server without a configured token answers unhealthy (HTTP 500) until a
// token exists.
package health
