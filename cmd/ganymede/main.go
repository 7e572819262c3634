// Ganymede is a secure-by-default HTTPS API server foundation.
//
// It provides token-based authentication with hash-only secret storage,
// per-route rate limiting, security response headers, and self-signed TLS
// certificate provisioning.
//
// Usage:
//
//	# Generate the API token (printed once, only the hash is stored)
//	ganymede token generate
//
//	# Start the server with the default configuration
//	ganymede run
//
//	# Start with a custom configuration file
//	ganymede run --config /path/to/config.yaml
//
//	# Validate a configuration file
//	ganymede validate --config config.yaml
//
//	# Provision or inspect TLS certificates
//	ganymede certs generate
//	ganymede certs info
package main

func main() {
	Execute()
}
