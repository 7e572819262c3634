// Package tlscert provisions self-signed TLS material for the server.
//
// Ensure is idempotent: an unexpired pair on disk is never touched, so
// repeated startups leave the files byte-identical. Writes use exclusive
// creation so two processes provisioning the same directory cannot silently
// overwrite each other's files.
package tlscert
