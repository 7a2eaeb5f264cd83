// Package server holds the admin HTTP server configuration.
//
// Besides the listen port and API key, the Config carries the replication role.
// Only standalone and master nodes run trackers; a slave serves the admin summary
// but rejects maintenance calls.
package server
