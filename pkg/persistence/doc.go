// Package persistence keeps the agent's heartbeat statistics across
// restarts.
//
// The state file is JSON, replaced atomically on every save so a power cut
// during shutdown leaves either the old or the new snapshot behind.
package persistence
