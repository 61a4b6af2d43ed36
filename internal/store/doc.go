// Package store provides SQLite-backed storage for planner documents.
//
// It serves two roles:
//
//   - Remote backend: implements remote.Store for single-host or
//     development deployments. Upserts bump a strictly monotonic
//     per-pairing revision and fan out to in-process subscribers.
//   - Local cache: implements the engine's fallback-blob interface so a
//     client can bootstrap offline from its last known document.
//
// Document bodies are stored as RFC 8785 canonical JSON, so two members
// writing the same logical document produce byte-identical rows.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// SQLite supports one writer at a time; the connection pool is capped at a
// single connection to avoid SQLITE_BUSY under concurrent upserts.
package store
