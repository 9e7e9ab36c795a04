// Package stats persists render history in SQLite and aggregates it for
// status output and the legacy stat.json export.
//
// One row lands in render_history per finished render, whatever the
// outcome. The schema is managed by embedded migrations applied at Open.
package stats
