// Package logs reads daemon log files for terminal display.
//
// Tail supports negative offsets for "last N lines", forward reads from a
// saved offset, and a bounded follow mode that polls for appended lines until
// the context is cancelled. The CLI `logs` command uses it when no daemon is
// reachable; with a live daemon the structured stream hub is preferred.
package logs
