// Package logging assembles structured slog loggers and formatting helpers used
// across Szhimatar components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so daemon code can automatically
// tag log lines with render job IDs and correlation IDs. The package also
// provides the in-memory log streaming hub the control socket serves, an
// on-disk event archive for replay, and a no-op logger for tests and wiring
// code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the rest
// of the system.
package logging
