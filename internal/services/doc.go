// Package services defines shared utilities consumed by the render pipeline
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp render job IDs and correlation identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent classifications (validation vs external tool vs stop).
//
// Use these helpers when wiring new daemon logic so operational behaviour
// (error handling, observability) stays uniform across components.
package services
