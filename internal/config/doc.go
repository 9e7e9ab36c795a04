// Package config loads, normalizes, and validates Szhimatar configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SZHIMATAR_NTFY_TOPIC. The Config type centralizes every knob the daemon and
// CLI need, from tool locations to render output naming.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
