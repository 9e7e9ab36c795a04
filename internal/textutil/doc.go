// Package textutil provides small text helpers shared across the daemon
// and CLI.
//
// The primary use cases are:
//   - Sanitizing user-supplied names before they become files on disk
//   - Building machine-safe tokens for diagnostic artifact names
//   - Deriving display titles from media file paths
package textutil
