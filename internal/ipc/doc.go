// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and the
// mapping between render models and lightweight wire representations. The
// server delegates every operation to the daemon aggregate; the client
// maps dead-socket dial errors to ErrDaemonNotRunning so commands can tell
// the user to start the daemon instead of printing a raw syscall error.
//
// Reuse these types when adding new RPC endpoints to keep the protocol
// stable and compatible with existing command implementations.
package ipc
