// Package events buffers render lifecycle events for polling clients.
//
// The daemon publishes progress, stopped, completed, failed, and log
// events onto a bounded sequence-numbered bus; the CLI polls Since(seq)
// over IPC to follow a render without a push channel.
package events
