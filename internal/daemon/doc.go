// Package daemon coordinates the long-running szhimatard process.
//
// It fronts the render manager, preset store, stats store, event bus, and
// notifier behind flock-based locking so only one instance runs per log
// directory. The IPC service delegates every control operation here; the
// daemon owns startup, shutdown draining, and the pid file.
//
// Keep orchestration logic here: the render mechanics live in the render
// package, and process composition lives in daemonrun.
package daemon
