// Package render owns the FFmpeg process lifecycle: launching jobs with a
// fixed argument contract, tracking live processes in a registry, reading
// machine progress from stdout with a stderr fallback, cancelling by PID,
// and classifying exits into completed, failed, or stopped outcomes.
//
// The Manager supervises per-job runners and feeds render history,
// notifications, per-job log files, and the event stream.
package render
