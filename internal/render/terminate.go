package render

// Terminator kills a process by PID. The registry tracks PIDs precisely so
// stop requests never need the runner-owned exec handle; the runner keeps
// waiting on the process and classifies the exit it observes.
type Terminator interface {
	Kill(pid int) error
}

// OSTerminator delivers a hard kill through the platform facility.
type OSTerminator struct{}
