//go:build unix

package render

import "golang.org/x/sys/unix"

// Kill sends SIGKILL. FFmpeg gets no chance to finalize the container;
// stopped outputs are scrap and callers treat them that way.
func (OSTerminator) Kill(pid int) error {
	return unix.Kill(pid, unix.SIGKILL)
}
