//go:build windows

package render

import (
	"os/exec"
	"strconv"
)

// Kill tears down the whole process tree via taskkill; a plain
// Process.Kill would leave ffmpeg's child processes running.
func (OSTerminator) Kill(pid int) error {
	return exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}
