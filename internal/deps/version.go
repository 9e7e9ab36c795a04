package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Version runs `binary -version` and returns the first line of output.
// FFmpeg-family tools put the build banner there.
func Version(ctx context.Context, binary string) (string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return "", fmt.Errorf("version: empty binary path")
	}

	output, err := exec.CommandContext(ctx, binary, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("run %s -version: %w", binary, err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s -version produced no output", binary)
	}
	return line, nil
}
