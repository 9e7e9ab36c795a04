package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sharkye1/Szhimatar2/internal/config"
)

// Requirement defines an external binary the render pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency. Command holds the
// resolved absolute path once the binary was found and verified.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// DefaultRequirements lists the tools a configured daemon needs.
func DefaultRequirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Description: "Executes renders"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary(), Description: "Inspects media containers"},
	}
}

// CheckBinaries evaluates the provided requirements and reports
// availability. A binary only counts as available when it resolves on
// PATH (or as a direct path) and answers -version.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		version, err := Version(ctx, resolved)
		if err != nil {
			status.Command = resolved
			status.Detail = fmt.Sprintf("cannot execute %q: %v", resolved, err)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		status.Version = version
		results = append(results, status)
	}
	return results
}
