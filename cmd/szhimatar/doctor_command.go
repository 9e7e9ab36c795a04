package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sharkye1/Szhimatar2/internal/daemonctl"
	"github.com/sharkye1/Szhimatar2/internal/deps"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var deep bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			requirements := deps.DefaultRequirements(cfg)
			statuses := deps.CheckBinaries(cmd.Context(), requirements)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			summary := daemonctl.BuildDependencySummary(statuses)
			for _, line := range dependencyLines(statuses, summary, colorize) {
				fmt.Fprintln(stdout, line)
			}

			if !deep {
				return nil
			}

			missing := missingRequirements(requirements, statuses)
			if len(missing) == 0 {
				fmt.Fprintln(stdout)
				fmt.Fprintln(stdout, "All dependencies available, skipping deep search")
				return nil
			}

			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Deep Search", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, req := range missing {
				fmt.Fprintf(stdout, "Searching the filesystem for %s...\n", req.Command)
				discovery := deps.Discover(cmd.Context(), req.Command, deps.DiscoverOptions{
					Deep: true,
					Progress: func(visited int) {
						fmt.Fprintf(stdout, "  scanned %d directories\n", visited)
					},
				})
				if !discovery.Found {
					fmt.Fprintln(stdout, renderStatusLine(req.Name, statusError, "not found anywhere on this system", colorize))
					continue
				}
				detail := fmt.Sprintf("%s (found via %s search)", discovery.Path, discovery.Stage)
				if discovery.Version != "" {
					detail = fmt.Sprintf("%s, version %s", detail, discovery.Version)
				}
				fmt.Fprintln(stdout, renderStatusLine(req.Name, statusOK, detail, colorize))
				fmt.Fprintf(stdout, "  add to config: [tools] %s = %q\n", strings.ToLower(req.Name), discovery.Path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&deep, "deep", false, "Search the filesystem for missing binaries")
	return cmd
}

func missingRequirements(requirements []deps.Requirement, statuses []deps.Status) []deps.Requirement {
	missing := make([]deps.Requirement, 0, len(requirements))
	for i, st := range statuses {
		if st.Available || i >= len(requirements) {
			continue
		}
		missing = append(missing, requirements[i])
	}
	return missing
}
