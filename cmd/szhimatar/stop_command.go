package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sharkye1/Szhimatar2/internal/ipc"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	var stopAll bool

	cmd := &cobra.Command{
		Use:   "stop [JOB_ID]",
		Short: "Stop an active render",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			if stopAll {
				return ctx.withClient(func(client *ipc.Client) error {
					resp, err := client.StopAllRenders()
					if err != nil {
						return err
					}
					if resp == nil || resp.Stopped == 0 {
						fmt.Fprintln(stdout, "No active renders")
						return nil
					}
					fmt.Fprintf(stdout, "Stopped %d renders\n", resp.Stopped)
					return nil
				})
			}

			if len(args) == 0 {
				return errors.New("job ID required unless --all is set")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				jobID, err := resolveJobID(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.StopRender(jobID)
				if err != nil {
					return err
				}
				if resp == nil || !resp.Stopped {
					fmt.Fprintf(stdout, "No active render with job ID %s\n", args[0])
					return nil
				}
				fmt.Fprintf(stdout, "Stopped render %s\n", shortJobID(jobID))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&stopAll, "all", false, "Stop every active render")
	return cmd
}

// resolveJobID expands the short IDs shown in job tables back to the full
// job ID, requiring the prefix to match exactly one active render.
func resolveJobID(client *ipc.Client, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", errors.New("job ID is empty")
	}
	resp, err := client.ActiveRenders()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, job := range resp.Jobs {
		if job.JobID == arg {
			return arg, nil
		}
		if strings.HasPrefix(job.JobID, arg) {
			matches = append(matches, job.JobID)
		}
	}
	switch len(matches) {
	case 0:
		// Let the daemon answer for IDs it may know that are not active.
		return arg, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("job ID prefix %q is ambiguous (%d matches)", arg, len(matches))
	}
}
