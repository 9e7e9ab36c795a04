package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sharkye1/Szhimatar2/internal/config"
	"github.com/sharkye1/Szhimatar2/internal/events"
	"github.com/sharkye1/Szhimatar2/internal/ipc"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var presetName string
	var extraArgs []string
	var durationSeconds float64
	var follow bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "render INPUT",
		Short: "Start a render job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve input path: %w", err)
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StartRender(ipc.StartRenderRequest{
					InputPath:       input,
					OutputPath:      outputPath,
					Preset:          presetName,
					Args:            extraArgs,
					DurationSeconds: durationSeconds,
				})
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing render response")
				}

				if jsonOutput {
					if err := writeJSON(cmd, resp.Job); err != nil {
						return err
					}
				} else {
					stdout := cmd.OutOrStdout()
					fmt.Fprintf(stdout, "Render started: %s (job %s)\n", resp.Job.Title, shortJobID(resp.Job.JobID))
					fmt.Fprintf(stdout, "Output: %s\n", resp.Job.OutputPath)
				}

				if !follow {
					return nil
				}
				return followRender(cmd, client, resp.Job.JobID)
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (defaults beside the input)")
	cmd.Flags().StringVarP(&presetName, "preset", "p", "", "Preset supplying FFmpeg arguments")
	cmd.Flags().StringArrayVar(&extraArgs, "arg", nil, "Extra FFmpeg argument (repeatable)")
	cmd.Flags().Float64Var(&durationSeconds, "duration", 0, "Input duration in seconds when probing is unavailable")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream progress until the render finishes")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the job acknowledgement as JSON")
	return cmd
}

// followRender polls the daemon's event stream until the job reaches a
// terminal state. Progress snapshots print as they arrive; a failed render
// surfaces as a command error.
func followRender(cmd *cobra.Command, client *ipc.Client, jobID string) error {
	stdout := cmd.OutOrStdout()
	ctx := cmd.Context()
	var seq uint64

	for {
		resp, err := client.EventsSince(seq)
		if err != nil {
			return fmt.Errorf("stream events: %w", err)
		}
		for _, evt := range resp.Events {
			if evt.JobID != jobID {
				continue
			}
			switch evt.Kind {
			case events.KindProgress:
				if evt.Snapshot != nil {
					fmt.Fprintf(stdout, "  %5.1f%%  fps %s  speed %s  eta %s\n",
						evt.Snapshot.Percent,
						formatFPS(evt.Snapshot.FPS),
						formatSpeed(evt.Snapshot.Speed),
						formatSeconds(evt.Snapshot.ETASeconds),
					)
				}
			case events.KindCompleted:
				fmt.Fprintln(stdout, "Render completed")
				return nil
			case events.KindStopped:
				fmt.Fprintln(stdout, "Render stopped")
				return nil
			case events.KindFailed:
				if evt.Error != "" {
					return fmt.Errorf("render failed: %s", evt.Error)
				}
				return errors.New("render failed")
			case events.KindLog:
				if evt.Message != "" {
					fmt.Fprintln(stdout, evt.Message)
				}
			}
		}
		seq = resp.Latest

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(500 * time.Millisecond):
		}
	}
}
