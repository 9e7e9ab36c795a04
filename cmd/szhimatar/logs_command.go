package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sharkye1/Szhimatar2/internal/ipc"
	"github.com/sharkye1/Szhimatar2/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := streamLogsFromDaemon(cmd, ctx, lines, follow)
			if errors.Is(err, ipc.ErrDaemonNotRunning) {
				return tailLogFile(cmd, ctx, lines, follow)
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of entries to show")
	return cmd
}

// streamLogsFromDaemon reads structured events from the daemon's stream
// hub: newest entries first via the tail request, then a cursor-based
// follow loop with server-side waits.
func streamLogsFromDaemon(cmd *cobra.Command, ctx *commandContext, lines int, follow bool) error {
	return ctx.withClient(func(client *ipc.Client) error {
		cmdCtx := cmd.Context()
		stdout := cmd.OutOrStdout()
		printed := false

		req := ipc.LogTailRequest{Tail: true, Limit: lines}
		for {
			resp, err := client.LogTail(req)
			if err != nil {
				return fmt.Errorf("tail logs: %w", err)
			}
			if resp == nil {
				return errors.New("log tail response missing")
			}
			for _, evt := range resp.Events {
				fmt.Fprintln(stdout, formatLogEvent(evt))
				printed = true
			}
			if !follow {
				if !printed {
					fmt.Fprintln(stdout, "No log entries available")
				}
				return nil
			}
			req = ipc.LogTailRequest{
				Since:      resp.Next,
				Follow:     true,
				WaitMillis: 1000,
			}
			select {
			case <-cmdCtx.Done():
				return nil
			default:
			}
		}
	})
}

// tailLogFile reads raw lines from the current daemon log pointer when no
// daemon is answering on the socket.
func tailLogFile(cmd *cobra.Command, ctx *commandContext, lines int, follow bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "szhimatar.log")

	cmdCtx := cmd.Context()
	stdout := cmd.OutOrStdout()
	printed := false

	opts := logs.TailOptions{Offset: -1, Limit: lines}
	for {
		result, err := logs.Tail(cmdCtx, logPath, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		for _, line := range result.Lines {
			fmt.Fprintln(stdout, line)
			printed = true
		}
		if !follow {
			if !printed {
				fmt.Fprintln(stdout, "No log entries available")
			}
			return nil
		}
		opts = logs.TailOptions{
			Offset: result.Offset,
			Follow: true,
			Wait:   time.Second,
		}
		select {
		case <-cmdCtx.Done():
			return nil
		default:
		}
	}
}
