package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharkye1/Szhimatar2/internal/ipc"
	"github.com/sharkye1/Szhimatar2/internal/stats"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var recentLimit int
	var export bool
	var clear bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show render statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case export:
				return runStatsExport(cmd, ctx)
			case clear:
				return runStatsClear(cmd, ctx)
			default:
				return runStatsSummary(cmd, ctx, recentLimit)
			}
		},
	}

	cmd.Flags().IntVar(&recentLimit, "recent", 10, "Number of recent renders to list")
	cmd.Flags().BoolVar(&export, "export", false, "Print the statistics export document as JSON")
	cmd.Flags().BoolVar(&clear, "clear", false, "Clear the render history")
	return cmd
}

// runStatsSummary reads through the daemon when it answers and falls back
// to the database directly when it does not. Both paths render the same
// tables.
func runStatsSummary(cmd *cobra.Command, ctx *commandContext, recentLimit int) error {
	var summary stats.Summary
	var recent []ipc.HistoryRecord

	err := ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.StatsSummary(recentLimit)
		if err != nil {
			return err
		}
		summary = resp.Summary
		recent = resp.Recent
		return nil
	})
	if errors.Is(err, ipc.ErrDaemonNotRunning) {
		summary, recent, err = readStatsDirect(cmd, ctx, recentLimit)
	}
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	rows := buildStatsRows(&summary)
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "No renders recorded")
		return nil
	}
	fmt.Fprint(stdout, renderTable([]string{"Outcome", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Total render time: %s\n", formatSeconds(summary.TotalRenderSeconds))
	if summary.LastFinishedAt != "" {
		fmt.Fprintf(stdout, "Last finished: %s\n", summary.LastFinishedAt)
	}

	if len(recent) == 0 {
		return nil
	}
	fmt.Fprintln(stdout)
	fmt.Fprint(stdout, renderTable(
		[]string{"Job", "Title", "Outcome", "Elapsed", "Finished"},
		buildHistoryRows(recent),
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintln(stdout)
	return nil
}

func readStatsDirect(cmd *cobra.Command, ctx *commandContext, recentLimit int) (stats.Summary, []ipc.HistoryRecord, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return stats.Summary{}, nil, err
	}
	store, err := stats.Open(cfg)
	if err != nil {
		return stats.Summary{}, nil, fmt.Errorf("open stats store: %w", err)
	}
	defer store.Close()

	summary, err := store.Summary(cmd.Context())
	if err != nil {
		return stats.Summary{}, nil, err
	}
	recent, err := store.Recent(cmd.Context(), recentLimit)
	if err != nil {
		return stats.Summary{}, nil, err
	}
	return summary, recent, nil
}

func runStatsExport(cmd *cobra.Command, ctx *commandContext) error {
	var doc string
	err := ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.StatsExport()
		if err != nil {
			return err
		}
		doc = resp.JSON
		return nil
	})
	if errors.Is(err, ipc.ErrDaemonNotRunning) {
		cfg, cfgErr := ctx.ensureConfig()
		if cfgErr != nil {
			return cfgErr
		}
		store, openErr := stats.Open(cfg)
		if openErr != nil {
			return fmt.Errorf("open stats store: %w", openErr)
		}
		defer store.Close()
		data, exportErr := store.ExportJSON(cmd.Context())
		if exportErr != nil {
			return exportErr
		}
		doc = string(data)
		err = nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), doc)
	return nil
}

func runStatsClear(cmd *cobra.Command, ctx *commandContext) error {
	err := ctx.withClient(func(client *ipc.Client) error {
		_, err := client.StatsClear()
		return err
	})
	if errors.Is(err, ipc.ErrDaemonNotRunning) {
		cfg, cfgErr := ctx.ensureConfig()
		if cfgErr != nil {
			return cfgErr
		}
		store, openErr := stats.Open(cfg)
		if openErr != nil {
			return fmt.Errorf("open stats store: %w", openErr)
		}
		defer store.Close()
		if clearErr := store.Clear(cmd.Context()); clearErr != nil {
			return clearErr
		}
		err = nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Render history cleared")
	return nil
}
