package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharkye1/Szhimatar2/internal/ipc"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List active render jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ActiveRenders()
				if err != nil {
					return err
				}
				if resp == nil {
					resp = &ipc.ActiveRendersResponse{}
				}
				if jsonOutput {
					return writeJSON(cmd, resp.Jobs)
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No active renders")
					return nil
				}
				table := renderTable(
					[]string{"Job", "Title", "Progress", "FPS", "Speed", "ETA", "Elapsed", "PID"},
					buildJobRows(resp.Jobs),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print jobs as JSON")
	return cmd
}
