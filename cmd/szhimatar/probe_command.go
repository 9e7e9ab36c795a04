package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sharkye1/Szhimatar2/internal/config"
	"github.com/sharkye1/Szhimatar2/internal/ipc"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe FILE",
		Short: "Inspect a media file with ffprobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Probe(path)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "%s\n", resp.Path)
				fmt.Fprintf(stdout, "Format: %s, duration %s, %s\n",
					resp.FormatName,
					formatSeconds(resp.DurationSeconds),
					formatByteSize(resp.SizeBytes),
				)
				if len(resp.Streams) == 0 {
					fmt.Fprintln(stdout, "No streams reported")
					return nil
				}
				table := renderTable(
					[]string{"#", "Type", "Codec", "Detail", "Language"},
					buildStreamRows(resp.Streams),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(stdout, table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the probe result as JSON")
	return cmd
}

func buildStreamRows(streams []ipc.ProbeStream) [][]string {
	rows := make([][]string, 0, len(streams))
	for _, stream := range streams {
		detail := ""
		switch stream.CodecType {
		case "video":
			if stream.Width > 0 && stream.Height > 0 {
				detail = fmt.Sprintf("%dx%d", stream.Width, stream.Height)
			}
		case "audio":
			if stream.Channels > 0 {
				detail = fmt.Sprintf("%d ch", stream.Channels)
			}
		}
		if title := strings.TrimSpace(stream.Title); title != "" {
			if detail != "" {
				detail += ", "
			}
			detail += title
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", stream.Index),
			stream.CodecType,
			stream.CodecName,
			detail,
			stream.Language,
		})
	}
	return rows
}

func formatByteSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
