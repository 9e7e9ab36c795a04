package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sharkye1/Szhimatar2/internal/ipc"
)

func newPresetCommand(ctx *commandContext) *cobra.Command {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage render presets",
	}

	presetCmd.AddCommand(newPresetListCommand(ctx))
	presetCmd.AddCommand(newPresetShowCommand(ctx))
	presetCmd.AddCommand(newPresetSaveCommand(ctx))
	presetCmd.AddCommand(newPresetRemoveCommand(ctx))

	return presetCmd
}

func newPresetListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListPresets()
				if err != nil {
					return err
				}
				if resp == nil {
					resp = &ipc.ListPresetsResponse{}
				}
				if jsonOutput {
					return writeJSON(cmd, resp.Presets)
				}
				if len(resp.Presets) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No presets stored")
					return nil
				}
				rows := make([][]string, 0, len(resp.Presets))
				for _, preset := range resp.Presets {
					rows = append(rows, []string{
						preset.Name,
						preset.VideoCodec,
						preset.AudioCodec,
						preset.Description,
					})
				}
				table := renderTable(
					[]string{"Name", "Video", "Audio", "Description"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print presets as JSON")
	return cmd
}

func newPresetShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show one preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetPreset(args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, resp.Preset)
			})
		},
	}
}

func newPresetSaveCommand(ctx *commandContext) *cobra.Command {
	var description string
	var videoCodec string
	var audioCodec string
	var presetArgs []string

	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Create or replace a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return errors.New("preset name is required")
			}
			preset := ipc.Preset{
				Name:        name,
				Description: description,
				Args:        presetArgs,
				VideoCodec:  videoCodec,
				AudioCodec:  audioCodec,
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.SavePreset(preset); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved preset %s\n", name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Preset description")
	cmd.Flags().StringVar(&videoCodec, "video", "", "Video codec (e.g. libx264)")
	cmd.Flags().StringVar(&audioCodec, "audio", "", "Audio codec (e.g. aac)")
	cmd.Flags().StringArrayVar(&presetArgs, "arg", nil, "Raw FFmpeg argument (repeatable, overrides codec shorthands)")
	return cmd
}

func newPresetRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DeletePreset(args[0])
				if err != nil {
					return err
				}
				if resp == nil || !resp.Deleted {
					fmt.Fprintf(cmd.OutOrStdout(), "Preset %s not found\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted preset %s\n", args[0])
				return nil
			})
		},
	}
}
