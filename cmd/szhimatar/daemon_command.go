package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sharkye1/Szhimatar2/internal/config"
	"github.com/sharkye1/Szhimatar2/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var diagnostic bool
	var logLevel string
	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Run the daemon in the foreground",
		Annotations:  map[string]string{"skipConfigLoad": "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:   resolveLogLevel(logLevel, cfg),
				Diagnostic: diagnostic,
			})
		},
	}
	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	return cmd
}

func resolveLogLevel(flagValue string, cfg *config.Config) string {
	if level := strings.TrimSpace(flagValue); level != "" {
		return level
	}
	if cfg != nil {
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" {
			return level
		}
	}
	return "info"
}
