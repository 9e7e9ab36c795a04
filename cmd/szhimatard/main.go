// Command szhimatard runs the render daemon in the foreground. It is the
// service-manager entry point; interactive sessions normally reach the same
// runtime through `szhimatar daemon run`.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/sharkye1/Szhimatar2/internal/config"
	"github.com/sharkye1/Szhimatar2/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Path to the configuration file")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	diagnostic := flag.Bool("diagnostic", false, "Enable diagnostic logging for this run")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	opts := daemonrun.Options{
		LogLevel:   resolveLogLevel(*logLevel, cfg),
		Diagnostic: *diagnostic,
	}
	if err := daemonrun.Run(context.Background(), cfg, opts); err != nil {
		log.Fatalf("szhimatard: %v", err)
	}
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
