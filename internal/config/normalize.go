package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PresetsDir) == "" {
		c.Paths.PresetsDir = defaultPresetsDir
	}
	if c.Paths.PresetsDir, err = expandPath(c.Paths.PresetsDir); err != nil {
		return fmt.Errorf("paths.presets_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StatsDB) == "" {
		c.Paths.StatsDB = defaultStatsDB
	}
	if c.Paths.StatsDB, err = expandPath(c.Paths.StatsDB); err != nil {
		return fmt.Errorf("paths.stats_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() error {
	var err error
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	// Bare names stay as-is so PATH lookup applies; explicit paths get expanded.
	if strings.ContainsAny(c.Tools.FFmpeg, `/\~`) {
		if c.Tools.FFmpeg, err = expandPath(c.Tools.FFmpeg); err != nil {
			return fmt.Errorf("tools.ffmpeg: %w", err)
		}
	}
	if strings.ContainsAny(c.Tools.FFprobe, `/\~`) {
		if c.Tools.FFprobe, err = expandPath(c.Tools.FFprobe); err != nil {
			return fmt.Errorf("tools.ffprobe: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.OutputSuffix = strings.TrimSpace(c.Render.OutputSuffix)
	if c.Render.OutputSuffix == "" {
		c.Render.OutputSuffix = defaultOutputSuffix
	}
	c.Render.DefaultVideoCodec = strings.TrimSpace(c.Render.DefaultVideoCodec)
	if c.Render.DefaultVideoCodec == "" {
		c.Render.DefaultVideoCodec = defaultVideoCodec
	}
	c.Render.DefaultAudioCodec = strings.TrimSpace(c.Render.DefaultAudioCodec)
	if c.Render.DefaultAudioCodec == "" {
		c.Render.DefaultAudioCodec = defaultAudioCodec
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SZHIMATAR_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	c.Notifications.NtfyServer = strings.TrimSpace(strings.TrimSuffix(c.Notifications.NtfyServer, "/"))
	if c.Notifications.NtfyServer == "" {
		c.Notifications.NtfyServer = defaultNtfyServer
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
