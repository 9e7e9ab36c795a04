package config

import (
	"errors"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. It expects to run on a
// normalized config but also guards hand-built configs used in tests.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.PresetsDir) == "" {
		return errors.New("paths.presets_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StatsDB) == "" {
		return errors.New("paths.stats_db must be set")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.OutputSuffix == "" {
		return errors.New("render.output_suffix must be set")
	}
	if strings.ContainsAny(c.Render.OutputSuffix, `/\`) {
		return errors.New("render.output_suffix must not contain path separators")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyServer)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return errors.New("notifications.ntfy_server must be an http(s) URL when notifications.ntfy_topic is set")
	}
	return nil
}
