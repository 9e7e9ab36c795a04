package config

const (
	defaultLogDir               = "~/.local/share/szhimatar/logs"
	defaultPresetsDir           = "~/.config/szhimatar/presets"
	defaultStatsDB              = "~/.local/share/szhimatar/stats.db"
	defaultOutputSuffix         = "_szhatoe"
	defaultVideoCodec           = "libx264"
	defaultAudioCodec           = "aac"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 60
	defaultNtfyServer           = "https://ntfy.sh"
	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:     defaultLogDir,
			PresetsDir: defaultPresetsDir,
			StatsDB:    defaultStatsDB,
		},
		Render: Render{
			OutputSuffix:      defaultOutputSuffix,
			DefaultVideoCodec: defaultVideoCodec,
			DefaultAudioCodec: defaultAudioCodec,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			NtfyServer:     defaultNtfyServer,
			RequestTimeout: defaultNotifyRequestTimeout,
			Renders:        true,
			Errors:         true,
		},
	}
}
