package config

import "strings"

const (
	defaultConfigPath         = "~/.config/sweeper/config.toml"
	defaultStateDir           = "~/.local/share/sweeper"
	defaultLogDir             = "~/.local/share/sweeper/logs"
	defaultPolicy             = PolicyBestEffort
	defaultLockRetryMS        = 500
	defaultHistoryRetention   = 90
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	deviceEnvOverrideVariable = "SWEEPER_DEVICE_ENV"
	commandOverrideVariable   = "SWEEPER_COMMAND"
)

// Reference collaborator invocation. The dispatcher falls back to these when
// no command is configured.
const (
	DefaultCommand   = "python"
	DefaultScript    = "music_trees/analyze.py"
	DefaultDeviceEnv = "CUDA_VISIBLE_DEVICES"
)

// Failure policies understood by the dispatcher.
const (
	PolicyBestEffort = "best_effort"
	PolicyFailFast   = "fail_fast"
)

// NormalizePolicy canonicalizes a policy name ("Fail-Fast" becomes
// "fail_fast"). Empty input stays empty.
func NormalizePolicy(value string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Dispatch: Dispatch{
			Command:   DefaultCommand,
			Args:      []string{DefaultScript},
			DeviceEnv: DefaultDeviceEnv,
			Policy:    defaultPolicy,
		},
		Locks: Locks{
			Enabled:         true,
			RetryIntervalMS: defaultLockRetryMS,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetention,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
