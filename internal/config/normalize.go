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
	c.normalizeDispatch()
	c.normalizeLocks()
	c.normalizeHistory()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDispatch() {
	if value, ok := os.LookupEnv(commandOverrideVariable); ok && strings.TrimSpace(value) != "" {
		fields := strings.Fields(value)
		c.Dispatch.Command = fields[0]
		c.Dispatch.Args = fields[1:]
	}
	if value, ok := os.LookupEnv(deviceEnvOverrideVariable); ok && strings.TrimSpace(value) != "" {
		c.Dispatch.DeviceEnv = value
	}

	c.Dispatch.Command = strings.TrimSpace(c.Dispatch.Command)
	if c.Dispatch.Command == "" {
		c.Dispatch.Command = DefaultCommand
	}
	args := make([]string, 0, len(c.Dispatch.Args))
	for _, arg := range c.Dispatch.Args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Dispatch.Args = args

	c.Dispatch.DeviceEnv = strings.TrimSpace(c.Dispatch.DeviceEnv)
	if c.Dispatch.DeviceEnv == "" {
		c.Dispatch.DeviceEnv = DefaultDeviceEnv
	}

	policy := NormalizePolicy(c.Dispatch.Policy)
	if policy == "" {
		policy = defaultPolicy
	}
	c.Dispatch.Policy = policy

	if c.Dispatch.TimeoutSeconds < 0 {
		c.Dispatch.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeLocks() {
	if c.Locks.RetryIntervalMS <= 0 {
		c.Locks.RetryIntervalMS = defaultLockRetryMS
	}
}

func (c *Config) normalizeHistory() {
	if c.History.RetentionDays < 0 {
		c.History.RetentionDays = 0
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
}
