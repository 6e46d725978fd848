package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateDispatch() error {
	switch c.Dispatch.Policy {
	case PolicyBestEffort, PolicyFailFast:
	default:
		return fmt.Errorf("dispatch.policy must be %q or %q, got %q", PolicyBestEffort, PolicyFailFast, c.Dispatch.Policy)
	}
	if strings.ContainsAny(c.Dispatch.DeviceEnv, "= \t\n") {
		return fmt.Errorf("dispatch.device_env %q is not a valid variable name", c.Dispatch.DeviceEnv)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
