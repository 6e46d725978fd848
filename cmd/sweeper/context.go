package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"sweeper/internal/config"
	"sweeper/internal/logging"
)

type commandContext struct {
	flags *runFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(flags *runFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.configPath))
		if err != nil {
			c.configErr = err
			return
		}
		if err := applyFlagOverrides(cfg, c.flags); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// applyFlagOverrides layers root flags over the loaded config and revalidates.
func applyFlagOverrides(cfg *config.Config, flags *runFlags) error {
	if flags == nil {
		return nil
	}
	if v := strings.TrimSpace(flags.policy); v != "" {
		cfg.Dispatch.Policy = config.NormalizePolicy(v)
	}
	if flags.timeout > 0 {
		cfg.Dispatch.TimeoutSeconds = int(flags.timeout.Seconds())
		if cfg.Dispatch.TimeoutSeconds == 0 {
			cfg.Dispatch.TimeoutSeconds = 1
		}
	}
	if flags.sorted {
		cfg.Dispatch.SortEntries = true
	}
	if v := strings.TrimSpace(flags.deviceEnv); v != "" {
		cfg.Dispatch.DeviceEnv = v
	}
	if fields := strings.Fields(flags.command); len(fields) > 0 {
		cfg.Dispatch.Command = fields[0]
		cfg.Dispatch.Args = fields[1:]
	}
	if flags.noHistory {
		cfg.History.Enabled = false
	}
	if v := strings.TrimSpace(flags.logLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// logger builds the run logger writing to w and the log file.
func (c *commandContext) logger(w io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg, w, "")
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
