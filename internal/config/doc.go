// Package config loads, normalizes, and validates sweeper configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SWEEPER_DEVICE_ENV and SWEEPER_COMMAND. The Config type centralizes the
// collaborator command, device variable, failure policy, and state locations
// the dispatcher and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical policy names, and clear validation errors.
package config
