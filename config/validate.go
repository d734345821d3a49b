package config

import (
	"fmt"
	"strings"

	"rentchain/native/common"
)

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	ids, err := c.ProgramIDs()
	if err != nil {
		return err
	}
	if ids.Directory == ids.Tracker || ids.Directory == ids.Custody || ids.Tracker == ids.Custody {
		return fmt.Errorf("programs: identities must be distinct")
	}
	if _, err := c.Pauses(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.Level: unsupported level %q", c.Log.Level)
	}
	if c.RPC.RateLimitPerSecond < 0 || c.RPC.RateLimitBurst < 0 {
		return fmt.Errorf("rpc: rate limits must not be negative")
	}
	if c.RPC.MaxRequestBodyBytes < 0 {
		return fmt.Errorf("rpc: MaxRequestBodyBytes must not be negative")
	}
	return nil
}

// Pauses returns the configured pause set.
func (c *Config) Pauses() (common.Pauses, error) {
	p, err := common.NewPauses(c.PausedModules...)
	if err != nil {
		return nil, fmt.Errorf("PausedModules: %w", err)
	}
	return p, nil
}
