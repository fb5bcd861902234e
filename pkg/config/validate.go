package config

import (
	"fmt"
	"strings"
)

// Validate checks the loaded configuration. Load calls it automatically.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.DefaultDataset == "" {
		return fmt.Errorf("default_dataset is required")
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("tls: cert_file and key_file must be set together")
	}
	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("session.idle_ttl must be > 0 (got %v)", c.Session.IdleTTL)
	}
	if c.Sources.DBPath != "" && c.Sources.CheckInterval <= 0 {
		return fmt.Errorf("sources.check_interval must be > 0 (got %v)", c.Sources.CheckInterval)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}
	return nil
}

// MCPOverQUIC reports whether the MCP endpoint will actually be served.
func (c *Config) MCPOverQUIC() bool {
	return c.TLS.Enabled && c.MCP.Enabled
}
