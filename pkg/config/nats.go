package config

import (
	"fmt"
	"strings"
	"time"
)

type NATSConfig struct {
	Enabled bool          `koanf:"enabled"`
	Url     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
	Stream  StreamConfig  `koanf:"stream"`
}

type StreamConfig struct {
	Name   string        `koanf:"name"`
	MaxAge time.Duration `koanf:"maxage"`
}

// String returns a string representation of the NATS configuration.
func (c *NATSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  url: %s\n", c.Url))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  stream.name: %s\n", c.Stream.Name))
	b.WriteString(fmt.Sprintf("  stream.maxage: %s\n", c.Stream.MaxAge))
	return b.String()
}

func (c *NATSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Url == "" {
		return fmt.Errorf("NATS URL is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats dial timeout is not configured")
	}
	if c.Stream.Name == "" {
		return fmt.Errorf("nats stream name is not configured")
	}
	if c.Stream.MaxAge < 0 {
		return fmt.Errorf("nats stream max age must not be negative")
	}
	return nil
}
