package config

import (
	"fmt"
	"strings"
	"time"
)

type UIConfig struct {
	Enabled    bool          `koanf:"enabled"`
	CookieName string        `koanf:"cookiename"`
	SessionTTL time.Duration `koanf:"sessionttl"`
}

// String returns a string representation of the UI configuration.
func (c *UIConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- UI ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  cookiename: %s\n", c.CookieName))
	b.WriteString(fmt.Sprintf("  sessionttl: %s\n", c.SessionTTL))
	return b.String()
}

func (c *UIConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.CookieName == "" {
		return fmt.Errorf("ui cookie name is not configured")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("ui session ttl must be greater than 0")
	}
	return nil
}
