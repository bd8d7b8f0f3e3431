package config

import (
	"fmt"
	"strings"
	"time"
)

// ShutdownConfig controls how a service winds down after SIGINT/SIGTERM.
//
// ReadinessGrace is how long the service keeps serving after the readiness
// file is removed, so the orchestrator can stop routing traffic to it first.
type ShutdownConfig struct {
	Timeout        time.Duration `koanf:"timeout"`
	ReadinessGrace time.Duration `koanf:"readinessgrace"`
}

func (c *ShutdownConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Shutdown ---\n")
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  readinessgrace: %s\n", c.ReadinessGrace))
	return b.String()
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("shutdown timeout is not configured")
	}
	if c.ReadinessGrace < 0 {
		return fmt.Errorf("shutdown readiness grace must not be negative")
	}
	if c.ReadinessGrace >= c.Timeout {
		return fmt.Errorf("shutdown readiness grace (%s) must be shorter than the timeout (%s)", c.ReadinessGrace, c.Timeout)
	}
	return nil
}
