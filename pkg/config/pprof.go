package config

import (
	"fmt"
	"strings"
)

// PProfConfig enables the debug listener. The rates are passed to
// runtime.SetBlockProfileRate and runtime.SetMutexProfileFraction; zero
// leaves those profiles off.
type PProfConfig struct {
	Enabled              bool   `koanf:"enabled"`
	Addr                 string `koanf:"addr"`
	BlockProfileRate     int    `koanf:"blockprofilerate"`
	MutexProfileFraction int    `koanf:"mutexprofilefraction"`
}

func (c *PProfConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- PProf ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  address: %s\n", c.Addr))
	if c.Enabled {
		b.WriteString(fmt.Sprintf("  blockprofilerate: %d\n", c.BlockProfileRate))
		b.WriteString(fmt.Sprintf("  mutexprofilefraction: %d\n", c.MutexProfileFraction))
	}
	return b.String()
}

func (c *PProfConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("pprof is enabled but address is not configured")
	}
	if c.BlockProfileRate < 0 || c.MutexProfileFraction < 0 {
		return fmt.Errorf("pprof profile rates must not be negative")
	}
	return nil
}
