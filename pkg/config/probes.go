package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ProbesConfig locates the files used by exec-based Kubernetes probes.
// With Dir set, the file names are resolved inside it.
type ProbesConfig struct {
	Dir               string        `koanf:"dir"`
	ReadinessFileName string        `koanf:"readinessfilename"`
	LivenessFileName  string        `koanf:"livenessfilename"`
	LivenessInterval  time.Duration `koanf:"livenessinterval"`
}

const (
	defaultProbesDir         = "/tmp"
	defaultReadinessFileName = "ready"
	defaultLivenessFileName  = "live"
	defaultLivenessInterval  = 20 * time.Second
)

func (c *ProbesConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Probes ---\n")
	b.WriteString(fmt.Sprintf("  readiness: %s\n", c.ReadinessFileName))
	b.WriteString(fmt.Sprintf("  liveness: %s every %s\n", c.LivenessFileName, c.LivenessInterval))
	return b.String()
}

// Validate fills in defaults and joins relative file names with Dir.
func (c *ProbesConfig) Validate() error {
	if c.Dir == "" {
		c.Dir = defaultProbesDir
	}
	if c.ReadinessFileName == "" {
		c.ReadinessFileName = defaultReadinessFileName
	}
	if c.LivenessFileName == "" {
		c.LivenessFileName = defaultLivenessFileName
	}
	if c.ReadinessFileName == c.LivenessFileName {
		return fmt.Errorf("probes: readiness and liveness files must differ")
	}
	if !filepath.IsAbs(c.ReadinessFileName) {
		c.ReadinessFileName = filepath.Join(c.Dir, c.ReadinessFileName)
	}
	if !filepath.IsAbs(c.LivenessFileName) {
		c.LivenessFileName = filepath.Join(c.Dir, c.LivenessFileName)
	}
	if c.LivenessInterval <= 0 {
		c.LivenessInterval = defaultLivenessInterval
	}
	return nil
}
