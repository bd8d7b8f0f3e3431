package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/producttags/pkg/config"
	"github.com/abgdnv/producttags/pkg/config/configloader"
)

var _ configloader.Validator = (*AuditConfig)(nil)

// AuditConfig is the configuration of the audit service.
type AuditConfig struct {
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Subscriber config.SubscriberConfig `koanf:"subscriber"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Probes     config.ProbesConfig     `koanf:"probes"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
}

func (c *AuditConfig) String() string {
	var b strings.Builder
	b.WriteString(c.Nats.String())
	b.WriteString(c.Subscriber.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Probes.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid.
// The audit service cannot run without NATS.
func (c *AuditConfig) Validate() error {
	if !c.Nats.Enabled {
		return fmt.Errorf("nats must be enabled for the audit service")
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Nats.Validate(); err != nil {
		return err
	}
	if err := c.Subscriber.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.Probes.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	return nil
}
