// Package config defines the configuration of the product and audit services.
package config

import (
	"strings"

	"github.com/abgdnv/producttags/pkg/config"
	"github.com/abgdnv/producttags/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

// Config is the configuration of the product service.
type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Mongo      config.MongoConfig      `koanf:"mongo"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Metrics    config.MetricsConfig    `koanf:"metrics"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
	UI         config.UIConfig         `koanf:"ui"`
	Probes     config.ProbesConfig     `koanf:"probes"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Mongo.String())
	b.WriteString(c.GRPC.String())
	b.WriteString(c.Nats.String())
	b.WriteString(c.Resilience.String())
	b.WriteString(c.UI.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Metrics.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Probes.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.Mongo,
		&c.Log,
		&c.PProf,
		&c.Shutdown,
		&c.GRPC,
		&c.Nats,
		&c.Telemetry,
		&c.Metrics,
		&c.Resilience,
		&c.UI,
		&c.Probes,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
