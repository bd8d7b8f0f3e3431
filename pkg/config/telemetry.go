package config

import (
	"fmt"
	"strings"
	"time"
)

type TelemetryConfig struct {
	Enabled bool         `koanf:"enabled"`
	Traces  TracesConfig `koanf:"traces"`
}

// TracesConfig sets the OTLP/HTTP exporter. SampleRatio is the share of root
// traces kept, from 0 to 1; child spans follow their parent's decision.
type TracesConfig struct {
	OtlpHttp    OtlpHttpConfig `koanf:"otlphttp"`
	SampleRatio *float64       `koanf:"sampleratio"`
}

type OtlpHttpConfig struct {
	Endpoint string        `koanf:"endpoint"`
	Insecure bool          `koanf:"insecure"`
	Timeout  time.Duration `koanf:"timeout"`
}

// Ratio returns the configured sample ratio, 1 when unset.
func (c *TracesConfig) Ratio() float64 {
	if c.SampleRatio == nil {
		return 1
	}
	return *c.SampleRatio
}

func (c *TelemetryConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Telemetry ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  traces.otlphttp.endpoint: %s\n", c.Traces.OtlpHttp.Endpoint))
	b.WriteString(fmt.Sprintf("  traces.otlphttp.insecure: %v\n", c.Traces.OtlpHttp.Insecure))
	b.WriteString(fmt.Sprintf("  traces.otlphttp.timeout: %v\n", c.Traces.OtlpHttp.Timeout))
	b.WriteString(fmt.Sprintf("  traces.sampleratio: %.2f\n", c.Traces.Ratio()))
	return b.String()
}

func (c *TelemetryConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Traces.OtlpHttp.Endpoint == "" {
		return fmt.Errorf("OTel endpoint is not configured")
	}
	if c.Traces.OtlpHttp.Timeout <= 0 {
		return fmt.Errorf("telemetry timeout must be greater than 0")
	}
	if r := c.Traces.Ratio(); r < 0 || r > 1 {
		return fmt.Errorf("telemetry sample ratio must be between 0 and 1, got %v", r)
	}

	return nil
}
