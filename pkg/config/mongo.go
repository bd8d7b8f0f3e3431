package config

import (
	"fmt"
	"strings"
	"time"
)

type MongoConfig struct {
	URI              string        `koanf:"uri"`
	Database         string        `koanf:"database"`
	ConnectTimeout   time.Duration `koanf:"connecttimeout"`
	OperationTimeout time.Duration `koanf:"operationtimeout"`
	MaxPoolSize      uint64        `koanf:"maxpoolsize"`
}

// String returns a string representation of the MongoDB configuration with credentials masked.
func (c *MongoConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- MongoDB ---\n")
	b.WriteString(fmt.Sprintf("  uri: %s\n", MaskURI(c.URI)))
	b.WriteString(fmt.Sprintf("  database: %s\n", c.Database))
	b.WriteString(fmt.Sprintf("  connecttimeout: %s\n", c.ConnectTimeout))
	b.WriteString(fmt.Sprintf("  operationtimeout: %s\n", c.OperationTimeout))
	b.WriteString(fmt.Sprintf("  maxpoolsize: %d\n", c.MaxPoolSize))
	return b.String()
}

func (c *MongoConfig) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("mongo URI is not configured")
	}
	if !isValidMongoURI(c.URI) {
		return fmt.Errorf("mongo URI must start with 'mongodb://' or 'mongodb+srv://'")
	}
	if c.Database == "" {
		return fmt.Errorf("mongo database is not configured")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("mongo connect timeout must be greater than 0")
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("mongo operation timeout must be greater than 0")
	}
	return nil
}

// MaskURI hides the user info part of a connection string.
func MaskURI(uri string) string {
	if uri == "" {
		return "<not configured>"
	}
	scheme, rest, found := strings.Cut(uri, "://")
	if !found {
		return "****"
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://****@" + rest[at+1:]
	}
	return uri
}

func isValidMongoURI(uri string) bool {
	return strings.HasPrefix(uri, "mongodb://") ||
		strings.HasPrefix(uri, "mongodb+srv://")
}
