// Package configloader assembles a service configuration from layered sources.
package configloader

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Validator interface {
	Validate() error
}

const (
	defaultConfigFile = "config.yaml"
	dotEnvFile        = ".env"
)

// Load reads the configuration of serviceName and validates it.
//
// Sources, lowest priority first:
//  1. the YAML file named by <SERVICE>_CONFIG_FILE, or config.yaml in the working directory
//  2. <SERVICE>_* entries of a .env file in the working directory
//  3. <SERVICE>_* process environment variables
//
// Variable names map to keys by dropping the prefix and turning "_" into ".",
// so PRODUCT_MONGO_URI sets mongo.uri. Missing files are skipped.
func Load[T Validator](serviceName string) (T, error) {
	var cfg T
	k := koanf.New(".")
	envPrefix := strings.ToUpper(serviceName) + "_"

	configFile := os.Getenv(envPrefix + "CONFIG_FILE")
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("error loading config file %q: %w", configFile, err)
		}
	}

	toKey := keyMapper(envPrefix)
	if err := loadDotEnv(k, envPrefix, toKey); err != nil {
		log.Printf("WARN: %v", err)
	}
	if err := k.Load(env.Provider(envPrefix, ".", toKey), nil); err != nil {
		log.Printf("WARN: error loading system env vars: %v", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func keyMapper(envPrefix string) func(string) string {
	lowerPrefix := strings.ToLower(envPrefix)
	return func(key string) string {
		key = strings.TrimPrefix(strings.ToLower(key), lowerPrefix)
		return strings.ReplaceAll(key, "_", ".")
	}
}

// loadDotEnv loads the prefixed entries of .env. Entries for other services are ignored.
func loadDotEnv(k *koanf.Koanf, envPrefix string, toKey func(string) string) error {
	values, err := godotenv.Read(dotEnvFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading %s file: %w", dotEnvFile, err)
	}
	m := make(map[string]any, len(values))
	for key, value := range values {
		if !strings.HasPrefix(strings.ToUpper(key), envPrefix) {
			continue
		}
		m[toKey(key)] = value
	}
	if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
		return fmt.Errorf("error loading %s: %w", dotEnvFile, err)
	}
	return nil
}
