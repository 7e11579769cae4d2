// Package config loads runtime configuration from an optional YAML file
// overridden by BOBS_-prefixed environment variables.
package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Application ApplicationConfig `koanf:"application"`
	Events      EventsConfig      `koanf:"events"`
	Server      ServerConfig      `koanf:"server"`
	Streaming   StreamingConfig   `koanf:"streaming"`
	Tokens      TokensConfig      `koanf:"tokens"`
}

type ApplicationConfig struct {
	Name   string `koanf:"name"`
	Region string `koanf:"region"`
	UserID string `koanf:"user_id"`
}

type EventsConfig struct {
	// APIKey authorizes the HTTP events endpoint. Empty means no
	// remote backend; events buffer locally when BufferPath is set.
	APIKey   string `koanf:"api_key"`
	Endpoint string `koanf:"endpoint"`
	// BufferPath is the SQLite file for local buffering.
	BufferPath string `koanf:"buffer_path"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StreamingConfig struct {
	// Disabled suppresses events for streaming invocations entirely.
	Disabled bool `koanf:"disabled"`
	// CaptureChunks accumulates streamed text into a final event.
	CaptureChunks bool `koanf:"capture_chunks"`
}

type TokensConfig struct {
	// Estimate enables fallback token estimation when a response
	// reports no usage.
	Estimate bool `koanf:"estimate"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml when present, then applies environment
// overrides and defaults.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit file path. A missing file is not an
// error; environment variables alone are a valid configuration.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("BOBS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "BOBS_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("application.name") {
		k.Set("application.name", "bedrockobs")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Events.APIKey = substituteEnvVars(cfg.Events.APIKey)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
