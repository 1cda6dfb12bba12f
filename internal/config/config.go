// Package config loads runtime settings from an optional YAML file with
// ABU_-prefixed environment overrides layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ABU_"

// Config covers both the storefront backend and the headless client.
type Config struct {
	Addr              string  `koanf:"addr"`
	Env               string  `koanf:"env"`
	APIBaseURL        string  `koanf:"api_base_url"`
	DashboardPath     string  `koanf:"dashboard_path"`
	StoragePath       string  `koanf:"storage_path"`
	ToastTTLMillis    int     `koanf:"toast_ttl_ms"`
	SessionSigningKey string  `koanf:"session_signing_key"`
	LoginRPS          float64 `koanf:"login_rps"`
	LoginBurst        int     `koanf:"login_burst"`
}

// Load builds the configuration: defaults, then the YAML file at path (when
// non-empty), then environment variables. ABU_API_BASE_URL overrides
// api_base_url, and so on.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Addr:           ":8080",
		Env:            "development",
		APIBaseURL:     "http://localhost:8080",
		DashboardPath:  "/user-dashboard.html",
		StoragePath:    defaultStoragePath(),
		ToastTTLMillis: 2200,
		LoginRPS:       2,
		LoginBurst:     5,
	}

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the environment is a production deployment.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	default:
		return false
	}
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "abu-local.json"
	}
	return filepath.Join(dir, "abu", "local.json")
}
