// Package config loads the analysis parameters and service settings shared by
// the command line tools.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"tidal_efficiency/internal/analysis"
)

// Config is the file layout of tidal.yaml.
type Config struct {
	Analysis analysis.Params `yaml:"analysis"`
	// Baseline is the path of a saved baseline artifact used for valuation.
	Baseline    string          `yaml:"baseline"`
	DatabaseURL string          `yaml:"database_url"`
	Dashboard   DashboardConfig `yaml:"dashboard"`
	Live        LiveConfig      `yaml:"live"`
	WaterAPI    WaterAPIConfig  `yaml:"water_api"`
}

// DashboardConfig configures cmd/server.
type DashboardConfig struct {
	Addr       string `yaml:"addr"`
	HistoryDir string `yaml:"history_dir"`
	// JWTSecret enables bearer auth on /api/* when set.
	JWTSecret string `yaml:"jwt_secret"`
}

// LiveConfig selects where live readings come from.
type LiveConfig struct {
	// Device is a character device streaming "sea|lake|waste" lines.
	Device string `yaml:"device"`
	// Replay is a file of recorded lines cycled when the device is absent.
	Replay   string        `yaml:"replay"`
	Interval time.Duration `yaml:"interval"`
}

// WaterAPIConfig points at the water authority's level service.
type WaterAPIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	ServiceKey string        `yaml:"service_key"`
	Station    string        `yaml:"station"`
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Analysis: analysis.DefaultParams(),
		Dashboard: DashboardConfig{
			Addr: ":8080",
		},
		Live: LiveConfig{
			Interval: time.Second,
		},
		WaterAPI: WaterAPIConfig{
			Timeout: 10 * time.Second,
			Retries: 3,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Analysis.Validate(); err != nil {
		return cfg, err
	}
	if cfg.WaterAPI.Retries < 1 {
		cfg.WaterAPI.Retries = 1
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DatabaseURL = getenvDefault("DATABASE_URL", c.DatabaseURL)
	c.Dashboard.JWTSecret = getenvDefault("DASHBOARD_JWT_SECRET", c.Dashboard.JWTSecret)
	c.WaterAPI.ServiceKey = getenvDefault("WATER_API_KEY", c.WaterAPI.ServiceKey)
	c.Analysis.PricePerKWh = getenvFloatDefault("PRICE_PER_KWH", c.Analysis.PricePerKWh)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
