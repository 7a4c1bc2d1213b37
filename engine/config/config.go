// Package config loads service settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
	"github.com/WessleyAI/wessley-inspect/engine/inspection"
	"github.com/WessleyAI/wessley-inspect/engine/source"
)

// FileEnv names the environment variable pointing at the YAML file.
const FileEnv = "CONFIG_FILE"

// Config holds all service settings.
type Config struct {
	Port            string        `yaml:"port"`
	GRPCPort        string        `yaml:"grpc_port"`
	CORSOrigin      string        `yaml:"cors_origin"`
	SourceBaseURL   string        `yaml:"source_base_url"`
	SourceTimeout   time.Duration `yaml:"source_timeout"`
	SourceRate      float64       `yaml:"source_rate"`
	MapsHost        string        `yaml:"maps_host"` // host name only, e.g. www.google.com
	Timezone        string        `yaml:"timezone"`
	RefreshInterval time.Duration `yaml:"refresh_interval"` // 0 disables polling
	NATSURL         string        `yaml:"nats_url"`         // empty disables the NATS responders
	Defaults        source.Params `yaml:"defaults"`
	ServiceName     string        `yaml:"otel_service_name"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:          "8080",
		GRPCPort:      "9090",
		CORSOrigin:    "*",
		SourceBaseURL: source.DefaultBaseURL,
		SourceTimeout: 30 * time.Second,
		SourceRate:    5,
		MapsHost:      inspection.DefaultMapsHost,
		Timezone:      "Asia/Bangkok",
		Defaults:      source.DefaultParams,
		ServiceName:   "wessley-inspect",
	}
}

// Load reads defaults, then the YAML file at path (a missing file is not an
// error), then environment overrides, and validates the result. An empty
// path uses $CONFIG_FILE.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = getenv(FileEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	cfg.Defaults = cfg.Defaults.Normalized().Merge(source.DefaultParams)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("GRPC_PORT", &c.GRPCPort)
	str("CORS_ORIGIN", &c.CORSOrigin)
	str("SOURCE_BASE_URL", &c.SourceBaseURL)
	str("MAPS_HOST", &c.MapsHost)
	str("TIMEZONE", &c.Timezone)
	str("NATS_URL", &c.NATSURL)
	str("DEFAULT_AREA", &c.Defaults.Area)
	str("DEFAULT_FREQUENCY", &c.Defaults.Frequency)
	str("DEFAULT_TYPE", &c.Defaults.VehicleType)
	str("OTEL_SERVICE_NAME", &c.ServiceName)

	for key, dst := range map[string]*time.Duration{
		"SOURCE_TIMEOUT":   &c.SourceTimeout,
		"REFRESH_INTERVAL": &c.RefreshInterval,
	} {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, domain.NewValidationError(key, v, domain.ErrInvalidParam))
			}
			*dst = d
		}
	}
	if v := getenv("SOURCE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: SOURCE_RATE: %w", domain.NewValidationError("SOURCE_RATE", v, domain.ErrInvalidParam))
		}
		c.SourceRate = f
	}
	if v := getenv("DEFAULT_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: DEFAULT_DAYS: %w", domain.NewValidationError("DEFAULT_DAYS", v, domain.ErrInvalidParam))
		}
		c.Defaults.Days = n
	}
	return nil
}

// Validate checks the settings that would otherwise fail at first use.
func (c Config) Validate() error {
	if c.Port == "" {
		return domain.NewValidationError("port", c.Port, domain.ErrInvalidParam)
	}
	if c.SourceTimeout < 0 {
		return domain.NewValidationError("source_timeout", c.SourceTimeout.String(), domain.ErrInvalidParam)
	}
	if c.SourceRate < 0 {
		return domain.NewValidationError("source_rate", strconv.FormatFloat(c.SourceRate, 'g', -1, 64), domain.ErrInvalidParam)
	}
	if c.RefreshInterval < 0 {
		return domain.NewValidationError("refresh_interval", c.RefreshInterval.String(), domain.ErrInvalidParam)
	}
	if _, err := domain.LoadLocale(c.Timezone); err != nil {
		return err
	}
	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("config: defaults: %w", err)
	}
	return nil
}

// Locale returns the display locale in the configured time zone.
func (c Config) Locale() domain.Locale {
	loc, err := domain.LoadLocale(c.Timezone)
	if err != nil {
		return domain.DefaultLocale
	}
	return loc
}

// SourceConfig returns the upstream client settings.
func (c Config) SourceConfig() source.Config {
	sc := source.DefaultConfig()
	sc.BaseURL = c.SourceBaseURL
	if c.SourceTimeout > 0 {
		sc.Timeout = c.SourceTimeout
	}
	sc.Rate = c.SourceRate
	return sc
}
