package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/stationcore/core/model"
)

// MetricsConfig selects and configures the observability sinks wired up by
// app.New.
type MetricsConfig struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusAddr    string `json:"prometheus_addr"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults to the metrics configuration.
func (c *MetricsConfig) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9090"
	}
}

// Config is the complete configuration of the station control core.
type Config struct {
	Station model.StationConfig `json:"station"`
	Logging LoggingConfig       `json:"logging"`
	Metrics MetricsConfig       `json:"metrics"`
}

// Load reads a YAML or JSON configuration file at path, applies K_-prefixed
// environment overrides (e.g. K_STATION__GRID_CAPACITY), and validates the
// result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Logging.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Station.Validate(); err != nil {
		return nil, fmt.Errorf("station config: %w", err)
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
