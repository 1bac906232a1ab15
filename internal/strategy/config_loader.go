package strategy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"wedge/internal/broker"
)

// Config is one strategy entry in the YAML config file.
type Config struct {
	ID         string         `yaml:"id"`
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	Symbol     string         `yaml:"symbol"`
	Interval   string         `yaml:"interval"`
	Parameters map[string]any `yaml:"parameters"`
	IsActive   bool           `yaml:"is_active"`
}

// ConfigFile is the top-level YAML structure.
type ConfigFile struct {
	Strategies []Config `yaml:"strategies"`
}

// LoadConfig reads strategy definitions from a YAML file.
func LoadConfig(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file ConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Strategies, nil
}

// New builds a strategy instance from its config entry.
func New(cfg Config) (broker.Strategy, error) {
	switch cfg.Type {
	case "grid":
		count := intParam(cfg.Parameters, "grid_count", 10)
		spacing := floatParam(cfg.Parameters, "grid_spacing", 0.005)
		return NewGridStrategy(count, spacing), nil
	case "range_breakout":
		period := intParam(cfg.Parameters, "period", 24)
		k := floatParam(cfg.Parameters, "k", 0.1)
		qty := floatParam(cfg.Parameters, "quantity", 1)
		return NewRangeBreakoutStrategy(period, k, qty), nil
	default:
		return nil, fmt.Errorf("strategy: unknown type %q", cfg.Type)
	}
}

func floatParam(params map[string]any, key string, def float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

func intParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}
