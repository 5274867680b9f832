package config

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/worldmirror/worldmirror/internal/core/visual"
)

// BridgeConfig selects the update-feed transport. An empty transport runs the
// client without a network feed.
type BridgeConfig struct {
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Config is the plain-data configuration of the client core. Validation is
// fatal at configuration time; the engine never starts on bad values.
type Config struct {
	MaxEntities         int               `json:"max_entities" yaml:"max_entities"`
	UpdateBatchSize     int               `json:"update_batch_size" yaml:"update_batch_size"`
	FrameBudgetFraction float64           `json:"frame_budget_fraction" yaml:"frame_budget_fraction"`
	FrameInterval       time.Duration     `json:"frame_interval" yaml:"frame_interval"`
	LOD                 visual.Thresholds `json:"lod" yaml:"lod"`
	Bridge              BridgeConfig      `json:"bridge,omitempty" yaml:"bridge,omitempty"`
	LogLevel            string            `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

func Default() *Config {
	return &Config{
		MaxEntities:         1000,
		UpdateBatchSize:     50,
		FrameBudgetFraction: 0.5,
		FrameInterval:       time.Second / 60,
		LOD:                 visual.DefaultThresholds(),
		LogLevel:            "info",
	}
}

// LoadYAML decodes a config over the defaults.
func LoadYAML(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Engine extracts the synchronization-engine view of the config.
func (c *Config) Engine() visual.EngineConfig {
	return visual.EngineConfig{
		MaxEntities:    c.MaxEntities,
		BatchSize:      c.UpdateBatchSize,
		BudgetFraction: c.FrameBudgetFraction,
		FrameInterval:  c.FrameInterval,
	}
}

func (c *Config) Validate() error {
	if err := c.Engine().Validate(); err != nil {
		return err
	}
	if err := c.LOD.Validate(); err != nil {
		return err
	}
	switch c.Bridge.Transport {
	case "", "websocket", "quic":
	default:
		return fmt.Errorf("%w: unknown bridge transport %q", visual.ErrInvalidConfiguration, c.Bridge.Transport)
	}
	if c.Bridge.Transport != "" && c.Bridge.URL == "" {
		return fmt.Errorf("%w: bridge transport set without url", visual.ErrInvalidConfiguration)
	}
	return nil
}
