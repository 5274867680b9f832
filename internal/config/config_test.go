package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldmirror/worldmirror/internal/core/visual"
)

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadYAML_OverridesDefaults(t *testing.T) {
	doc := strings.TrimSpace(`
max_entities: 250
update_batch_size: 20
frame_interval: 16666666
lod:
  high: 30
  medium: 80
  low: 160
  cull: 400
bridge:
  transport: websocket
  url: ws://localhost:9000/feed
log_level: debug
`)
	cfg, err := LoadYAML(strings.NewReader(doc))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 250, cfg.MaxEntities)
	assert.Equal(t, 20, cfg.UpdateBatchSize)
	assert.Equal(t, 16666666*time.Nanosecond, cfg.FrameInterval)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.5, cfg.FrameBudgetFraction)
	assert.Equal(t, 30.0, cfg.LOD.High)
	assert.Equal(t, "websocket", cfg.Bridge.Transport)
}

func TestLoadYAML_RejectsGarbage(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("max_entities: [broken"))
	assert.Error(t, err)
}

func TestValidate_Failures(t *testing.T) {
	mutate := func(fn func(*Config)) *Config {
		c := Default()
		fn(c)
		return c
	}

	cases := []struct {
		name string
		cfg  *Config
	}{
		{"zero max entities", mutate(func(c *Config) { c.MaxEntities = 0 })},
		{"negative batch size", mutate(func(c *Config) { c.UpdateBatchSize = -1 })},
		{"budget fraction above one", mutate(func(c *Config) { c.FrameBudgetFraction = 1.5 })},
		{"zero frame interval", mutate(func(c *Config) { c.FrameInterval = 0 })},
		{"unordered lod thresholds", mutate(func(c *Config) { c.LOD.Medium = c.LOD.High })},
		{"unknown transport", mutate(func(c *Config) { c.Bridge.Transport = "carrier-pigeon" })},
		{"transport without url", mutate(func(c *Config) { c.Bridge.Transport = "quic" })},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			assert.ErrorIs(t, err, visual.ErrInvalidConfiguration)
		})
	}
}

func TestEngine_ViewMirrorsConfig(t *testing.T) {
	cfg := Default()
	cfg.MaxEntities = 12
	cfg.UpdateBatchSize = 3

	ec := cfg.Engine()
	assert.Equal(t, 12, ec.MaxEntities)
	assert.Equal(t, 3, ec.BatchSize)
	assert.Equal(t, cfg.FrameInterval, ec.FrameInterval)
}
