package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.MinWall.Samples)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dfm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  cache_size: 16
engine:
  timeout: 2s
features:
  strict: false
min_wall:
  samples: 1200
scoring:
  geometry:
    recommend_at: 25
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 16, cfg.Server.CacheSize)
	assert.Equal(t, 2*time.Second, cfg.Engine.Timeout)
	assert.False(t, cfg.Features.Strict)
	assert.Equal(t, 1200, cfg.MinWall.Samples)
	assert.Equal(t, 25, cfg.Scoring.Geometry.RecommendAt)

	// Untouched keys keep their defaults.
	def := Default()
	assert.Equal(t, def.Server.MaxBodyBytes, cfg.Server.MaxBodyBytes)
	assert.Equal(t, def.Features.ParallelDot, cfg.Features.ParallelDot)
	assert.Equal(t, def.MinWall.MaxSamples, cfg.MinWall.MaxSamples)
	assert.Equal(t, 30, cfg.Scoring.Geometry.MaxPoints)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "reading config file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [1, 2"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parsing YAML")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("scoring:\n  finish:\n    max_points: 20\n"), 0o644))
	_, err = Load(invalid)
	assert.ErrorContains(t, err, "sum to 105")
}

func TestSaveDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dfm.yaml")
	require.NoError(t, SaveDefault(path))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(env(map[string]string{
		"DFM_ADDR":            "127.0.0.1:7000",
		"DFM_LOG_FORMAT":      "json",
		"DFM_CACHE_SIZE":      "0",
		"DFM_ENGINE_TIMEOUT":  "750ms",
		"DFM_MESH_CELLS":      "64",
		"DFM_MINWALL_SAMPLES": "300",
		"DFM_MINWALL_WORKERS": "3",
		"DFM_MINWALL_SEED":    "42",
		"DFM_POCKET_STRICT":   "false",
		"DFM_LOG_LEVEL":       "",
	})))
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level, "empty values are ignored")
	assert.Zero(t, cfg.Server.CacheSize)
	assert.Equal(t, 750*time.Millisecond, cfg.Engine.Timeout)
	assert.Equal(t, 64, cfg.Engine.MeshCells)
	assert.Equal(t, 300, cfg.MinWall.Samples)
	assert.Equal(t, 3, cfg.MinWall.Workers)
	assert.Equal(t, uint64(42), cfg.MinWall.Seed)
	assert.False(t, cfg.Features.Strict)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvReportsEveryBadValue(t *testing.T) {
	err := Default().ApplyEnv(env(map[string]string{
		"DFM_CACHE_SIZE":    "lots",
		"DFM_MINWALL_SEED":  "-1",
		"DFM_POCKET_STRICT": "maybe",
	}))
	require.Error(t, err)
	assert.ErrorContains(t, err, "DFM_CACHE_SIZE")
	assert.ErrorContains(t, err, "DFM_MINWALL_SEED")
	assert.ErrorContains(t, err, "DFM_POCKET_STRICT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = " " }, "server.addr"},
		{"negative cache", func(c *Config) { c.Server.CacheSize = -1 }, "cache_size"},
		{"zero body limit", func(c *Config) { c.Server.MaxBodyBytes = 0 }, "max_body_bytes"},
		{"zero request timeout", func(c *Config) { c.Server.RequestTimeout = 0 }, "request_timeout"},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"engine timeout", func(c *Config) { c.Engine.Timeout = 0 }, "engine.timeout"},
		{"mesh cells", func(c *Config) { c.Engine.MeshCells = 4 }, "mesh_cells"},
		{"parallel dot", func(c *Config) { c.Features.ParallelDot = 1.5 }, "parallel_dot"},
		{"perpendicular above parallel", func(c *Config) { c.Features.PerpendicularDot = 0.95 }, "perpendicular_dot"},
		{"pocket walls", func(c *Config) { c.Features.MinPocketWalls = 0 }, "min_pocket_walls"},
		{"samples", func(c *Config) { c.MinWall.Samples = 0 }, "min_wall.samples"},
		{"epsilon", func(c *Config) { c.MinWall.Epsilon = 0 }, "epsilon"},
		{"threshold", func(c *Config) { c.MinWall.ThresholdMM = -1 }, "threshold_mm"},
		{"workers", func(c *Config) { c.MinWall.Workers = -1 }, "workers"},
		{"weights", func(c *Config) { c.Scoring.Material.MaxPoints = 15 }, "sum to 95"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.msg)
		})
	}
}
