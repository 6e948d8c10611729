// Package config loads service settings. Values start from Default, are
// overlaid by an optional YAML file and then by DFM_* environment
// variables, and are checked by Validate.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chazu/dfm/pkg/features"
	"github.com/chazu/dfm/pkg/minwall"
	"github.com/chazu/dfm/pkg/scoring"
)

// Config is the full set of settings.
type Config struct {
	Server   ServerConfig        `yaml:"server"`
	Log      LogConfig           `yaml:"log"`
	Engine   EngineConfig        `yaml:"engine"`
	Features features.Thresholds `yaml:"features"`
	MinWall  minwall.Options     `yaml:"min_wall"`
	Scoring  scoring.Policy      `yaml:"scoring"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// CacheSize is the number of analysis records kept. Zero disables
	// caching.
	CacheSize int `yaml:"cache_size"`
	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// RequestTimeout bounds one request, analysis included.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// EngineConfig configures part-script evaluation and meshing.
type EngineConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MeshCells int           `yaml:"mesh_cells"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			CacheSize:      128,
			MaxBodyBytes:   32 << 20,
			RequestTimeout: 60 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Engine: EngineConfig{
			Timeout:   5 * time.Second,
			MeshCells: 200,
		},
		Features: features.DefaultThresholds(),
		MinWall:  minwall.DefaultOptions(),
		Scoring:  scoring.DefaultPolicy(),
	}
}

// Load reads path over the defaults, applies the environment and
// validates. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveDefault writes the default configuration to path.
func SaveDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from DFM_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("DFM_ADDR", &c.Server.Addr)
	str("DFM_LOG_LEVEL", &c.Log.Level)
	str("DFM_LOG_FORMAT", &c.Log.Format)

	var errs []error
	errs = append(errs,
		integer("DFM_CACHE_SIZE", &c.Server.CacheSize),
		duration("DFM_REQUEST_TIMEOUT", &c.Server.RequestTimeout),
		duration("DFM_ENGINE_TIMEOUT", &c.Engine.Timeout),
		integer("DFM_MESH_CELLS", &c.Engine.MeshCells),
		integer("DFM_MINWALL_SAMPLES", &c.MinWall.Samples),
		integer("DFM_MINWALL_WORKERS", &c.MinWall.Workers),
	)
	if v, ok := lookup("DFM_MINWALL_SEED"); ok && v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("DFM_MINWALL_SEED: %w", err))
		} else {
			c.MinWall.Seed = seed
		}
	}
	if v, ok := lookup("DFM_POCKET_STRICT"); ok && v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DFM_POCKET_STRICT: %w", err))
		} else {
			c.Features.Strict = strict
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("config: server.addr is required")
	}
	if c.Server.CacheSize < 0 {
		return errors.New("config: server.cache_size must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("config: server.max_body_bytes must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("config: server.request_timeout must be positive")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}

	if c.Engine.Timeout <= 0 {
		return errors.New("config: engine.timeout must be positive")
	}
	if c.Engine.MeshCells < 8 {
		return errors.New("config: engine.mesh_cells must be at least 8")
	}

	th := c.Features
	if !(th.ParallelDot > 0 && th.ParallelDot <= 1) {
		return errors.New("config: features.parallel_dot must be within (0, 1]")
	}
	if !(th.PerpendicularDot >= 0 && th.PerpendicularDot < th.ParallelDot) {
		return errors.New("config: features.perpendicular_dot must be within [0, parallel_dot)")
	}
	if th.MinPocketWalls < 1 {
		return errors.New("config: features.min_pocket_walls must be at least 1")
	}

	mw := c.MinWall
	if mw.Samples <= 0 {
		return errors.New("config: min_wall.samples must be positive")
	}
	if !(mw.Epsilon > 0) {
		return errors.New("config: min_wall.epsilon must be positive")
	}
	if !(mw.ThresholdMM >= 0) {
		return errors.New("config: min_wall.threshold_mm must not be negative")
	}
	if mw.MaxSamples < 0 || mw.Workers < 0 {
		return errors.New("config: min_wall.max_samples and min_wall.workers must not be negative")
	}

	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
