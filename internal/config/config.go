package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
	"github.com/danielpatrickdp/adaptive-signal/internal/controller"
	"github.com/danielpatrickdp/adaptive-signal/internal/lanes"
	"gopkg.in/yaml.v3"
)

// #region config
// Config is the controller process configuration.
type Config struct {
	DBPath    string
	HTTPAddr  string
	GRPCAddr  string
	RedisAddr string // empty: green indices live in SQLite
	NATSURL   string // empty: decisions are not published

	Engine        arbiter.Config
	IdleInterval  time.Duration
	Intersections []controller.Intersection
}

// #endregion config

// #region file
// File is the YAML intersection file named by SIGNAL_CONFIG.
type File struct {
	Engine struct {
		Beta       *float64 `yaml:"beta"`
		Hysteresis *float64 `yaml:"hysteresis"`
	} `yaml:"engine"`
	IdleInterval  string             `yaml:"idle_interval"`
	Intersections []FileIntersection `yaml:"intersections"`
}

// FileIntersection is one intersection in the YAML file.
type FileIntersection struct {
	ID           string       `yaml:"id"`
	InitialGreen int          `yaml:"initial_green"`
	Lanes        []lanes.Spec `yaml:"lanes"`
}

// LoadFile reads and parses a YAML intersection file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &f, nil
}

// #endregion file

// #region load
// Load builds the configuration from environment variables and, when
// SIGNAL_CONFIG is set, the YAML file it names. Environment engine settings
// override the file.
func Load() (Config, error) {
	cfg := Config{
		DBPath:       envOr("SIGNAL_DB", "signal.db"),
		HTTPAddr:     envOr("SIGNAL_HTTP_ADDR", ":3000"),
		GRPCAddr:     envOr("SIGNAL_GRPC_ADDR", ":50051"),
		RedisAddr:    os.Getenv("SIGNAL_REDIS_ADDR"),
		NATSURL:      os.Getenv("SIGNAL_NATS_URL"),
		Engine:       arbiter.DefaultConfig(),
		IdleInterval: 2 * time.Second,
	}

	if path := os.Getenv("SIGNAL_CONFIG"); path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := cfg.apply(f); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	var err error
	if cfg.Engine.Beta, err = envFloat("SIGNAL_BETA", cfg.Engine.Beta); err != nil {
		return Config{}, err
	}
	if cfg.Engine.Hysteresis, err = envFloat("SIGNAL_HYSTERESIS", cfg.Engine.Hysteresis); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(f *File) error {
	if f.Engine.Beta != nil {
		c.Engine.Beta = *f.Engine.Beta
	}
	if f.Engine.Hysteresis != nil {
		c.Engine.Hysteresis = *f.Engine.Hysteresis
	}
	if f.IdleInterval != "" {
		d, err := time.ParseDuration(f.IdleInterval)
		if err != nil {
			return fmt.Errorf("idle_interval: %w", err)
		}
		c.IdleInterval = d
	}
	for _, fi := range f.Intersections {
		c.Intersections = append(c.Intersections, controller.Intersection{
			ID:           fi.ID,
			Lanes:        fi.Lanes,
			InitialGreen: fi.InitialGreen,
		})
	}
	return nil
}

// Validate checks the engine settings and intersection layouts.
func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if c.IdleInterval <= 0 {
		return fmt.Errorf("idle_interval must be positive, got %v", c.IdleInterval)
	}
	seen := make(map[string]bool, len(c.Intersections))
	for _, in := range c.Intersections {
		if in.ID == "" {
			return fmt.Errorf("intersection with empty id")
		}
		if seen[in.ID] {
			return fmt.Errorf("duplicate intersection %s", in.ID)
		}
		seen[in.ID] = true
		if len(in.Lanes) == 0 {
			return fmt.Errorf("intersection %s has no lanes", in.ID)
		}
		if in.InitialGreen < 0 || in.InitialGreen >= len(in.Lanes) {
			return fmt.Errorf("intersection %s: initial_green %d outside [0, %d)", in.ID, in.InitialGreen, len(in.Lanes))
		}
		for i, l := range in.Lanes {
			switch l.Kind {
			case lanes.KindStraight, lanes.KindTurn, "":
			default:
				return fmt.Errorf("intersection %s lane %d: unknown kind %q", in.ID, i, l.Kind)
			}
			if l.SatRate < 0 {
				return fmt.Errorf("intersection %s lane %d: negative sat_rate", in.ID, i)
			}
		}
	}
	return nil
}

// #endregion load

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// #endregion helpers
