// Package config loads the graphwriter configuration file.
//
// The file is TOML with three sections:
//
//	[writer]
//	view = "public"
//	max_depth = 3
//	budget = "300s"
//
//	[server]
//	addr = ":8080"
//	rate_limit = 20.0
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
// Keys that are absent keep their default, see [Default]. The environment
// variables GRAPHWRITER_REDIS_ADDR and PORT override the Redis address and the
// listen port.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/serialize"
	"github.com/matzehuels/graphwriter/pkg/sink"
)

// Environment overrides.
const (
	EnvRedisAddr = "GRAPHWRITER_REDIS_ADDR"
	EnvPort      = "PORT"
)

// Cache backends.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Duration is a time.Duration written as a string such as "300s" or "5m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the complete configuration.
type Config struct {
	Writer WriterConfig `toml:"writer"`
	Server ServerConfig `toml:"server"`
	Cache  CacheConfig  `toml:"cache"`
}

// WriterConfig mirrors [serialize.Options].
type WriterConfig struct {
	View                    string   `toml:"view"`
	Format                  string   `toml:"format"`
	ResultKey               string   `toml:"result_key"`
	RenderSerializationTime bool     `toml:"render_serialization_time"`
	RenderResultCount       bool     `toml:"render_result_count"`
	ReduceRedundancy        bool     `toml:"reduce_redundancy"`
	MaxDepth                int      `toml:"max_depth"`
	Indent                  bool     `toml:"indent"`
	CompactNestedProperties bool     `toml:"compact_nested_properties"`
	Budget                  Duration `toml:"budget"`
	MarkTruncation          bool     `toml:"mark_truncation"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr              string   `toml:"addr"`
	BaseURL           string   `toml:"base_url"`
	ReadHeaderTimeout Duration `toml:"read_header_timeout"`
	ShutdownTimeout   Duration `toml:"shutdown_timeout"`

	// RateLimit is the sustained number of requests per second per client;
	// zero disables limiting.
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`

	DefaultPageSize int `toml:"default_page_size"`
	MaxPageSize     int `toml:"max_page_size"`
}

// CacheConfig selects and configures the document cache.
type CacheConfig struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	TTL           Duration `toml:"ttl"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	Prefix        string   `toml:"prefix"`
}

// Default returns the built-in configuration.
func Default() *Config {
	opts := serialize.DefaultOptions()
	return &Config{
		Writer: WriterConfig{
			View:                    opts.View,
			Format:                  sink.FormatJSON,
			ResultKey:               opts.ResultKey,
			RenderSerializationTime: opts.RenderSerializationTime,
			RenderResultCount:       opts.RenderResultCount,
			ReduceRedundancy:        opts.ReduceRedundancy,
			MaxDepth:                opts.MaxDepth,
			Indent:                  opts.Indent,
			CompactNestedProperties: opts.CompactNestedProperties,
			Budget:                  Duration(opts.Budget),
			MarkTruncation:          opts.MarkTruncation,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration(10 * time.Second),
			ShutdownTimeout:   Duration(15 * time.Second),
			RateLimit:         20,
			Burst:             40,
			DefaultPageSize:   50,
			MaxPageSize:       500,
		},
		Cache: CacheConfig{
			Backend: BackendNone,
			TTL:     Duration(10 * time.Minute),
			Prefix:  "graphwriter:",
		},
	}
}

// Load reads the file at path over the defaults and applies environment
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := errors.ValidatePath(path); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read config %s", path)
		default:
			if err := Parse(cfg, string(data)); err != nil {
				return nil, errors.Wrap(errors.GetCode(err), err, "config %s", path)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML text into cfg. Keys that are not part of the
// configuration are rejected.
func Parse(cfg *Config, text string) error {
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "unknown key %q", undecoded[0].String())
	}
	return nil
}

func (c *Config) applyEnv() {
	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		c.Cache.RedisAddr = addr
		if c.Cache.Backend == BackendNone {
			c.Cache.Backend = BackendRedis
		}
	}
	if port := os.Getenv(EnvPort); port != "" {
		c.Server.Addr = ":" + port
	}
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	w := c.Writer
	if err := errors.ValidateViewName(w.View); err != nil {
		return err
	}
	if err := errors.ValidateFormat(w.Format, sink.Formats); err != nil {
		return err
	}
	if w.MaxDepth < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "writer.max_depth must be >= 0, got %d", w.MaxDepth)
	}
	if w.Budget <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "writer.budget must be positive")
	}

	s := c.Server
	if s.RateLimit < 0 || s.Burst < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "server.rate_limit and server.burst must be >= 0")
	}
	if s.DefaultPageSize < 1 || s.MaxPageSize < s.DefaultPageSize {
		return errors.New(errors.ErrCodeInvalidInput,
			"server page sizes must satisfy 1 <= default_page_size (%d) <= max_page_size (%d)", s.DefaultPageSize, s.MaxPageSize)
	}

	switch c.Cache.Backend {
	case BackendNone, BackendFile:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.redis_addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// Options converts the writer section into serializer options.
func (w WriterConfig) Options() serialize.Options {
	return serialize.Options{
		View:                    w.View,
		ResultKey:               w.ResultKey,
		RenderSerializationTime: w.RenderSerializationTime,
		RenderResultCount:       w.RenderResultCount,
		ReduceRedundancy:        w.ReduceRedundancy,
		MaxDepth:                w.MaxDepth,
		Indent:                  w.Indent,
		CompactNestedProperties: w.CompactNestedProperties,
		Budget:                  time.Duration(w.Budget),
		MarkTruncation:          w.MarkTruncation,
	}
}
