/*
config.go - Runtime configuration for the LostTrack server

PURPOSE:
  Collects every knob of the binary in one struct. Sources are applied in
  increasing priority:
    1. Defaults (Default)
    2. YAML file (optional, missing file is not an error)
    3. .env file in the working directory (loaded into the environment)
    4. LOSTTRACK_* environment variables
  Command-line flags in cmd/server override the result.

ENVIRONMENT:
  LOSTTRACK_PORT          HTTP port
  LOSTTRACK_STORE         memory | sqlite | badger | redis
  LOSTTRACK_STORE_PATH    SQLite file or Badger directory
  LOSTTRACK_REDIS_ADDR    host:port of the Redis server
  LOSTTRACK_REDIS_PASSWORD
  LOSTTRACK_LOG_LEVEL     logrus level name
  LOSTTRACK_LOG_FORMAT    text | json
  LOSTTRACK_TIMEZONE      IANA zone for counter years and local timestamps
  LOSTTRACK_CORS_ORIGINS  comma-separated list

SEE ALSO:
  - cmd/server/main.go: Flags and store selection
*/
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const envPrefix = "LOSTTRACK_"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverRedis  = "redis"
)

// =============================================================================
// TYPES
// =============================================================================

type Config struct {
	Server   ServerConfig `yaml:"server"`
	Store    StoreConfig  `yaml:"store"`
	Log      LogConfig    `yaml:"log"`
	Timezone string       `yaml:"timezone"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

type StoreConfig struct {
	Driver        string `yaml:"driver"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Store: StoreConfig{
			Driver:    DriverSQLite,
			Path:      "losttrack.db",
			RedisAddr: "localhost:6379",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Timezone: "Europe/Zurich",
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Load builds the configuration from defaults, the YAML file at path
// (optional), .env and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	// .env is optional; variables already set win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return decodeYAML(bytes.NewReader(data), cfg)
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overrides cfg from LOSTTRACK_* variables looked up with lookup.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", envPrefix, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := get("STORE"); ok {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v, ok := get("STORE_PATH"); ok {
		cfg.Store.Path = v
	}
	if v, ok := get("REDIS_ADDR"); ok {
		cfg.Store.RedisAddr = v
	}
	if v, ok := get("REDIS_PASSWORD"); ok {
		cfg.Store.RedisPassword = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v, ok := get("TIMEZONE"); ok {
		cfg.Timezone = v
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	return nil
}

// =============================================================================
// VALIDATION & DERIVED VALUES
// =============================================================================

// Validate checks values Load cannot coerce.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Server.Port)
	}
	switch c.Store.Driver {
	case DriverMemory, DriverRedis:
	case DriverSQLite, DriverBadger:
		if c.Store.Path == "" {
			return fmt.Errorf("store %s needs a path", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == DriverRedis && c.Store.RedisAddr == "" {
		return errors.New("store redis needs an address")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone. Empty means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
