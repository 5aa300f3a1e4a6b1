// Package config loads server configuration from a YAML file, the
// environment and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration.
type Config struct {
	Addr        string `yaml:"addr"`
	DBPath      string `yaml:"db_path"`
	LogLevel    string `yaml:"log_level"`
	TurnWorkers int    `yaml:"turn_workers"`
	// RateLimit is messages per second per connection.
	RateLimit      float64  `yaml:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// Admins lists player ids allowed to advance turns and transfer territory.
	Admins []string `yaml:"admins"`
	// MapDir is where rendered maps are written.
	MapDir string `yaml:"map_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:        ":30000",
		DBPath:      "data/strategy.db",
		LogLevel:    "info",
		TurnWorkers: 4,
		RateLimit:   5,
		RateBurst:   10,
		MapDir:      "data/maps",
	}
}

// LoadFile overlays a YAML file on cfg. A missing file is not an error.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables on cfg.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	// PORT is set by most hosting platforms
	if port := getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if path := getenv("DB_PATH"); path != "" {
		cfg.DBPath = path
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if workers := getenv("TURN_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("invalid TURN_WORKERS %q: %w", workers, err)
		}
		cfg.TurnWorkers = n
	}
	return nil
}

// Load builds the configuration for a command. The -config flag names the
// YAML file; other flags override file and environment values when set.
func Load(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	path := fs.String("config", "config.yaml", "Config file path")
	addr := fs.String("addr", "", "Listen address")
	dbPath := fs.String("db", "", "Database path")
	level := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	workers := fs.Int("workers", 0, "Turn worker goroutines")
	origins := fs.String("origins", "", "Comma-separated allowed websocket origins")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if err := LoadFile(&cfg, *path); err != nil {
		return cfg, err
	}
	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}

	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *level != "" {
		cfg.LogLevel = *level
	}
	if *workers > 0 {
		cfg.TurnWorkers = *workers
	}
	if *origins != "" {
		cfg.AllowedOrigins = strings.Split(*origins, ",")
	}
	return cfg, cfg.Validate()
}

// Validate checks that values are usable.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr is empty")
	}
	if c.DBPath == "" {
		return errors.New("config: db_path is empty")
	}
	if c.TurnWorkers < 1 {
		return fmt.Errorf("config: turn_workers must be positive, got %d", c.TurnWorkers)
	}
	if c.RateLimit <= 0 || c.RateBurst < 1 {
		return fmt.Errorf("config: invalid rate limit %g/%d", c.RateLimit, c.RateBurst)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("config: invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// IsAdmin reports whether a player may run administrative commands.
func (c Config) IsAdmin(playerID string) bool {
	for _, id := range c.Admins {
		if id == playerID {
			return true
		}
	}
	return false
}
