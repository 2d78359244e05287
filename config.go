package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "AIRHOCKEY_"

// Config holds server settings. Sources, lowest precedence first:
// defaults, YAML file, environment (AIRHOCKEY_*), command-line flags.
type Config struct {
	Addr          string        `yaml:"addr"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	ClientDir     string        `yaml:"client_dir"`
	DBPath        string        `yaml:"db_path"`
	NATSURL       string        `yaml:"nats_url"`
	InviteSecret  string        `yaml:"invite_secret"`
	PublicURL     string        `yaml:"public_url"`
	MaxRooms      int           `yaml:"max_rooms"`
	StatsInterval time.Duration `yaml:"stats_interval"`
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		Addr:          ":3000",
		LogLevel:      "info",
		LogFormat:     "text",
		PublicURL:     "http://localhost:3000",
		MaxRooms:      defaultMaxRooms,
		StatsInterval: 30 * time.Second,
	}
}

// LoadConfig layers the YAML file at path (optional) and the environment
// over the defaults
func LoadConfig(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	str := map[string]*string{
		"ADDR":          &c.Addr,
		"LOG_LEVEL":     &c.LogLevel,
		"LOG_FORMAT":    &c.LogFormat,
		"CLIENT_DIR":    &c.ClientDir,
		"DB_PATH":       &c.DBPath,
		"NATS_URL":      &c.NATSURL,
		"INVITE_SECRET": &c.InviteSecret,
		"PUBLIC_URL":    &c.PublicURL,
	}
	for key, dst := range str {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	if v, ok := lookup(envPrefix + "MAX_ROOMS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_ROOMS: %w", envPrefix, err)
		}
		c.MaxRooms = n
	}
	if v, ok := lookup(envPrefix + "STATS_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSTATS_INTERVAL: %w", envPrefix, err)
		}
		c.StatsInterval = d
	}
	return nil
}

// Validate rejects settings the server cannot run with
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if c.MaxRooms <= 0 {
		errs = append(errs, fmt.Errorf("max_rooms must be positive, got %d", c.MaxRooms))
	}
	if c.StatsInterval <= 0 {
		errs = append(errs, fmt.Errorf("stats_interval must be positive, got %s", c.StatsInterval))
	}
	return errors.Join(errs...)
}

// ParseConfig reads flags from args, loads the file they name and applies
// any flag that was set explicitly on top
func ParseConfig(args []string, lookup func(string) (string, bool)) (Config, error) {
	fs := flag.NewFlagSet("airhockey-server", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML config file")
	addr := fs.String("addr", "", "HTTP listen address")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (text, json)")
	clientDir := fs.String("client", "", "Path to static client directory")
	dbPath := fs.String("db", "", "SQLite path for the match ledger (empty disables it)")
	natsURL := fs.String("nats", "", "NATS URL for match events (empty disables them)")
	publicURL := fs.String("public-url", "", "Base URL used in invite links")
	maxRooms := fs.Int("max-rooms", 0, "Maximum number of live rooms")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg, err := LoadConfig(*configPath, lookup)
	if err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		case "client":
			cfg.ClientDir = *clientDir
		case "db":
			cfg.DBPath = *dbPath
		case "nats":
			cfg.NATSURL = *natsURL
		case "public-url":
			cfg.PublicURL = *publicURL
		case "max-rooms":
			cfg.MaxRooms = *maxRooms
		}
	})
	return cfg, cfg.Validate()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(level),
		AddSource: level == "debug",
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
