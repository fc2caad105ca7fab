// Package config loads server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backend names accepted in Config.Store.Backend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the full server configuration.
type Config struct {
	Listen   string         `yaml:"listen"`
	LogLevel string         `yaml:"log_level"`
	Store    StoreConfig    `yaml:"store"`
	Workflow WorkflowConfig `yaml:"workflow"`
}

// StoreConfig selects and configures the checkpoint backend.
type StoreConfig struct {
	Backend string       `yaml:"backend"`
	File    FileConfig   `yaml:"file"`
	Redis   RedisConfig  `yaml:"redis"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
}

type FileConfig struct {
	Dir string `yaml:"dir"`
}

type RedisConfig struct {
	Address  string   `yaml:"address"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

// Duration accepts Go duration strings ("30m", "1h") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// WorkflowConfig tunes the clarification loop.
type WorkflowConfig struct {
	MaxQuestions      int `yaml:"max_questions"`
	QuestionsPerRound int `yaml:"questions_per_round"`
}

// Default returns the configuration used when no file or overrides are
// present.
func Default() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		Store: StoreConfig{
			Backend: BackendMemory,
			File:    FileConfig{Dir: ".elicit/sessions"},
			Redis:   RedisConfig{Address: "localhost:6379"},
			SQLite:  SQLiteConfig{Path: ".elicit/sessions.db"},
		},
	}
}

// Load reads the YAML file at path (missing file falls back to
// defaults), then applies ELICIT_* environment overrides, then
// validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from ELICIT_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ELICIT_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("ELICIT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ELICIT_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("ELICIT_STORE_FILE_DIR"); v != "" {
		cfg.Store.File.Dir = v
	}
	if v := os.Getenv("ELICIT_REDIS_ADDRESS"); v != "" {
		cfg.Store.Redis.Address = v
	}
	if v := os.Getenv("ELICIT_REDIS_PASSWORD"); v != "" {
		cfg.Store.Redis.Password = v
	}
	if v := os.Getenv("ELICIT_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Store.Redis.DB = db
		}
	}
	if v := os.Getenv("ELICIT_REDIS_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			cfg.Store.Redis.TTL = Duration(ttl)
		}
	}
	if v := os.Getenv("ELICIT_SQLITE_PATH"); v != "" {
		cfg.Store.SQLite.Path = v
	}
	if v := os.Getenv("ELICIT_MAX_QUESTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workflow.MaxQuestions = n
		}
	}
	if v := os.Getenv("ELICIT_QUESTIONS_PER_ROUND"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workflow.QuestionsPerRound = n
		}
	}
}

// Validate rejects unusable configurations early.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q (want %s, %s, %s or %s)",
			c.Store.Backend, BackendMemory, BackendFile, BackendRedis, BackendSQLite)
	}
	if c.Workflow.MaxQuestions < 0 {
		return fmt.Errorf("max_questions must not be negative")
	}
	if c.Workflow.QuestionsPerRound < 0 {
		return fmt.Errorf("questions_per_round must not be negative")
	}
	return nil
}
