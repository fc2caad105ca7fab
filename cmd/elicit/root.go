package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/elicit/internal/config"
	"github.com/aretw0/elicit/internal/logging"
)

var (
	flagConfig   string
	flagLogLevel string
	flagStore    string
	flagDir      string
)

var rootCmd = &cobra.Command{
	Use:   "elicit",
	Short: "Durable clarification sessions: ask, suspend, resume, answer",
	Long: `elicit turns an underspecified prompt into a grounded answer by
asking a bounded number of clarifying questions. Sessions are
checkpointed after every step, so they survive process restarts and can
be resumed from another process entirely.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "checkpoint backend: memory, file, redis, sqlite")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "session directory for the file backend")
}

// loadConfig merges the config file, environment and persistent flags.
// Flags win.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}

	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagStore != "" {
		cfg.Store.Backend = flagStore
	}
	if flagDir != "" {
		cfg.Store.File.Dir = flagDir
	}

	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) *slog.Logger {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.New(level)
}
