package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/elicit"
	"github.com/aretw0/elicit/internal/config"
	"github.com/aretw0/elicit/pkg/adapters/file"
	"github.com/aretw0/elicit/pkg/adapters/memory"
	"github.com/aretw0/elicit/pkg/adapters/redis"
	"github.com/aretw0/elicit/pkg/adapters/sqlite"
	"github.com/aretw0/elicit/pkg/collaborators/static"
	"github.com/aretw0/elicit/pkg/ports"
	"github.com/aretw0/elicit/pkg/workflow"
)

// openStore builds the configured checkpoint store. The returned
// cleanup releases backend resources and may be nil.
func openStore(cfg config.Config) (ports.SessionStore, func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil, nil

	case config.BackendFile:
		return file.New(cfg.Store.File.Dir), nil, nil

	case config.BackendRedis:
		store := redis.New(
			cfg.Store.Redis.Address,
			cfg.Store.Redis.Password,
			cfg.Store.Redis.DB,
			redis.WithTTL(cfg.Store.Redis.TTL.Std()),
		)
		return store, store.Close, nil

	case config.BackendSQLite:
		store, err := sqlite.New(cfg.Store.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, store.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// openConfiguredStore loads the config and opens the store, defaulting
// to the durable file backend for local inspection commands.
func openConfiguredStore() (ports.SessionStore, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if flagStore == "" && os.Getenv("ELICIT_STORE_BACKEND") == "" {
		cfg.Store.Backend = config.BackendFile
	}
	return openStore(cfg)
}

// newEngine builds the workflow engine with the built-in deterministic
// collaborators. Embedders wanting model-backed collaborators use the
// library API instead.
func newEngine(cfg config.Config, store ports.SessionStore, logger *slog.Logger, extra ...elicit.Option) (*elicit.Engine, error) {
	opts := append([]elicit.Option{workflow.WithLogger(logger)}, extra...)
	if cfg.Workflow.MaxQuestions > 0 {
		opts = append(opts, workflow.WithMaxQuestions(cfg.Workflow.MaxQuestions))
	}
	if cfg.Workflow.QuestionsPerRound > 0 {
		opts = append(opts, workflow.WithQuestionsPerRound(cfg.Workflow.QuestionsPerRound))
	}

	return elicit.New(store, elicit.Collaborators{
		Generator:  static.Generator{},
		Structurer: static.Structurer{},
		Judge:      static.Judge{},
		Answerer:   static.Answerer{},
	}, opts...)
}
