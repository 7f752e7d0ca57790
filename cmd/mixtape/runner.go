package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"mixtape/internal/config"
	"mixtape/internal/logging"
	"mixtape/internal/store"
	"mixtape/internal/store/kv"
)

var errPostgresOnly = errors.New("migrations only apply to the postgres backend")

// runner carries what every command needs once configuration is loaded.
type runner struct {
	cfg    *config.Config
	logger *logging.Logger
}

// with loads configuration and the global logger before running action, so help and
// version output work without a complete environment.
func (r *runner) with(action cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if err := r.setup(); err != nil {
			return err
		}
		return action(ctx, cmd)
	}
}

func (r *runner) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logging.SetGlobalLogger(logger)

	r.cfg = cfg
	r.logger = logger
	return nil
}

// openStore opens the configured document store.
func (r *runner) openStore(ctx context.Context, migrateUp bool) (store.DocumentStore, error) {
	switch r.cfg.Store.Backend {
	case config.BackendBadger:
		docs, err := kv.Open(r.cfg.Store.BadgerPath, r.logger.Zerolog())
		if err != nil {
			return nil, err
		}
		r.logger.Zerolog().Info().Str("path", r.cfg.Store.BadgerPath).Msg("badger store opened")
		return docs, nil

	case config.BackendPostgres:
		db, err := openDatabase(ctx, r.cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if migrateUp {
			if err := store.Migrate(db, "up"); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		r.logger.Info("postgres store opened")
		return store.New(db), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", r.cfg.Store.Backend)
	}
}

// Migrate applies or reverts the embedded schema.
func (r *runner) Migrate(ctx context.Context, direction string) error {
	if r.cfg.Store.Backend != config.BackendPostgres {
		return errPostgresOnly
	}

	db, err := openDatabase(ctx, r.cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Migrate(db, direction); err != nil {
		return err
	}
	r.logger.Zerolog().Info().Str("direction", direction).Msg("migrations applied")
	return nil
}
