package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/badgerstore"
	"github.com/meikuraledutech/canvas/config"
	"github.com/meikuraledutech/canvas/postgres"
)

// openStore builds the configured Store. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (canvas.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		return postgres.New(pool), pool.Close, nil

	case config.DriverBadger:
		bcfg := badgerstore.DefaultConfig(cfg.Store.BadgerPath)
		bcfg.Logger = log.With("component", "badger")
		s, err := badgerstore.Open(bcfg)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.Error("close badger", "error", err)
			}
		}, nil

	case config.DriverMemory:
		log.Warn("using in-memory store, canvases are lost on exit")
		return canvas.NewMemStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
