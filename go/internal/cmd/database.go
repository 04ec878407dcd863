package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/mcdev12/timekeep/go/internal/store"
	"github.com/mcdev12/timekeep/go/internal/store/postgres"
	"github.com/mcdev12/timekeep/go/internal/store/sqlite"
	"github.com/rs/zerolog/log"
)

func openStore(ctx context.Context, cfg *Config) (store.Store, error) {
	if cfg.Store == "sqlite" {
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("using embedded sqlite store")
		return st, nil
	}

	st, err := postgres.Open(ctx, cfg.database.DSN())
	if err != nil {
		return nil, err
	}
	log.Info().Str("database", cfg.database.Redacted()).Msg("connected to postgres store")
	return st, nil
}

// openOutboxDB opens the database/sql handle the notification outbox and its
// relay use.
func openOutboxDB(ctx context.Context, cfg *Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
