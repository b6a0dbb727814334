package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded schema migrations. goose needs database/sql,
// so the pool's connection config is bridged through pgx's stdlib driver.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zerolog.Logger) error {
	db := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close migration connection")
		}
	}()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(&gooseLogger{log: logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// gooseLogger routes goose output through zerolog.
type gooseLogger struct {
	log *zerolog.Logger
}

func (g *gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Error().Str("component", "migrate").Msgf(format, v...)
}

func (g *gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Info().Str("component", "migrate").Msgf(format, v...)
}
