package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

var rootCmd = &cobra.Command{
	Use:           "helpdesk-service",
	Short:         "Help desk API: accounts, tickets and agent responses",
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedAdminCmd)
}

// env holds the process-wide dependencies every command starts from.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	pg      *persistence.Postgres
	redis   *persistence.Redis
	users   repository.UserRepository
	tickets repository.TicketRepository
}

func bootstrap(ctx context.Context, migrate bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	rt := &env{cfg: cfg, logger: logger, pg: pg}

	if pg.Enabled() {
		if migrate {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		rt.users = repository.NewUserRepository(pg.PoolHandle())
		rt.tickets = repository.NewTicketRepository(pg.PoolHandle())
	} else {
		rt.users = repository.NewMemoryUserRepository()
		rt.tickets = repository.NewMemoryTicketRepository()
	}

	rt.redis = persistence.NewRedis(ctx, cfg.Redis, logger)
	return rt, nil
}

func (rt *env) close() {
	rt.redis.Close()
	rt.pg.Close()
	_ = rt.logger.Sync()
}
