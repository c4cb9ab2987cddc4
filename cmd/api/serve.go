package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger := rt.cfg, rt.logger

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	limiter := auth.NewLoginLimiter(rt.redis.Handle(), cfg.Auth.LoginAttemptsPerMin, time.Minute)
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: rt.users,
		Tokens:   tokens,
		Limiter:  limiter,
		Logger:   logger,
	})

	if cfg.Seed.AdminOnStart {
		if cfg.Seed.AdminPassword == "" {
			logger.Warn("SEED_ADMIN_PASSWORD not set; skipping admin seed")
		} else if _, err := authService.SeedAdmin(ctx, cfg.Seed); err != nil {
			return err
		}
	}

	dispatcher := events.NewAsyncDispatcher(cfg.Notification.QueueSize, cfg.Notification.Workers, logger)
	notifier := service.NewNotificationService(cfg.Notification, service.NotificationDependencies{
		Dispatcher: dispatcher,
		UserRepo:   rt.users,
		Mailer:     service.NewSMTPMailer(cfg.Notification),
		Redis:      rt.redis.Handle(),
		Logger:     logger,
	})
	notifications := worker.StartNotificationWorker(notifier, dispatcher, logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: rt.tickets,
		UserRepo:   rt.users,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	adminService := service.NewAdminService(rt.users, rt.tickets, logger)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		CaseSensitive:         true,
		DisableStartupMessage: true,
		ErrorHandler:          httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
			"postgres": rt.pg,
			"redis":    rt.redis,
		}),
		Auth:    handlers.NewAuthHandler(authService),
		Tickets: handlers.NewTicketsHandler(ticketService),
		Admin:   handlers.NewAdminHandler(adminService, authService, metrics),
		Guard:   auth.NewGuard(auth.DefaultPolicy(), auth.NewPrincipalResolver(tokens), logger),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.App.Addr()),
			zap.Duration("token_ttl", tokens.TTL()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			logger.Error("fiber listen", zap.Error(err))
			return err
		}
	case sig := <-waitForShutdown():
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("http shutdown", zap.Error(err))
	}
	_ = notifications.Stop(shutdownCtx)
	return nil
}

func waitForShutdown() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
