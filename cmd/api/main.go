package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/fieldops/fault-ticket-service/internal/api/http"
	"github.com/fieldops/fault-ticket-service/internal/api/http/handlers"
	"github.com/fieldops/fault-ticket-service/internal/auth"
	"github.com/fieldops/fault-ticket-service/internal/cache"
	"github.com/fieldops/fault-ticket-service/internal/config"
	"github.com/fieldops/fault-ticket-service/internal/events"
	"github.com/fieldops/fault-ticket-service/internal/observability"
	"github.com/fieldops/fault-ticket-service/internal/persistence"
	"github.com/fieldops/fault-ticket-service/internal/repository"
	"github.com/fieldops/fault-ticket-service/internal/service"
	"github.com/fieldops/fault-ticket-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	escalationRepo := repository.NewEscalationRepository(pool)
	slaConfigRepo := repository.NewSLAConfigRepository(pool)
	dropRepo := repository.NewDropRepository(pool)

	var drCache cache.DRCache
	if cfg.DRCache.UseRedis {
		drCache = cache.NewRedisDRCache(redis.Client, cfg.DRCache.TTL(), logger)
	} else {
		drCache = cache.NewMemoryDRCache(cfg.DRCache.TTL(), cfg.DRCache.MaxEntries)
	}
	drLookup := service.NewDRLookupService(dropRepo, drCache, logger)

	thresholds := service.ThresholdsFromConfig(cfg.Detection)
	detector := service.NewFaultDetector(service.DetectorDependencies{
		TicketRepo:     ticketRepo,
		EscalationRepo: escalationRepo,
		Logger:         logger,
		Metrics:        metrics,
	})
	escalationService := service.NewEscalationService(service.EscalationServiceDependencies{
		EscalationRepo: escalationRepo,
		TicketRepo:     ticketRepo,
		Dispatcher:     dispatcher,
		Logger:         logger,
		Metrics:        metrics,
	})
	ticketService := service.NewTicketService(service.TicketServiceDependencies{
		TicketRepo:    ticketRepo,
		SLAConfigRepo: slaConfigRepo,
		DRLookup:      drLookup,
		Dispatcher:    dispatcher,
		SLAFallback:   cfg.SLA,
		Logger:        logger,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.NewEscalationWorker(detector, escalationService, thresholds, logger).Register(dispatcher)
	worker.StartNotificationWorker(notificationService)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(tokenManager, cfg.Auth),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Escalations:    handlers.NewEscalationsHandler(escalationService),
		Detection:      handlers.NewDetectionHandler(detector, thresholds),
		Drops:          handlers.NewDropsHandler(drLookup),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
