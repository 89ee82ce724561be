package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/hubspot-ticket-sync/internal/api/http"
	"github.com/spec-kit/hubspot-ticket-sync/internal/api/http/handlers"
	"github.com/spec-kit/hubspot-ticket-sync/internal/auth"
	"github.com/spec-kit/hubspot-ticket-sync/internal/config"
	"github.com/spec-kit/hubspot-ticket-sync/internal/events"
	"github.com/spec-kit/hubspot-ticket-sync/internal/hubspot"
	"github.com/spec-kit/hubspot-ticket-sync/internal/observability"
	"github.com/spec-kit/hubspot-ticket-sync/internal/persistence"
	"github.com/spec-kit/hubspot-ticket-sync/internal/repository"
	"github.com/spec-kit/hubspot-ticket-sync/internal/service"
	"github.com/spec-kit/hubspot-ticket-sync/internal/worker"
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

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	employeeRepo := repository.NewEmployeeRepository(pool)
	txManager := repository.NewTxManager(pool)

	hubspotClient := hubspot.NewClient(cfg.HubSpot, logger)

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, logger)
	worker.StartNotificationWorker(notifications)

	ingestionService := service.NewIngestionService(service.IngestionDependencies{
		HubSpot:      hubspotClient,
		TicketRepo:   ticketRepo,
		EmployeeRepo: employeeRepo,
		TxManager:    txManager,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	updateService := service.NewUpdateService(service.UpdateDependencies{
		HubSpot:    hubspotClient,
		TicketRepo: ticketRepo,
		TxManager:  txManager,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	directoryService := service.NewDirectoryService(service.DirectoryDependencies{
		EmployeeRepo: employeeRepo,
		TicketRepo:   ticketRepo,
		HubSpot:      hubspotClient,
		Cache:        redis.Client,
		CacheTTL:     cfg.Redis.StageCacheTTL(),
		Logger:       logger,
	})
	authService := service.NewAuthService(cfg.Auth, employeeRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), employeeRepo)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName: cfg.App.Name,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Employees:      handlers.NewEmployeesHandler(directoryService),
		Tickets:        handlers.NewTicketsHandler(directoryService, updateService),
		HubSpot:        handlers.NewHubSpotHandler(ingestionService),
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
