package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/deskflow/internal/api/http"
	"github.com/spec-kit/deskflow/internal/api/http/handlers"
	"github.com/spec-kit/deskflow/internal/auth"
	"github.com/spec-kit/deskflow/internal/cache"
	"github.com/spec-kit/deskflow/internal/config"
	"github.com/spec-kit/deskflow/internal/files"
	"github.com/spec-kit/deskflow/internal/mail"
	"github.com/spec-kit/deskflow/internal/observability"
	"github.com/spec-kit/deskflow/internal/persistence"
	"github.com/spec-kit/deskflow/internal/repository"
	"github.com/spec-kit/deskflow/internal/service"
	"github.com/spec-kit/deskflow/internal/worker"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	pool := pg.PoolHandle()
	repos := repository.NewRepos(pool)
	uow := repository.NewUnitOfWork(pool)

	mailer := mail.NewSMTPMailer(cfg.Mail)
	fileStore := files.NewHTTPStore(cfg.FileStore)
	ticketCache := cache.NewTicketCache(redis.Client, logger)

	notifications := worker.NewNotificationQueue(cfg.Dispatcher.NotificationQueueSize, mailer, cfg.Mail, logger, metrics)
	tasks := worker.NewTaskQueue(cfg.Dispatcher.TaskQueueSize, logger, metrics)
	scanner := worker.NewOverdueScanner(repos.Tickets, repos.Progress, cfg.Scanner.Interval(), logger, metrics)

	routing := service.NewRoutingResolver(repos.Categories, repos.Users, repos.Tickets)
	engine := service.NewWorkflowEngine(service.WorkflowDependencies{
		Repos:    repos,
		Tx:       uow,
		Routing:  routing,
		Notifier: notifications,
		Tasks:    tasks,
		Files:    fileStore,
		Cache:    ticketCache,
		Logger:   logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	userService := service.NewUserService(repos.Users, repos.Departments, tokens, cfg.Auth, logger)
	lookupService := service.NewLookupService(repos.Departments, repos.Categories, repos.CauseTypes)
	authMiddleware := auth.NewAuthMiddleware(tokens, repos.Users)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Users:          handlers.NewUsersHandler(userService),
		Tickets:        handlers.NewTicketsHandler(engine),
		Lookups:        handlers.NewLookupHandler(lookupService),
		AuthMiddleware: authMiddleware,
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return notifications.Run(groupCtx) })
	group.Go(func() error { return tasks.Run(groupCtx) })
	group.Go(func() error { return scanner.Run(groupCtx) })
	group.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.Shutdown()
	})

	if err := group.Wait(); err != nil {
		logger.Error("shutdown with error", zap.Error(err))
	}
	logger.Info("stopped")
}
