package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/vibescript/builder/internal/api/http"
	"github.com/vibescript/builder/internal/api/http/handlers"
	"github.com/vibescript/builder/internal/auth"
	"github.com/vibescript/builder/internal/config"
	"github.com/vibescript/builder/internal/events"
	"github.com/vibescript/builder/internal/mailer"
	"github.com/vibescript/builder/internal/observability"
	"github.com/vibescript/builder/internal/persistence"
	"github.com/vibescript/builder/internal/repository"
	"github.com/vibescript/builder/internal/service"
	"github.com/vibescript/builder/internal/tokenstore"
	"github.com/vibescript/builder/internal/worker"
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

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	var userRepo repository.UserRepository
	if pool := pg.PoolHandle(); pool != nil {
		userRepo = repository.NewUserRepository(pool)
	} else {
		logger.Warn("using in-memory user repository; accounts will not survive restarts")
		userRepo = repository.NewMemoryUserRepository()
	}
	tokens := tokenstore.NewRedisStore(redis.Client)
	codec := auth.NewSessionCodec(cfg.Session.Secret)

	dispatcher := events.NewInMemoryDispatcher()

	var mail mailer.Mailer
	if cfg.Mail.ResendAPIKey != "" {
		mail = mailer.NewResendMailer(cfg.Mail.ResendAPIKey, cfg.Mail.EmailFrom)
	} else {
		mail = mailer.NewLogMailer(logger)
	}
	notificationService := service.NewNotificationService(dispatcher, mail, logger)
	worker.StartNotificationWorker(notificationService)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   userRepo,
		TokenStore: tokens,
		Codec:      codec,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})

	gate := auth.NewGate(auth.GateConfig{
		PublicPaths: []string{
			"/", "/signin", "/signup", "/resend", "/verify", "/signout",
			"/health", "/metrics",
		},
		CookieName:   cfg.Session.CookieName,
		LoginPath:    cfg.Session.LoginPath,
		CookieMaxAge: cfg.Session.CookieTTL(),
	}, codec, tokens, logger, metrics)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	authHandler := handlers.NewAuthHandler(authService, cfg.Session)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           authHandler,
		Gate:           gate,
		MetricsHandler: adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
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
