package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/shelfworks/bookshelf/handler"
	"github.com/shelfworks/bookshelf/pkg/billing"
	"github.com/shelfworks/bookshelf/pkg/config"
	"github.com/shelfworks/bookshelf/pkg/entitlement"
	"github.com/shelfworks/bookshelf/pkg/httpserver"
	"github.com/shelfworks/bookshelf/pkg/logger"
	"github.com/shelfworks/bookshelf/pkg/pg"
	"github.com/shelfworks/bookshelf/pkg/queue"
	"github.com/shelfworks/bookshelf/pkg/redis"
	"github.com/shelfworks/bookshelf/pkg/requestid"
	"github.com/shelfworks/bookshelf/pkg/shelf"
	"github.com/shelfworks/bookshelf/pkg/webhook"
	"github.com/shelfworks/bookshelf/storage/postgres"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"bookshelf"`

	WorkerConcurrency int `env:"WORKER_CONCURRENCY" envDefault:"4"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		appCfg   appConfig
		pgCfg    pg.Config
		redisCfg redis.Config
		httpCfg  httpserver.Config
		whopCfg  billing.WhopConfig
		shelfCfg shelf.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&whopCfg)
	config.MustLoad(&shelfCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Environment, appCfg.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		fatal(log, "failed to connect to postgres", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		fatal(log, "failed to apply migrations", err)
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		fatal(log, "failed to connect to redis", err)
	}
	defer redisClient.Close()

	provider, err := billing.NewWhopProvider(whopCfg)
	if err != nil {
		fatal(log, "failed to init billing provider", err)
	}

	merchants := postgres.NewMerchantStore(pool)
	books := postgres.NewBookStore(pool)
	grants := postgres.NewGrantStore(pool)

	entitlementSvc := entitlement.NewService(merchants, books, grants,
		entitlement.WithLogger(log))
	shelfSvc := shelf.NewService(shelfCfg, entitlementSvc, merchants, books, provider,
		shelf.WithLogger(log))

	// Webhook events are parked in an in-process queue and handed to the
	// reconciler asynchronously; the provider's own redelivery covers the
	// crash window.
	taskStore := queue.NewMemoryStorage()
	enqueuer, err := queue.NewEnqueuer(taskStore)
	if err != nil {
		fatal(log, "failed to init enqueuer", err)
	}
	worker, err := queue.NewWorker(taskStore,
		queue.WithConcurrency(appCfg.WorkerConcurrency),
		queue.WithWorkerLogger(log))
	if err != nil {
		fatal(log, "failed to init worker", err)
	}
	// The deduper is shared with the task handlers: the dispatcher only
	// reads it, the handlers mark ids once processing has completed.
	deduper := webhook.NewRedisDeduper(redisClient, webhook.DefaultDedupTTL)

	worker.RegisterHandlers(
		webhook.NewPaymentSucceededHandler(entitlementSvc, deduper, log),
		webhook.NewMembershipActivatedHandler(entitlementSvc, deduper, log),
		webhook.NewMembershipDeactivatedHandler(entitlementSvc, deduper, log),
	)
	if err := worker.Start(ctx); err != nil {
		fatal(log, "failed to start worker", err)
	}
	defer worker.Stop()

	dispatcher := webhook.NewDispatcher(enqueuer,
		webhook.WithDeduper(deduper),
		webhook.WithLogger(log))

	router := handler.Router(handler.RouterOptions{
		Shelf:       shelfSvc,
		Entitlement: entitlementSvc,
		Webhook:     dispatcher,
		Logger:      log,
		Healthchecks: []func(context.Context) error{
			pg.Healthcheck(pool),
			redis.Healthcheck(redisClient),
		},
	})

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("http server listening", slog.String("addr", httpCfg.Addr))
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.Info("http server stopped")
		}),
	)
	if err := srv.Run(ctx, router); err != nil {
		fatal(log, "http server exited with error", err)
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, logger.Error(err))
	os.Exit(1)
}
