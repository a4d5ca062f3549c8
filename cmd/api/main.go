package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifier/pkg/api"
	"github.com/dmitrymomot/notifier/pkg/bus"
	"github.com/dmitrymomot/notifier/pkg/config"
	"github.com/dmitrymomot/notifier/pkg/httpserver"
	"github.com/dmitrymomot/notifier/pkg/ingest"
	"github.com/dmitrymomot/notifier/pkg/logger"
	"github.com/dmitrymomot/notifier/pkg/pg"
	"github.com/dmitrymomot/notifier/pkg/store"
)

type appConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`
}

func main() {
	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Env, "notifier-api"))
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pgCfg pg.Config
	config.MustLoad(&pgCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to connect to postgres", logger.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		log.ErrorContext(ctx, "Failed to apply migrations", logger.Error(err))
		os.Exit(1)
	}

	var kafkaCfg bus.KafkaConfig
	config.MustLoad(&kafkaCfg)

	eventBus := bus.NewKafkaBus(kafkaCfg, bus.WithKafkaBusLogger(log))
	defer eventBus.Close()

	st := store.NewPostgres(pool)
	svc := ingest.NewService(st, eventBus, ingest.WithServiceLogger(log))
	reconciler := ingest.NewReconciler(st, eventBus, ingest.WithReconcilerLogger(log))

	r := chi.NewRouter()
	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log))
	r.Get("/readyz", httpserver.HealthCheckHandler(ctx, log, pg.Healthcheck(pool), eventBus.Healthcheck()))
	r.Mount("/", api.NewHandler(svc, st, api.WithHandlerLogger(log)).Router())

	var srvCfg httpserver.Config
	config.MustLoad(&srvCfg)
	srv := httpserver.NewFromConfig(srvCfg, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx, r) })
	g.Go(reconciler.Run(ctx))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Service stopped with error", logger.Error(err))
		os.Exit(1)
	}
	slog.Info("Service stopped")
}
