package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifier/pkg/bus"
	"github.com/dmitrymomot/notifier/pkg/config"
	"github.com/dmitrymomot/notifier/pkg/dispatch"
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

	log := logger.New(logger.WithEnvironment(appCfg.Env, "notifier-dispatcher"))
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

	var kafkaCfg bus.KafkaConfig
	config.MustLoad(&kafkaCfg)

	eventBus := bus.NewKafkaBus(kafkaCfg, bus.WithKafkaBusLogger(log))
	defer eventBus.Close()

	dispatcher := dispatch.New(store.NewPostgres(pool), eventBus, dispatch.WithLogger(log))

	log.InfoContext(ctx, "Dispatcher started", logger.Topic(bus.TopicIntake))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(dispatcher.Run(ctx, eventBus))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Dispatcher stopped with error", logger.Error(err))
		os.Exit(1)
	}
	slog.Info("Dispatcher stopped")
}
