package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifier/pkg/adapter"
	"github.com/dmitrymomot/notifier/pkg/bus"
	"github.com/dmitrymomot/notifier/pkg/config"
	"github.com/dmitrymomot/notifier/pkg/logger"
	"github.com/dmitrymomot/notifier/pkg/pg"
	"github.com/dmitrymomot/notifier/pkg/push"
	"github.com/dmitrymomot/notifier/pkg/redis"
	"github.com/dmitrymomot/notifier/pkg/store"
)

type appConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`
}

func main() {
	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Env, "notifier-inapp-worker"))
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

	var redisCfg redis.Config
	config.MustLoad(&redisCfg)

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to connect to redis", logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	var kafkaCfg bus.KafkaConfig
	config.MustLoad(&kafkaCfg)

	eventBus := bus.NewKafkaBus(kafkaCfg, bus.WithKafkaBusLogger(log))
	defer eventBus.Close()

	runner := adapter.NewRunner(
		adapter.NewInApp(push.NewRedisPusher(redisClient)),
		store.NewPostgres(pool),
		adapter.WithRunnerLogger(log),
	)

	log.InfoContext(ctx, "In-app worker started", logger.Topic(bus.TopicInApp))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(runner.Run(ctx, eventBus))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("In-app worker stopped with error", logger.Error(err))
		os.Exit(1)
	}
	slog.Info("In-app worker stopped")
}
