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
	"github.com/dmitrymomot/notifier/pkg/mailer"
	"github.com/dmitrymomot/notifier/pkg/pg"
	"github.com/dmitrymomot/notifier/pkg/store"
)

type appConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`
}

func main() {
	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Env, "notifier-email-worker"))
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

	var mailCfg mailer.Config
	config.MustLoad(&mailCfg)

	// Without Postmark tokens outgoing email lands in the dev directory,
	// which keeps local runs free of provider credentials.
	var sender mailer.EmailSender
	if mailCfg.PostmarkServerToken != "" {
		sender = mailer.MustNewPostmarkClient(mailCfg)
	} else {
		sender = mailer.NewDevSender(mailCfg.DevOutputDir)
		log.InfoContext(ctx, "Postmark tokens not set, writing emails to disk",
			slog.String("dir", mailCfg.DevOutputDir))
	}

	var kafkaCfg bus.KafkaConfig
	config.MustLoad(&kafkaCfg)

	eventBus := bus.NewKafkaBus(kafkaCfg, bus.WithKafkaBusLogger(log))
	defer eventBus.Close()

	runner := adapter.NewRunner(
		adapter.NewEmail(sender),
		store.NewPostgres(pool),
		adapter.WithRunnerLogger(log),
	)

	log.InfoContext(ctx, "Email worker started", logger.Topic(bus.TopicEmail))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(runner.Run(ctx, eventBus))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Email worker stopped with error", logger.Error(err))
		os.Exit(1)
	}
	slog.Info("Email worker stopped")
}
