package bus

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/dmitrymomot/notifier/pkg/notification"
)

// KafkaConfig holds the Kafka transport configuration.
type KafkaConfig struct {
	Brokers  []string `env:"KAFKA_BROKERS,required" envDefault:"localhost:9092"` // Brokers is the list of bootstrap broker addresses.
	MaxBytes int      `env:"KAFKA_MAX_BYTES" envDefault:"10485760"`              // MaxBytes is the maximum message size readers accept.
}

// KafkaBus implements Bus on top of Kafka. Messages are keyed by the
// partition key with a hash balancer, so events for the same recipient land
// on the same partition and stay ordered. Consumer groups give competing
// consumers at-least-once delivery.
type KafkaBus struct {
	writer *kafka.Writer
	cfg    KafkaConfig
	logger *slog.Logger
}

// KafkaBusOption configures a KafkaBus.
type KafkaBusOption func(*KafkaBus)

// WithKafkaBusLogger sets the logger used for handler failures.
func WithKafkaBusLogger(logger *slog.Logger) KafkaBusOption {
	return func(b *KafkaBus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewKafkaBus creates a Kafka-backed bus. A single writer serves all topics;
// the destination topic is set per message.
func NewKafkaBus(cfg KafkaConfig, opts ...KafkaBusOption) *KafkaBus {
	b := &KafkaBus{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Balancer: &kafka.Hash{},
		},
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish writes the event to the topic keyed by the partition key.
func (b *KafkaBus) Publish(ctx context.Context, topic, key string, event notification.Event) error {
	value, err := event.Marshal()
	if err != nil {
		return errors.Join(ErrPublishFailed, err)
	}

	if err := b.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	return nil
}

// Subscribe consumes the topic within the consumer group until ctx is
// cancelled. Offsets are committed only after the handler returns nil.
// Handlers record terminal outcomes (poison events, failed deliveries) in
// the delivery log and return nil for them, so a non-nil error always means
// a transient infrastructure failure; the message is left uncommitted and
// the group redelivers it. Undecodable messages are committed: no amount of
// redelivery fixes their bytes.
func (b *KafkaBus) Subscribe(ctx context.Context, topic, group string, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  b.cfg.Brokers,
		Topic:    topic,
		GroupID:  group,
		MaxBytes: b.cfg.MaxBytes,
	})
	defer reader.Close()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		event, err := notification.UnmarshalEvent(msg.Value)
		if err != nil {
			b.logger.LogAttrs(ctx, slog.LevelError, "Dropping undecodable event",
				slog.String("topic", topic),
				slog.String("group", group),
				slog.Any("error", err),
			)
		} else if err := h(ctx, event); err != nil {
			b.logger.LogAttrs(ctx, slog.LevelError, "Event handler failed, leaving message uncommitted",
				slog.String("topic", topic),
				slog.String("group", group),
				slog.String("request_id", event.RequestID.String()),
				slog.Any("error", err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

// Healthcheck returns a probe that dials the first configured broker,
// suitable for HTTP readiness handlers.
func (b *KafkaBus) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		conn, err := kafka.DialContext(ctx, "tcp", b.cfg.Brokers[0])
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

// Close releases the underlying writer.
func (b *KafkaBus) Close() error {
	return b.writer.Close()
}
