package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifier/pkg/bus"
	"github.com/dmitrymomot/notifier/pkg/notification"
	"github.com/dmitrymomot/notifier/pkg/store"
)

// SubmitRequest carries a producer's send request into the pipeline.
type SubmitRequest struct {
	IdempotencyKey string                `json:"idempotency_key"`
	ProducerName   string                `json:"producer_name"`
	RecipientID    string                `json:"recipient_id"`
	Channel        notification.Channel  `json:"channel"`
	TargetAddress  string                `json:"target_address,omitempty"`
	Priority       notification.Priority `json:"priority,omitempty"`
	Payload        map[string]any        `json:"payload"`
}

// Validate checks the submission before any side effect.
func (r SubmitRequest) Validate() error {
	if r.IdempotencyKey == "" {
		return fmt.Errorf("%w: idempotency key is required", notification.ErrValidation)
	}
	if r.ProducerName == "" {
		return fmt.Errorf("%w: producer name is required", notification.ErrValidation)
	}
	if r.RecipientID == "" {
		return fmt.Errorf("%w: recipient id is required", notification.ErrValidation)
	}
	if !r.Channel.Valid() {
		return fmt.Errorf("%w: %q", notification.ErrUnknownChannel, r.Channel)
	}
	if r.Priority != "" && !r.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", notification.ErrValidation, r.Priority)
	}
	if len(r.Payload) == 0 {
		return fmt.Errorf("%w: payload cannot be empty", notification.ErrValidation)
	}
	return nil
}

// SubmitResult is the outcome of a submission as returned to the producer.
type SubmitResult struct {
	RequestID uuid.UUID                  `json:"request_id"`
	Status    notification.IngressStatus `json:"status"`
}

// Service accepts send requests, records them idempotently and emits
// routing events to the intake topic.
type Service struct {
	store     store.Store
	publisher bus.Publisher
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger for the Service.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates an ingestion service.
func NewService(st store.Store, publisher bus.Publisher, opts ...ServiceOption) *Service {
	s := &Service{
		store:     st,
		publisher: publisher,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates and records the request, then publishes its routing
// event keyed by recipient.
//
// An idempotency-key collision is not an error: the result carries the
// duplicate status, nothing is published, and the producer can treat the
// original submission as authoritative. Any other failure is returned to
// the caller; if the durable write succeeded but the publish failed, the
// request is recorded and the reconciler will route it later.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return SubmitResult{}, err
	}

	record := notification.Request{
		ID:             uuid.New(),
		IdempotencyKey: req.IdempotencyKey,
		ProducerName:   req.ProducerName,
		RecipientID:    req.RecipientID,
		Channel:        req.Channel,
		TargetAddress:  req.TargetAddress,
		Priority:       req.Priority,
		Payload:        req.Payload,
		CreatedAt:      time.Now(),
	}
	if record.Priority == "" {
		record.Priority = notification.PriorityNormal
	}

	if err := s.store.CreateRequest(ctx, record); err != nil {
		if errors.Is(err, notification.ErrDuplicateRequest) {
			s.logger.LogAttrs(ctx, slog.LevelInfo, "Duplicate notification request",
				slog.String("idempotency_key", req.IdempotencyKey),
				slog.String("producer", req.ProducerName),
			)
			return SubmitResult{Status: notification.IngressDuplicate}, nil
		}
		return SubmitResult{}, fmt.Errorf("persist notification request: %w", err)
	}

	event := notification.NewEvent(record)
	if err := s.publisher.Publish(ctx, bus.TopicIntake, record.RecipientID, event); err != nil {
		// The request is durably recorded but unrouted. Surface the failure
		// to the caller; the reconciliation sweep re-derives the event once
		// the grace period passes.
		s.logger.LogAttrs(ctx, slog.LevelError, "Failed to publish intake event",
			slog.String("request_id", record.ID.String()),
			slog.String("recipient_id", record.RecipientID),
			slog.Any("error", err),
		)
		return SubmitResult{}, fmt.Errorf("publish intake event: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "Notification request accepted",
		slog.String("request_id", record.ID.String()),
		slog.String("producer", record.ProducerName),
		slog.String("channel", string(record.Channel)),
	)

	return SubmitResult{RequestID: record.ID, Status: notification.IngressAccepted}, nil
}
