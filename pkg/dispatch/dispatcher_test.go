package dispatch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifier/pkg/bus"
	"github.com/dmitrymomot/notifier/pkg/dispatch"
	"github.com/dmitrymomot/notifier/pkg/notification"
	"github.com/dmitrymomot/notifier/pkg/store"
)

type failingPublisher struct{ err error }

func (p failingPublisher) Publish(ctx context.Context, topic, key string, event notification.Event) error {
	return p.err
}

func storedRequest(t *testing.T, st *store.MemoryStore, channel notification.Channel) notification.Request {
	t.Helper()
	req := notification.Request{
		ID:             uuid.New(),
		IdempotencyKey: uuid.NewString(),
		ProducerName:   "billing",
		RecipientID:    "user-9",
		Channel:        channel,
		TargetAddress:  "user@example.com",
		Priority:       notification.PriorityNormal,
		Payload:        map[string]any{"message": "Invoice ready"},
	}
	require.NoError(t, st.CreateRequest(context.Background(), req))
	return req
}

func TestDispatcher_Handle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("routes to channel topic and marks queued", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemoryStore()
		b := bus.NewMemoryBus()
		d := dispatch.New(st, b)

		req := storedRequest(t, st, notification.ChannelEmail)
		require.NoError(t, d.Handle(ctx, notification.NewEvent(req)))

		events := b.Events(bus.TopicEmail)
		require.Len(t, events, 1)
		assert.Equal(t, req.ID, events[0].RequestID)

		log, err := st.GetDeliveryLog(ctx, req.ID, req.Channel)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusQueued, log.Status)
		assert.Equal(t, req.RecipientID, log.RecipientID)
		assert.Equal(t, req.TargetAddress, log.TargetAddress)
	})

	t.Run("in-app events go to the in-app topic", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemoryStore()
		b := bus.NewMemoryBus()
		d := dispatch.New(st, b)

		req := storedRequest(t, st, notification.ChannelInApp)
		require.NoError(t, d.Handle(ctx, notification.NewEvent(req)))

		assert.Equal(t, 1, b.Len(bus.TopicInApp))
		assert.Zero(t, b.Len(bus.TopicEmail))
	})

	t.Run("drops event for unknown request", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemoryStore()
		b := bus.NewMemoryBus()
		d := dispatch.New(st, b)

		event := notification.Event{
			RequestID:   uuid.New(),
			RecipientID: "user-9",
			Channel:     notification.ChannelInApp,
			Payload:     map[string]any{"message": "orphan"},
		}
		require.NoError(t, d.Handle(ctx, event))

		assert.Zero(t, b.Len(bus.TopicInApp))
		_, err := st.GetDeliveryLog(ctx, event.RequestID, event.Channel)
		assert.ErrorIs(t, err, notification.ErrDeliveryLogNotFound)
	})

	t.Run("redelivered event resumes a pending attempt", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemoryStore()
		b := bus.NewMemoryBus()
		d := dispatch.New(st, b)

		// A prior consumer crashed after creating the log but before
		// routing: the log exists in pending and the event comes back.
		req := storedRequest(t, st, notification.ChannelEmail)
		existing := notification.DeliveryLog{
			ID:          uuid.New(),
			RequestID:   req.ID,
			RecipientID: req.RecipientID,
			Channel:     req.Channel,
			Status:      notification.StatusPending,
		}
		require.NoError(t, st.CreateDeliveryLog(ctx, &existing))

		require.NoError(t, d.Handle(ctx, notification.NewEvent(req)))

		assert.Equal(t, 1, b.Len(bus.TopicEmail))
		log, err := st.GetDeliveryLog(ctx, req.ID, req.Channel)
		require.NoError(t, err)
		assert.Equal(t, existing.ID, log.ID, "no second log was created")
		assert.Equal(t, notification.StatusQueued, log.Status)
	})

	t.Run("redelivered event is skipped once the attempt advanced", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemoryStore()
		b := bus.NewMemoryBus()
		d := dispatch.New(st, b)

		req := storedRequest(t, st, notification.ChannelEmail)
		event := notification.NewEvent(req)

		require.NoError(t, d.Handle(ctx, event))
		require.Equal(t, 1, b.Len(bus.TopicEmail))

		// Redelivery of the same event must not publish or regress the log.
		require.NoError(t, d.Handle(ctx, event))
		assert.Equal(t, 1, b.Len(bus.TopicEmail))

		log, err := st.GetDeliveryLog(ctx, req.ID, req.Channel)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusQueued, log.Status)
	})

	t.Run("publish failure marks the attempt failed", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemoryStore()
		d := dispatch.New(st, failingPublisher{err: errors.New("broker down")})

		req := storedRequest(t, st, notification.ChannelInApp)
		require.NoError(t, d.Handle(ctx, notification.NewEvent(req)))

		log, err := st.GetDeliveryLog(ctx, req.ID, req.Channel)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, log.Status)
		assert.Equal(t, "broker down", log.ErrorMessage)
	})

	t.Run("unmapped channel marks the attempt failed", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemoryStore()
		b := bus.NewMemoryBus()
		d := dispatch.New(st, b)

		req := storedRequest(t, st, notification.ChannelInApp)
		event := notification.NewEvent(req)
		event.Channel = "sms"

		require.NoError(t, d.Handle(ctx, event))

		log, err := st.GetDeliveryLog(ctx, req.ID, "sms")
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, log.Status)
		assert.Contains(t, log.ErrorMessage, "unsupported channel")
	})
}

func TestDispatcher_Run_ConsumesIntake(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewMemoryStore()
	b := bus.NewMemoryBus()
	d := dispatch.New(st, b)

	req := storedRequest(t, st, notification.ChannelInApp)
	require.NoError(t, b.Publish(ctx, bus.TopicIntake, req.RecipientID, notification.NewEvent(req)))

	go func() { _ = d.Run(ctx, b)() }()

	require.Eventually(t, func() bool {
		log, err := st.GetDeliveryLog(ctx, req.ID, req.Channel)
		return err == nil && log.Status == notification.StatusQueued
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, b.Len(bus.TopicInApp))
}
