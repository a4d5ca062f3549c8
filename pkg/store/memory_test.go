package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifier/pkg/notification"
	"github.com/dmitrymomot/notifier/pkg/store"
)

func newTestRequest(idempotencyKey string) notification.Request {
	return notification.Request{
		ID:             uuid.New(),
		IdempotencyKey: idempotencyKey,
		ProducerName:   "order-service",
		RecipientID:    "user-1",
		Channel:        notification.ChannelInApp,
		Priority:       notification.PriorityNormal,
		Payload:        map[string]any{"message": "Your order shipped"},
	}
}

func TestMemoryStore_CreateRequest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("persists and reads back", func(t *testing.T) {
		t.Parallel()
		ms := store.NewMemoryStore()

		req := newTestRequest("key-1")
		require.NoError(t, ms.CreateRequest(ctx, req))

		got, err := ms.GetRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, req.ID, got.ID)
		assert.Equal(t, req.IdempotencyKey, got.IdempotencyKey)
		assert.Equal(t, req.Payload, got.Payload)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("rejects duplicate idempotency key", func(t *testing.T) {
		t.Parallel()
		ms := store.NewMemoryStore()

		first := newTestRequest("key-dup")
		require.NoError(t, ms.CreateRequest(ctx, first))

		second := newTestRequest("key-dup")
		err := ms.CreateRequest(ctx, second)
		require.ErrorIs(t, err, notification.ErrDuplicateRequest)

		// The losing write must leave no trace.
		_, err = ms.GetRequest(ctx, second.ID)
		assert.ErrorIs(t, err, notification.ErrRequestNotFound)
	})

	t.Run("exactly one winner under concurrent submits", func(t *testing.T) {
		t.Parallel()
		ms := store.NewMemoryStore()

		const n = 20
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = ms.CreateRequest(ctx, newTestRequest("key-race"))
			}(i)
		}
		wg.Wait()

		var accepted int
		for _, err := range errs {
			if err == nil {
				accepted++
			} else {
				assert.ErrorIs(t, err, notification.ErrDuplicateRequest)
			}
		}
		assert.Equal(t, 1, accepted)
	})
}

func TestMemoryStore_GetRequest_NotFound(t *testing.T) {
	t.Parallel()
	ms := store.NewMemoryStore()

	_, err := ms.GetRequest(context.Background(), uuid.New())
	assert.ErrorIs(t, err, notification.ErrRequestNotFound)
}

func TestMemoryStore_CreateDeliveryLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("persists a new log", func(t *testing.T) {
		t.Parallel()
		ms := store.NewMemoryStore()

		req := newTestRequest("key-log")
		require.NoError(t, ms.CreateRequest(ctx, req))

		log := notification.DeliveryLog{
			ID:          uuid.New(),
			RequestID:   req.ID,
			RecipientID: req.RecipientID,
			Channel:     req.Channel,
			Status:      notification.StatusPending,
		}
		require.NoError(t, ms.CreateDeliveryLog(ctx, &log))
		assert.False(t, log.CreatedAt.IsZero())
		assert.Equal(t, log.CreatedAt, log.UpdatedAt)

		got, err := ms.GetDeliveryLog(ctx, req.ID, req.Channel)
		require.NoError(t, err)
		assert.Equal(t, log.ID, got.ID)
		assert.Equal(t, notification.StatusPending, got.Status)
	})

	t.Run("second create resumes the existing attempt", func(t *testing.T) {
		t.Parallel()
		ms := store.NewMemoryStore()

		req := newTestRequest("key-redeliver")
		require.NoError(t, ms.CreateRequest(ctx, req))

		first := notification.DeliveryLog{
			ID:        uuid.New(),
			RequestID: req.ID,
			Channel:   req.Channel,
			Status:    notification.StatusPending,
		}
		require.NoError(t, ms.CreateDeliveryLog(ctx, &first))
		require.NoError(t, ms.UpdateDeliveryStatus(ctx, first.ID, notification.StatusQueued, ""))

		second := notification.DeliveryLog{
			ID:        uuid.New(),
			RequestID: req.ID,
			Channel:   req.Channel,
			Status:    notification.StatusPending,
		}
		err := ms.CreateDeliveryLog(ctx, &second)
		require.ErrorIs(t, err, notification.ErrDeliveryLogExists)

		// The caller's struct now holds the in-progress record.
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, notification.StatusQueued, second.Status)
	})

	t.Run("same request may target multiple channels", func(t *testing.T) {
		t.Parallel()
		ms := store.NewMemoryStore()

		req := newTestRequest("key-multichan")
		require.NoError(t, ms.CreateRequest(ctx, req))

		inApp := notification.DeliveryLog{
			ID: uuid.New(), RequestID: req.ID,
			Channel: notification.ChannelInApp, Status: notification.StatusPending,
		}
		email := notification.DeliveryLog{
			ID: uuid.New(), RequestID: req.ID,
			Channel: notification.ChannelEmail, Status: notification.StatusPending,
		}
		require.NoError(t, ms.CreateDeliveryLog(ctx, &inApp))
		require.NoError(t, ms.CreateDeliveryLog(ctx, &email))

		logs, err := ms.ListDeliveryLogs(ctx, req.ID)
		require.NoError(t, err)
		assert.Len(t, logs, 2)
	})
}

func TestMemoryStore_UpdateDeliveryStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	setup := func(t *testing.T) (*store.MemoryStore, notification.DeliveryLog) {
		t.Helper()
		ms := store.NewMemoryStore()
		req := newTestRequest("key-" + uuid.NewString())
		require.NoError(t, ms.CreateRequest(ctx, req))
		log := notification.DeliveryLog{
			ID:        uuid.New(),
			RequestID: req.ID,
			Channel:   req.Channel,
			Status:    notification.StatusPending,
		}
		require.NoError(t, ms.CreateDeliveryLog(ctx, &log))
		return ms, log
	}

	t.Run("advances through the pipeline", func(t *testing.T) {
		t.Parallel()
		ms, log := setup(t)

		require.NoError(t, ms.UpdateDeliveryStatus(ctx, log.ID, notification.StatusQueued, ""))
		require.NoError(t, ms.UpdateDeliveryStatus(ctx, log.ID, notification.StatusDispatched, ""))
		require.NoError(t, ms.UpdateDeliveryStatus(ctx, log.ID, notification.StatusDelivered, ""))

		got, err := ms.GetDeliveryLog(ctx, log.RequestID, log.Channel)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusDelivered, got.Status)
		assert.Empty(t, got.ErrorMessage)
	})

	t.Run("records error message on failure", func(t *testing.T) {
		t.Parallel()
		ms, log := setup(t)

		require.NoError(t, ms.UpdateDeliveryStatus(ctx, log.ID, notification.StatusFailed, "smtp timeout"))

		got, err := ms.GetDeliveryLog(ctx, log.RequestID, log.Channel)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, got.Status)
		assert.Equal(t, "smtp timeout", got.ErrorMessage)
	})

	t.Run("rejects backward and skipping moves", func(t *testing.T) {
		t.Parallel()
		ms, log := setup(t)

		err := ms.UpdateDeliveryStatus(ctx, log.ID, notification.StatusDelivered, "")
		assert.ErrorIs(t, err, notification.ErrInvalidTransition)

		require.NoError(t, ms.UpdateDeliveryStatus(ctx, log.ID, notification.StatusQueued, ""))
		err = ms.UpdateDeliveryStatus(ctx, log.ID, notification.StatusPending, "")
		assert.ErrorIs(t, err, notification.ErrInvalidTransition)
	})

	t.Run("terminal states are immutable", func(t *testing.T) {
		t.Parallel()
		ms, log := setup(t)

		require.NoError(t, ms.UpdateDeliveryStatus(ctx, log.ID, notification.StatusFailed, "boom"))

		err := ms.UpdateDeliveryStatus(ctx, log.ID, notification.StatusFailed, "boom again")
		assert.ErrorIs(t, err, notification.ErrInvalidTransition)

		got, err := ms.GetDeliveryLog(ctx, log.RequestID, log.Channel)
		require.NoError(t, err)
		assert.Equal(t, "boom", got.ErrorMessage)
	})

	t.Run("unknown log id", func(t *testing.T) {
		t.Parallel()
		ms := store.NewMemoryStore()
		err := ms.UpdateDeliveryStatus(ctx, uuid.New(), notification.StatusQueued, "")
		assert.ErrorIs(t, err, notification.ErrDeliveryLogNotFound)
	})

	t.Run("only one racer advances each step", func(t *testing.T) {
		t.Parallel()
		ms, log := setup(t)

		const n = 10
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = ms.UpdateDeliveryStatus(ctx, log.ID, notification.StatusQueued, "")
			}(i)
		}
		wg.Wait()

		var applied int
		for _, err := range errs {
			if err == nil {
				applied++
			} else {
				assert.ErrorIs(t, err, notification.ErrInvalidTransition)
			}
		}
		assert.Equal(t, 1, applied)
	})
}

func TestMemoryStore_ListUnroutedRequests(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ms := store.NewMemoryStore()

	old := newTestRequest("key-old")
	old.CreatedAt = time.Now().Add(-10 * time.Minute)
	require.NoError(t, ms.CreateRequest(ctx, old))

	routed := newTestRequest("key-routed")
	routed.CreatedAt = time.Now().Add(-10 * time.Minute)
	require.NoError(t, ms.CreateRequest(ctx, routed))
	require.NoError(t, ms.CreateDeliveryLog(ctx, &notification.DeliveryLog{
		ID:        uuid.New(),
		RequestID: routed.ID,
		Channel:   routed.Channel,
		Status:    notification.StatusPending,
	}))

	fresh := newTestRequest("key-fresh")
	require.NoError(t, ms.CreateRequest(ctx, fresh))

	stuck, err := ms.ListUnroutedRequests(ctx, time.Now().Add(-2*time.Minute))
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, old.ID, stuck[0].ID)
}

func TestMemoryStore_ListDeliveryLogs_Empty(t *testing.T) {
	t.Parallel()

	ms := store.NewMemoryStore()
	logs, err := ms.ListDeliveryLogs(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, logs)
}
