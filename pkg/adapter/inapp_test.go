package adapter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifier/pkg/adapter"
	"github.com/dmitrymomot/notifier/pkg/notification"
	"github.com/dmitrymomot/notifier/pkg/push"
)

// capturePusher records every push.
type capturePusher struct {
	err    error
	pushes []capturedPush
}

type capturedPush struct {
	recipientID string
	payload     push.Payload
}

func (p *capturePusher) Push(ctx context.Context, recipientID string, payload push.Payload) error {
	if p.err != nil {
		return p.err
	}
	p.pushes = append(p.pushes, capturedPush{recipientID: recipientID, payload: payload})
	return nil
}

func TestInApp_Channel(t *testing.T) {
	t.Parallel()
	a := adapter.NewInApp(&capturePusher{})
	assert.Equal(t, notification.ChannelInApp, a.Channel())
}

func TestInApp_Deliver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("pushes the payload to the recipient", func(t *testing.T) {
		t.Parallel()
		pusher := &capturePusher{}
		a := adapter.NewInApp(pusher)

		event := notification.Event{
			RequestID:   uuid.New(),
			RecipientID: "user-8",
			Channel:     notification.ChannelInApp,
			Payload:     map[string]any{"message": "New comment on your post"},
		}
		require.NoError(t, a.Deliver(ctx, event))

		require.Len(t, pusher.pushes, 1)
		assert.Equal(t, "user-8", pusher.pushes[0].recipientID)
		assert.Equal(t, push.Payload{"message": "New comment on your post"}, pusher.pushes[0].payload)
	})

	t.Run("empty payload is rejected", func(t *testing.T) {
		t.Parallel()
		pusher := &capturePusher{}
		a := adapter.NewInApp(pusher)

		err := a.Deliver(ctx, notification.Event{
			RequestID:   uuid.New(),
			RecipientID: "user-8",
			Channel:     notification.ChannelInApp,
		})
		require.Error(t, err)
		assert.Empty(t, pusher.pushes)
	})

	t.Run("transport error propagates", func(t *testing.T) {
		t.Parallel()
		pushErr := errors.New("redis unavailable")
		a := adapter.NewInApp(&capturePusher{err: pushErr})

		err := a.Deliver(ctx, notification.Event{
			RequestID:   uuid.New(),
			RecipientID: "user-8",
			Channel:     notification.ChannelInApp,
			Payload:     map[string]any{"message": "hello"},
		})
		assert.ErrorIs(t, err, pushErr)
	})
}
