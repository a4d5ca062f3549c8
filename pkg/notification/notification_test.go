package notification_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifier/pkg/notification"
)

func TestChannel_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, notification.ChannelInApp.Valid())
	assert.True(t, notification.ChannelEmail.Valid())

	assert.False(t, notification.Channel("").Valid())
	assert.False(t, notification.Channel("sms").Valid())
	assert.False(t, notification.Channel("IN_APP").Valid())
}

func TestChannels_CoversEnum(t *testing.T) {
	t.Parallel()

	channels := notification.Channels()
	require.NotEmpty(t, channels)
	for _, c := range channels {
		assert.True(t, c.Valid())
	}
}

func TestPriority_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, notification.PriorityNormal.Valid())
	assert.True(t, notification.PriorityHigh.Valid())
	assert.False(t, notification.Priority("urgent").Valid())
	assert.False(t, notification.Priority("").Valid())
}

func TestNewEvent(t *testing.T) {
	t.Parallel()

	req := notification.Request{
		ID:             uuid.New(),
		IdempotencyKey: "welcome-42",
		ProducerName:   "onboarding",
		RecipientID:    "user-42",
		Channel:        notification.ChannelEmail,
		TargetAddress:  "user@example.com",
		Priority:       notification.PriorityHigh,
		Payload:        map[string]any{"subject": "Welcome", "message": "Hello"},
	}

	event := notification.NewEvent(req)

	assert.Equal(t, req.ID, event.RequestID)
	assert.Equal(t, req.RecipientID, event.RecipientID)
	assert.Equal(t, req.Channel, event.Channel)
	assert.Equal(t, req.TargetAddress, event.TargetAddress)
	assert.Equal(t, req.Priority, event.Priority)
	assert.Equal(t, req.Payload, event.Payload)
}

func TestEvent_WireRoundTrip(t *testing.T) {
	t.Parallel()

	event := notification.Event{
		RequestID:   uuid.New(),
		RecipientID: "user-7",
		Channel:     notification.ChannelInApp,
		Priority:    notification.PriorityNormal,
		Payload:     map[string]any{"message": "Your order shipped"},
	}

	data, err := event.Marshal()
	require.NoError(t, err)

	decoded, err := notification.UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

func TestUnmarshalEvent_InvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := notification.UnmarshalEvent([]byte("{not json"))
	assert.Error(t, err)
}
