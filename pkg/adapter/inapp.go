package adapter

import (
	"context"
	"errors"

	"github.com/dmitrymomot/notifier/pkg/notification"
	"github.com/dmitrymomot/notifier/pkg/push"
)

// InApp delivers events to the recipient's live in-app stream.
type InApp struct {
	pusher push.Pusher
}

// NewInApp creates the in-app channel adapter.
func NewInApp(pusher push.Pusher) *InApp {
	return &InApp{pusher: pusher}
}

// Channel implements Adapter.
func (a *InApp) Channel() notification.Channel {
	return notification.ChannelInApp
}

// Deliver implements Adapter by pushing the raw payload to the recipient.
func (a *InApp) Deliver(ctx context.Context, event notification.Event) error {
	if len(event.Payload) == 0 {
		return errors.New("in-app event has no payload")
	}
	return a.pusher.Push(ctx, event.RecipientID, push.Payload(event.Payload))
}
