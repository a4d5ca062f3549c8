package push

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// channelPrefix namespaces the per-recipient pub/sub channels.
const channelPrefix = "notifications:"

// RedisPusher implements Pusher over Redis pub/sub. Each recipient gets a
// dedicated channel so websocket edge nodes can subscribe only for the
// recipients they currently serve.
type RedisPusher struct {
	client redis.UniversalClient
}

// NewRedisPusher creates a Redis-backed push transport.
func NewRedisPusher(client redis.UniversalClient) *RedisPusher {
	return &RedisPusher{client: client}
}

// ChannelFor returns the pub/sub channel name for a recipient. Exported so
// edge consumers subscribe to exactly the name this transport publishes on.
func ChannelFor(recipientID string) string {
	return channelPrefix + recipientID
}

// Push implements Pusher by publishing the JSON-encoded payload to the
// recipient's channel.
func (p *RedisPusher) Push(ctx context.Context, recipientID string, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Join(ErrPushFailed, err)
	}

	if err := p.client.Publish(ctx, ChannelFor(recipientID), data).Err(); err != nil {
		return errors.Join(ErrPushFailed, err)
	}
	return nil
}
