// Package push provides the in-app delivery transport used by the in-app
// channel adapter. Pusher is the contract; Hub fans payloads out to
// in-process subscribers (one stream per recipient) and RedisPusher
// publishes to per-recipient Redis pub/sub channels for multi-node
// deployments where the websocket edge runs separately.
package push
