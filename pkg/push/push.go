package push

import "context"

// Payload is the channel-rendering data pushed to a recipient.
type Payload map[string]any

// Pusher delivers a payload to a recipient's live in-app stream.
type Pusher interface {
	// Push delivers the payload to the recipient. An error means the
	// transport could not accept the message; whether anyone was listening
	// is not part of the contract.
	Push(ctx context.Context, recipientID string, payload Payload) error
}
