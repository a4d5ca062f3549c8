package notification

import "errors"

var (
	// ErrValidation marks a malformed or incomplete submission, rejected
	// before any side effect.
	ErrValidation = errors.New("notification: invalid request")

	// ErrDuplicateRequest signals an idempotency-key collision. It is not a
	// failure: the ingestion service maps it to the duplicate ingress status.
	ErrDuplicateRequest = errors.New("notification: duplicate idempotency key")

	// ErrRequestNotFound is returned when a referenced request was never
	// durably committed.
	ErrRequestNotFound = errors.New("notification: request not found")

	// ErrDeliveryLogNotFound is returned when no delivery log exists for a
	// (request, channel) pair.
	ErrDeliveryLogNotFound = errors.New("notification: delivery log not found")

	// ErrDeliveryLogExists signals that a delivery log for the same
	// (request, channel) pair already exists, typically because the bus
	// redelivered a routing event.
	ErrDeliveryLogExists = errors.New("notification: delivery log already exists")

	// ErrInvalidTransition rejects a status update that would move a
	// delivery log backward through the state machine.
	ErrInvalidTransition = errors.New("notification: invalid status transition")

	// ErrUnknownChannel is returned for channel values outside the closed enum.
	ErrUnknownChannel = errors.New("notification: unknown channel")
)
