package bus

import "errors"

var (
	// ErrBusClosed is returned when publishing to a closed bus.
	ErrBusClosed = errors.New("bus: closed")
	// ErrNilHandler is returned when subscribing without a handler.
	ErrNilHandler = errors.New("bus: nil handler")
	// ErrPublishFailed wraps transport-level publish failures.
	ErrPublishFailed = errors.New("bus: publish failed")
)
