package push

import "errors"

var (
	// ErrHubClosed is returned when operations are attempted on a closed hub.
	ErrHubClosed = errors.New("push: hub is closed")
	// ErrPushFailed wraps transport-level delivery failures.
	ErrPushFailed = errors.New("push: delivery failed")
)
