package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifier/pkg/notification"
)

// Store persists notification requests and delivery logs.
type Store interface {
	// CreateRequest persists a new request. It returns
	// notification.ErrDuplicateRequest if a request with the same
	// idempotency key already exists; no other side effect occurs in that
	// case.
	CreateRequest(ctx context.Context, req notification.Request) error

	// GetRequest returns the request with the given ID or
	// notification.ErrRequestNotFound.
	GetRequest(ctx context.Context, id uuid.UUID) (*notification.Request, error)

	// CreateDeliveryLog persists a new delivery log. If a log already exists
	// for the same (RequestID, Channel) pair, the existing record is copied
	// into log and notification.ErrDeliveryLogExists is returned, letting
	// redelivered routing events resume an in-progress attempt instead of
	// violating the natural-key uniqueness invariant.
	CreateDeliveryLog(ctx context.Context, log *notification.DeliveryLog) error

	// GetDeliveryLog returns the delivery log for the (request, channel)
	// pair or notification.ErrDeliveryLogNotFound.
	GetDeliveryLog(ctx context.Context, requestID uuid.UUID, channel notification.Channel) (*notification.DeliveryLog, error)

	// UpdateDeliveryStatus atomically advances the delivery log to status,
	// recording errorMessage on failure transitions and refreshing
	// UpdatedAt. It returns notification.ErrInvalidTransition if the move
	// would not advance the state machine forward, and
	// notification.ErrDeliveryLogNotFound for unknown IDs.
	UpdateDeliveryStatus(ctx context.Context, logID uuid.UUID, status notification.Status, errorMessage string) error

	// ListUnroutedRequests returns requests created before olderThan that
	// have no delivery log. These are requests whose intake event was lost
	// between the durable write and the bus publish; the reconciler
	// re-derives their events from this list.
	ListUnroutedRequests(ctx context.Context, olderThan time.Time) ([]notification.Request, error)

	// ListDeliveryLogs returns all delivery logs recorded for a request.
	ListDeliveryLogs(ctx context.Context, requestID uuid.UUID) ([]notification.DeliveryLog, error)
}

// transitionSources maps a target status to the set of statuses an update
// may come from. It mirrors notification.Status.CanTransition and exists so
// SQL implementations can express the forward-only guard as a WHERE clause.
func transitionSources(to notification.Status) []notification.Status {
	switch to {
	case notification.StatusQueued:
		return []notification.Status{notification.StatusPending}
	case notification.StatusDispatched:
		return []notification.Status{notification.StatusQueued}
	case notification.StatusDelivered:
		return []notification.Status{notification.StatusDispatched}
	case notification.StatusFailed:
		return []notification.Status{
			notification.StatusPending,
			notification.StatusQueued,
			notification.StatusDispatched,
		}
	}
	return nil
}
