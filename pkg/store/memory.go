package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifier/pkg/notification"
)

// MemoryStore implements Store in memory for testing and local development.
// All methods are safe for concurrent use; the single mutex serializes
// status updates, which is what preserves the forward-only invariant when
// two consumers race on the same delivery log.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*notification.Request
	logs     map[uuid.UUID]*notification.DeliveryLog

	// Indexes for natural-key lookups
	byIdempotencyKey map[string]uuid.UUID
	byRequestChannel map[requestChannelKey]uuid.UUID
}

type requestChannelKey struct {
	requestID uuid.UUID
	channel   notification.Channel
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:         make(map[uuid.UUID]*notification.Request),
		logs:             make(map[uuid.UUID]*notification.DeliveryLog),
		byIdempotencyKey: make(map[string]uuid.UUID),
		byRequestChannel: make(map[requestChannelKey]uuid.UUID),
	}
}

// CreateRequest implements Store.
func (ms *MemoryStore) CreateRequest(ctx context.Context, req notification.Request) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.byIdempotencyKey[req.IdempotencyKey]; exists {
		return notification.ErrDuplicateRequest
	}

	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}

	reqCopy := req
	ms.requests[req.ID] = &reqCopy
	ms.byIdempotencyKey[req.IdempotencyKey] = req.ID

	return nil
}

// GetRequest implements Store.
func (ms *MemoryStore) GetRequest(ctx context.Context, id uuid.UUID) (*notification.Request, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	req, ok := ms.requests[id]
	if !ok {
		return nil, notification.ErrRequestNotFound
	}

	reqCopy := *req
	return &reqCopy, nil
}

// CreateDeliveryLog implements Store.
func (ms *MemoryStore) CreateDeliveryLog(ctx context.Context, log *notification.DeliveryLog) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	key := requestChannelKey{requestID: log.RequestID, channel: log.Channel}
	if existingID, exists := ms.byRequestChannel[key]; exists {
		*log = *ms.logs[existingID]
		return notification.ErrDeliveryLogExists
	}

	now := time.Now()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	log.UpdatedAt = log.CreatedAt

	logCopy := *log
	ms.logs[log.ID] = &logCopy
	ms.byRequestChannel[key] = log.ID

	return nil
}

// GetDeliveryLog implements Store.
func (ms *MemoryStore) GetDeliveryLog(ctx context.Context, requestID uuid.UUID, channel notification.Channel) (*notification.DeliveryLog, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	id, ok := ms.byRequestChannel[requestChannelKey{requestID: requestID, channel: channel}]
	if !ok {
		return nil, notification.ErrDeliveryLogNotFound
	}

	logCopy := *ms.logs[id]
	return &logCopy, nil
}

// UpdateDeliveryStatus implements Store.
func (ms *MemoryStore) UpdateDeliveryStatus(ctx context.Context, logID uuid.UUID, status notification.Status, errorMessage string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	log, ok := ms.logs[logID]
	if !ok {
		return notification.ErrDeliveryLogNotFound
	}

	if !log.Status.CanTransition(status) {
		return notification.ErrInvalidTransition
	}

	log.Status = status
	log.ErrorMessage = errorMessage
	log.UpdatedAt = time.Now()

	return nil
}

// ListUnroutedRequests implements Store.
func (ms *MemoryStore) ListUnroutedRequests(ctx context.Context, olderThan time.Time) ([]notification.Request, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	routed := make(map[uuid.UUID]struct{}, len(ms.logs))
	for _, log := range ms.logs {
		routed[log.RequestID] = struct{}{}
	}

	var requests []notification.Request
	for _, req := range ms.requests {
		if _, ok := routed[req.ID]; ok {
			continue
		}
		if !req.CreatedAt.Before(olderThan) {
			continue
		}
		requests = append(requests, *req)
	}

	slices.SortFunc(requests, func(a, b notification.Request) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return requests, nil
}

// ListDeliveryLogs implements Store.
func (ms *MemoryStore) ListDeliveryLogs(ctx context.Context, requestID uuid.UUID) ([]notification.DeliveryLog, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var logs []notification.DeliveryLog
	for _, log := range ms.logs {
		if log.RequestID == requestID {
			logs = append(logs, *log)
		}
	}

	slices.SortFunc(logs, func(a, b notification.DeliveryLog) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return logs, nil
}
