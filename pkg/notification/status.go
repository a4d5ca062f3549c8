package notification

// Status is a delivery log's position in the delivery state machine.
type Status string

const (
	// StatusPending means the dispatcher has recorded the attempt but not
	// yet routed it to a channel topic.
	StatusPending Status = "pending"
	// StatusQueued means the event was published to the channel topic.
	StatusQueued Status = "queued"
	// StatusDispatched means the channel adapter has invoked the delivery
	// transport and is awaiting its outcome.
	StatusDispatched Status = "dispatched"
	// StatusDelivered is terminal: the transport accepted the message.
	StatusDelivered Status = "delivered"
	// StatusFailed is terminal: routing or delivery failed.
	StatusFailed Status = "failed"
)

// rank orders statuses along the pipeline. Transitions never decrease rank,
// which keeps the state machine forward-only even under concurrent writers.
var rank = map[Status]int{
	StatusPending:    0,
	StatusQueued:     1,
	StatusDispatched: 2,
	StatusDelivered:  3,
	StatusFailed:     3,
}

// Valid reports whether the status is a known state machine value.
func (s Status) Valid() bool {
	_, ok := rank[s]
	return ok
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// CanTransition reports whether a delivery log may move from s to next.
// Failure is reachable from any non-terminal state; every other edge
// advances exactly one stage.
func (s Status) CanTransition(next Status) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return rank[next] == rank[s]+1
}
