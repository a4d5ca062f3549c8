package notification

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies a delivery channel. The enum is closed: every value is
// statically mapped to exactly one bus topic, so an unknown channel is
// rejected at ingestion and never reaches the pipeline.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
)

// Channels lists all known delivery channels.
func Channels() []Channel {
	return []Channel{ChannelInApp, ChannelEmail}
}

// Valid reports whether the channel is one of the known enumerated values.
func (c Channel) Valid() bool {
	switch c {
	case ChannelInApp, ChannelEmail:
		return true
	}
	return false
}

// Priority represents the request priority level.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Valid reports whether the priority is a known value.
func (p Priority) Valid() bool {
	return p == PriorityNormal || p == PriorityHigh
}

// IngressStatus is the outcome of a submission as seen by the producer.
type IngressStatus string

const (
	IngressAccepted  IngressStatus = "accepted"
	IngressDuplicate IngressStatus = "duplicate"
)

// Request is the durable record of an accepted send request. It is created
// exactly once per idempotency key and is never updated or deleted; the
// table is the audit trail of everything producers asked the platform to
// send.
type Request struct {
	ID             uuid.UUID      `json:"id"`
	IdempotencyKey string         `json:"idempotency_key"`
	ProducerName   string         `json:"producer_name"`
	RecipientID    string         `json:"recipient_id"`
	Channel        Channel        `json:"channel"`
	TargetAddress  string         `json:"target_address,omitempty"`
	Priority       Priority       `json:"priority"`
	Payload        map[string]any `json:"payload"`
	CreatedAt      time.Time      `json:"created_at"`
}

// DeliveryLog tracks one (request, channel) delivery attempt. At most one
// exists per (RequestID, Channel) pair; the dispatcher creates it in status
// pending and the owning channel adapter finalizes it.
type DeliveryLog struct {
	ID            uuid.UUID `json:"id"`
	RequestID     uuid.UUID `json:"request_id"`
	RecipientID   string    `json:"recipient_id"`
	Channel       Channel   `json:"channel"`
	TargetAddress string    `json:"target_address,omitempty"`
	Status        Status    `json:"status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
