package notification

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Event is the routing message that carries an accepted request between
// pipeline stages. The ingestion service publishes it to the intake topic,
// the dispatcher re-publishes it to the channel topic; both key it by
// RecipientID so the bus preserves per-recipient ordering.
type Event struct {
	RequestID     uuid.UUID      `json:"request_id"`
	RecipientID   string         `json:"recipient_id"`
	Channel       Channel        `json:"channel"`
	TargetAddress string         `json:"target_address,omitempty"`
	Priority      Priority       `json:"priority"`
	Payload       map[string]any `json:"payload"`
}

// NewEvent builds the routing event for a persisted request.
func NewEvent(req Request) Event {
	return Event{
		RequestID:     req.ID,
		RecipientID:   req.RecipientID,
		Channel:       req.Channel,
		TargetAddress: req.TargetAddress,
		Priority:      req.Priority,
		Payload:       req.Payload,
	}
}

// Marshal encodes the event for the wire.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent decodes an event from its wire form.
func UnmarshalEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}
