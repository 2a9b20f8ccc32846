package events

import (
	"encoding/json"
	"time"
)

// Envelope is the shared event shape carried by the outbox and the bus.
// EventType doubles as the topic the relay publishes to.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	SourceService string          `json:"source_service"`
	CorrelationID string          `json:"correlation_id"`
	SchemaVersion int             `json:"schema_version"`
	PartitionKey  string          `json:"partition_key"`
	Data          json.RawMessage `json:"data"`
}

// NewEnvelope marshals data into a version 1 envelope.
func NewEnvelope(
	eventID string,
	eventType string,
	sourceService string,
	correlationID string,
	partitionKey string,
	occurredAt time.Time,
	data any,
) (Envelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    occurredAt.UTC(),
		SourceService: sourceService,
		CorrelationID: correlationID,
		SchemaVersion: 1,
		PartitionKey:  partitionKey,
		Data:          payload,
	}, nil
}

// Decode unmarshals the envelope payload into target.
func (e Envelope) Decode(target any) error {
	return json.Unmarshal(e.Data, target)
}
