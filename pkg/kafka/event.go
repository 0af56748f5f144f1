// Package kafka publishes storefront domain events to Kafka.
package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// TopicPrefix prefixes every storefront topic.
const TopicPrefix = "storefront"

// EventVersion is the envelope version this service writes. Envelopes from a
// newer version are rejected on decode.
const EventVersion = 1

// Topic builds "storefront.<aggregate>.<action>".
func Topic(aggregate, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, aggregate, action)
}

// Event is the envelope every storefront message is wrapped in. The
// aggregate id is the partition key, so the events of one cart or order
// keep their order.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh id and a UTC timestamp
// truncated to milliseconds, matching the domain's timestamps.
func NewEvent(eventType, aggregateID, aggregateType, source string, data any) (*Event, error) {
	if aggregateID == "" {
		return nil, fmt.Errorf("%s event: aggregate id is required", eventType)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       EventVersion,
		Timestamp:     time.Now().UTC().Truncate(time.Millisecond),
		Source:        source,
		Data:          raw,
	}, nil
}

// WithCorrelationID sets the request correlation id and returns e.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// Headers are the routing fields consumers can filter on without decoding
// the body.
func (e *Event) Headers() []kafka.Header {
	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(e.EventType)},
		{Key: "aggregate_type", Value: []byte(e.AggregateType)},
		{Key: "source", Value: []byte(e.Source)},
	}
	if e.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: "correlation_id", Value: []byte(e.CorrelationID)})
	}
	return headers
}

// Message encodes e as a message on topic keyed by its aggregate id.
func (e *Event) Message(topic string) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s event: %w", e.EventType, err)
	}
	return kafka.Message{
		Topic:   topic,
		Key:     []byte(e.AggregateID),
		Value:   value,
		Headers: e.Headers(),
	}, nil
}

var errIncompleteEvent = errors.New("event envelope is missing its id, type or aggregate id")

// UnmarshalEvent decodes an envelope written by this service or an older one.
func UnmarshalEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.EventID == "" || event.EventType == "" || event.AggregateID == "" {
		return nil, fmt.Errorf("unmarshal event: %w", errIncompleteEvent)
	}
	if event.Version > EventVersion {
		return nil, fmt.Errorf("unmarshal event: unsupported envelope version %d", event.Version)
	}
	return &event, nil
}

// UnmarshalData decodes the payload into target.
func (e *Event) UnmarshalData(target any) error {
	return json.Unmarshal(e.Data, target)
}
