package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"signalbot/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	sourceService  = "signalbot"
	publishTimeout = 5 * time.Second
)

// MessagePublisher sends raw payloads to a subject
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// EventEnvelope wraps a ledger event on the wire
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// EventForwarder republishes committed ledger events for downstream consumers
type EventForwarder struct {
	publisher MessagePublisher
	now       func() time.Time
}

// NewEventForwarder creates a forwarder writing to publisher
func NewEventForwarder(publisher MessagePublisher) *EventForwarder {
	return &EventForwarder{
		publisher: publisher,
		now:       time.Now,
	}
}

// Attach subscribes the forwarder to every ledger event type on bus
func (f *EventForwarder) Attach(bus *events.Bus) {
	for _, eventType := range events.AllEventTypes {
		bus.Subscribe(eventType, f.handle)
	}
	log.WithField("eventTypes", len(events.AllEventTypes)).Info("Event forwarder attached")
}

func (f *EventForwarder) handle(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := f.Forward(ctx, event); err != nil {
		// forwarding is best effort; the ledger already committed
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to forward event")
	}
}

// Forward wraps event in an envelope and publishes it on its subject
func (f *EventForwarder) Forward(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     f.now().UTC(),
		SourceService: sourceService,
		Payload:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := MapEventToSubject(event.Type())
	if err := f.publisher.Publish(ctx, subject, data); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Forwarded event")
	return nil
}

// NoopPublisher drops every message. Used when NATS is not configured.
type NoopPublisher struct{}

// Publish does nothing
func (NoopPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	return nil
}
