package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/quillchat/quill-api/internal/model"
)

const (
	// StreamName is the name of the service event stream.
	StreamName = "QUILL_EVENTS"

	// SubjectPrefix is the prefix for all event subjects.
	SubjectPrefix = "quill.events"
)

// EventBus publishes service events to JetStream. Consumers such as the
// mailer run as separate processes.
type EventBus struct {
	client *Client
}

// NewEventBus creates a new event bus on top of an established client.
func NewEventBus(client *Client) *EventBus {
	return &EventBus{client: client}
}

// EnsureStream ensures the event stream exists with proper configuration.
func (b *EventBus) EnsureStream(ctx context.Context) error {
	js := b.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Service events and outbound notification jobs",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for an event type.
func EventSubject(eventType model.EventType) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, eventType)
}

// Publish publishes an event to JetStream and returns its stream sequence.
func (b *EventBus) Publish(ctx context.Context, event *model.Event) (uint64, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := b.client.JetStream().Publish(ctx, EventSubject(event.Type), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	return ack.Sequence, nil
}
