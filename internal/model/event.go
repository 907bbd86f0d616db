package model

import (
	"time"
)

// EventType represents the type of a published service event.
type EventType string

const (
	EventTypeChatCreated     EventType = "chat_created"
	EventTypeChatDeleted     EventType = "chat_deleted"
	EventTypeProviderFailure EventType = "provider_failure"
	EventTypeEmail           EventType = "email"
)

// Event is a best-effort notification published to the event bus.
// Consumers (mailer, analytics) run outside this service; a lost event
// never fails the operation that produced it.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	UserID    string         `json:"user_id,omitempty"`
	ChatID    string         `json:"chat_id,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
