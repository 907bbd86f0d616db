package model

import (
	"fmt"
	"time"
)

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Valid reports whether s is one of the two allowed sender tags.
// The store rejects anything else, so a third role can never be persisted.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAI
}

// MaxMessageLength is the maximum accepted content length in characters.
const MaxMessageLength = 2000

// Message represents one immutable utterance in a chat.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is the request to send a new user message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// Turn is one completed user/AI exchange.
type Turn struct {
	UserMessage Message  `json:"user_message"`
	AIMessage   *Message `json:"ai_message,omitempty"`
}

// ErrInvalidSender is returned when a sender tag outside the closed set is used.
var ErrInvalidSender = fmt.Errorf("sender must be %q or %q", SenderUser, SenderAI)
