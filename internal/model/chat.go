package model

import (
	"time"
)

// Chat represents a conversation thread owned by a single user.
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// PreviewMessage is the most recent message, populated by list views only.
	PreviewMessage *Message `json:"preview_message,omitempty"`

	// Messages is the full ordered transcript, populated by single-chat reads only.
	Messages []Message `json:"messages,omitempty"`
}

// ListChatsResponse is the response for listing a user's chats.
type ListChatsResponse struct {
	Chats []Chat `json:"chats"`
	Total int    `json:"total"`
}
