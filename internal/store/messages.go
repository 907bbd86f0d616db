package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillchat/quill-api/internal/model"
)

// AppendMessage appends a message to the chat and advances the chat's
// updated_at in the same transaction. The caller is expected to have verified
// chat ownership already; only chat existence is re-checked here, so a chat
// deleted mid-flight surfaces as ErrNotFound instead of an orphaned row.
func (s *Store) AppendMessage(ctx context.Context, chatID string, sender model.Sender, content string) (*model.Message, error) {
	if !sender.Valid() {
		return nil, model.ErrInvalidSender
	}

	now := time.Now().UTC()

	msg := &model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		ChatID:    chatID,
		Sender:    sender,
		Content:   content,
		CreatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE chats SET updated_at = ? WHERE id = ?`,
		nanos(now), chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to touch chat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, sender, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ChatID, string(msg.Sender), msg.Content, nanos(msg.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}

	return msg, nil
}

// ListMessages returns all messages of a chat in creation order. Messages with
// equal timestamps keep insertion order because ids are time-ordered UUIDv7.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, sender, content, created_at
		 FROM messages
		 WHERE chat_id = ?
		 ORDER BY created_at ASC, id ASC`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var msg model.Message
		var sender string
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.ChatID, &sender, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Sender = model.Sender(sender)
		msg.CreatedAt = fromNanos(createdAt)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return messages, nil
}
