package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillchat/quill-api/internal/model"
)

// CreateChat creates an empty chat owned by userID.
func (s *Store) CreateChat(ctx context.Context, userID string) (*model.Chat, error) {
	now := time.Now().UTC()

	chat := &model.Chat{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		chat.ID, chat.UserID, nanos(chat.CreatedAt), nanos(chat.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat: %w", err)
	}

	return chat, nil
}

// ListChats returns the user's chats, most recently updated first. Each chat
// carries only its latest message as a preview; full transcripts are a
// single-chat read.
func (s *Store) ListChats(ctx context.Context, userID string) ([]model.Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.created_at, c.updated_at,
		       m.id, m.sender, m.content, m.created_at
		FROM chats c
		LEFT JOIN messages m ON m.id = (
			SELECT id FROM messages
			WHERE chat_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
		WHERE c.user_id = ?
		ORDER BY c.updated_at DESC, c.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	chats := []model.Chat{}
	for rows.Next() {
		var chat model.Chat
		var createdAt, updatedAt int64
		var msgID, msgSender, msgContent sql.NullString
		var msgCreatedAt sql.NullInt64

		if err := rows.Scan(
			&chat.ID, &chat.UserID, &createdAt, &updatedAt,
			&msgID, &msgSender, &msgContent, &msgCreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}

		chat.CreatedAt = fromNanos(createdAt)
		chat.UpdatedAt = fromNanos(updatedAt)

		if msgID.Valid {
			chat.PreviewMessage = &model.Message{
				ID:        msgID.String,
				ChatID:    chat.ID,
				Sender:    model.Sender(msgSender.String),
				Content:   msgContent.String,
				CreatedAt: fromNanos(msgCreatedAt.Int64),
			}
		}

		chats = append(chats, chat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return chats, nil
}

// GetChat returns the chat with its full ordered transcript. It fails with
// ErrNotFound when the chat does not exist or is owned by another user.
func (s *Store) GetChat(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	var chat model.Chat
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM chats WHERE id = ? AND user_id = ?`,
		chatID, userID,
	).Scan(&chat.ID, &chat.UserID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chat: %w", err)
	}

	chat.CreatedAt = fromNanos(createdAt)
	chat.UpdatedAt = fromNanos(updatedAt)

	messages, err := s.ListMessages(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	chat.Messages = messages

	return &chat, nil
}

// DeleteChat removes the chat and, through the foreign key cascade, every
// message in it. Same ErrNotFound rule as GetChat.
func (s *Store) DeleteChat(ctx context.Context, userID, chatID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chats WHERE id = ? AND user_id = ?`,
		chatID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
