package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quillchat/quill-api/internal/model"
	"github.com/quillchat/quill-api/internal/notify"
	"github.com/quillchat/quill-api/internal/store"
	"github.com/quillchat/quill-api/pkg/logger"
	"github.com/quillchat/quill-api/pkg/metrics"
)

// ChatService handles chat thread operations.
type ChatService struct {
	store    *store.Store
	notifier notify.Notifier
	logger   *logger.Logger
}

// NewChatService creates a new chat service.
func NewChatService(st *store.Store, notifier notify.Notifier, log *logger.Logger) *ChatService {
	return &ChatService{
		store:    st,
		notifier: notifier,
		logger:   log,
	}
}

// Create creates an empty chat owned by the user.
func (s *ChatService) Create(ctx context.Context, userID string) (*model.Chat, error) {
	chat, err := s.store.CreateChat(ctx, userID)
	if err != nil {
		return nil, err
	}

	metrics.ChatsTotal.Inc()
	s.logger.Info("chat created",
		zap.String("chat_id", chat.ID),
		zap.String("user_id", userID),
	)

	s.publishEvent(ctx, model.EventTypeChatCreated, userID, chat.ID, "")

	return chat, nil
}

// List returns the user's chats, most recently updated first, each with its
// latest message as a preview.
func (s *ChatService) List(ctx context.Context, userID string) (*model.ListChatsResponse, error) {
	chats, err := s.store.ListChats(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.ListChatsResponse{
		Chats: chats,
		Total: len(chats),
	}, nil
}

// Get returns the chat with its full transcript. store.ErrNotFound covers
// both missing and not-owned chats.
func (s *ChatService) Get(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	return s.store.GetChat(ctx, userID, chatID)
}

// Delete removes the chat and all of its messages atomically.
func (s *ChatService) Delete(ctx context.Context, userID, chatID string) error {
	if err := s.store.DeleteChat(ctx, userID, chatID); err != nil {
		return err
	}

	s.logger.Info("chat deleted",
		zap.String("chat_id", chatID),
		zap.String("user_id", userID),
	)

	s.publishEvent(ctx, model.EventTypeChatDeleted, userID, chatID, "")

	return nil
}

func (s *ChatService) publishEvent(ctx context.Context, eventType model.EventType, userID, chatID, reason string) {
	err := s.notifier.Event(ctx, &model.Event{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      eventType,
		UserID:    userID,
		ChatID:    chatID,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("type", string(eventType)),
			zap.Error(err),
		)
	}
}
