package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quillchat/quill-api/internal/llm"
	"github.com/quillchat/quill-api/internal/model"
	"github.com/quillchat/quill-api/internal/notify"
	"github.com/quillchat/quill-api/internal/prompt"
	"github.com/quillchat/quill-api/internal/store"
	"github.com/quillchat/quill-api/pkg/logger"
	"github.com/quillchat/quill-api/pkg/metrics"
)

// FallbackReply is persisted when the provider returns empty text, because
// empty messages are disallowed by the data model.
const FallbackReply = "Sorry, I could not generate a response."

// MessageService orchestrates a conversation turn: validate, authorize,
// persist the user message, build context, call the model, persist the reply.
type MessageService struct {
	store     *store.Store
	assembler *prompt.Assembler
	llmClient llm.Client
	notifier  notify.Notifier
	logger    *logger.Logger
	modelName string
	maxTokens int
}

// NewMessageService creates a new message service. The LLM client is injected
// so tests can substitute a fake.
func NewMessageService(
	st *store.Store,
	assembler *prompt.Assembler,
	llmClient llm.Client,
	notifier notify.Notifier,
	log *logger.Logger,
) *MessageService {
	return &MessageService{
		store:     st,
		assembler: assembler,
		llmClient: llmClient,
		notifier:  notifier,
		logger:    log,
		maxTokens: 4096,
	}
}

// Send runs one conversation turn. On provider failure the already persisted
// user message stays in place and ErrProviderFailure is returned alongside a
// turn holding just that message; nothing is retried automatically.
func (s *MessageService) Send(ctx context.Context, userID, chatID, content string) (*model.Turn, error) {
	// Cheap rejection first, before any storage access.
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, invalidField("content", "message cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > model.MaxMessageLength {
		return nil, invalidField("content", "message too long (max 2000 characters)")
	}

	if s.llmClient == nil {
		return nil, llm.ErrNoProvider
	}

	// One read covers both the ownership decision and the context snapshot.
	// The context therefore reflects the chat strictly before this turn.
	chat, err := s.store.GetChat(ctx, userID, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}

	// Writes from here on use a detached context: a client disconnect must
	// not leave a message shown as sent in the UI but absent from storage.
	writeCtx := context.WithoutCancel(ctx)

	userMsg, err := s.store.AppendMessage(writeCtx, chatID, model.SenderUser, trimmed)
	if errors.Is(err, store.ErrNotFound) {
		// Chat deleted between the ownership read and the append.
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues(string(model.SenderUser)).Inc()

	// The new message is appended to the in-memory snapshot rather than
	// re-read, so a concurrent turn cannot interleave into this context.
	history := append(chat.Messages, *userMsg)
	completionReq := &llm.CompletionRequest{
		Model:     s.modelName,
		Messages:  s.assembler.Assemble(history),
		MaxTokens: s.maxTokens,
	}

	start := time.Now()
	resp, err := s.llmClient.Complete(ctx, completionReq)
	if err != nil {
		metrics.RecordLLMRequest(s.llmClient.Name(), "error", time.Since(start).Seconds(), 0, 0)
		s.logger.Error("LLM completion failed",
			zap.String("chat_id", chatID),
			zap.String("provider", s.llmClient.Name()),
			zap.Error(err),
		)
		s.publishProviderFailure(writeCtx, userID, chatID, err)
		return &model.Turn{UserMessage: *userMsg}, ErrProviderFailure
	}
	metrics.RecordLLMRequest(s.llmClient.Name(), "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	replyText := resp.Content
	if strings.TrimSpace(replyText) == "" {
		replyText = FallbackReply
	}

	aiMsg, err := s.store.AppendMessage(writeCtx, chatID, model.SenderAI, replyText)
	if errors.Is(err, store.ErrNotFound) {
		return &model.Turn{UserMessage: *userMsg}, ErrForbidden
	}
	if err != nil {
		return &model.Turn{UserMessage: *userMsg}, err
	}
	metrics.MessagesTotal.WithLabelValues(string(model.SenderAI)).Inc()

	return &model.Turn{
		UserMessage: *userMsg,
		AIMessage:   aiMsg,
	}, nil
}

// List returns all messages of a chat in creation order after an ownership
// check scoped to the requesting user.
func (s *MessageService) List(ctx context.Context, userID, chatID string) ([]model.Message, error) {
	chat, err := s.store.GetChat(ctx, userID, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}

	return chat.Messages, nil
}

func (s *MessageService) publishProviderFailure(ctx context.Context, userID, chatID string, cause error) {
	err := s.notifier.Event(ctx, &model.Event{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      model.EventTypeProviderFailure,
		UserID:    userID,
		ChatID:    chatID,
		Reason:    cause.Error(),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to publish provider failure event", zap.Error(err))
	}
}
