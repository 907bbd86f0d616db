package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/quillchat/quill-api/internal/middleware"
	"github.com/quillchat/quill-api/internal/model"
	"github.com/quillchat/quill-api/internal/service"
	"github.com/quillchat/quill-api/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	service *service.MessageService
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		logger:  log,
	}
}

// Send handles POST /messages/{chatId}
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	chatID := chi.URLParam(r, "chatId")

	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateBody(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	turn, err := h.service.Send(ctx, userID, chatID, req.Content)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			writeFieldError(w, http.StatusBadRequest, verr.Field, verr.Reason)
		case errors.Is(err, service.ErrForbidden):
			writeError(w, http.StatusForbidden, "unauthorized to send message in this chat")
		default:
			// Provider and storage failures alike: the detail is logged,
			// the caller sees a generic message.
			h.logger.Error("failed to send message",
				zap.String("chat_id", chatID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "failed to send message")
		}
		return
	}

	writeJSON(w, http.StatusCreated, turn)
}

// List handles GET /messages/{chatId}
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	chatID := chi.URLParam(r, "chatId")

	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := h.service.List(ctx, userID, chatID)
	if errors.Is(err, service.ErrForbidden) {
		writeError(w, http.StatusForbidden, "unauthorized to view messages of this chat")
		return
	}
	if err != nil {
		h.logger.Error("failed to get messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}
