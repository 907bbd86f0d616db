package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/quillchat/quill-api/internal/llm"
	"github.com/quillchat/quill-api/internal/middleware"
	"github.com/quillchat/quill-api/internal/model"
	"github.com/quillchat/quill-api/internal/notify"
	"github.com/quillchat/quill-api/internal/prompt"
	"github.com/quillchat/quill-api/internal/service"
	"github.com/quillchat/quill-api/internal/store"
	"github.com/quillchat/quill-api/pkg/logger"
)

const testSecret = "test-secret"

type stubLLM struct {
	reply string
	err   error
}

func (s *stubLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.reply, Model: "stub"}, nil
}

func (s *stubLLM) Name() string     { return "stub" }
func (s *stubLLM) Models() []string { return []string{"stub"} }

type apiFixture struct {
	router http.Handler
	store  *store.Store
	llm    *stubLLM
	userID string
	token  string
}

// newAPIFixture wires the authenticated routes the way the server does,
// backed by a temp database and a stub model client.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	user, err := st.CreateUser(context.Background(), "Alice", "alice@example.com", "hash", "123456", time.Now().Add(time.Hour))
	require.NoError(t, err)

	log := logger.NewNop()
	stub := &stubLLM{reply: "Hello back!"}

	chatSvc := service.NewChatService(st, notify.Noop{}, log)
	messageSvc := service.NewMessageService(st, prompt.NewAssembler(""), stub, notify.Noop{}, log)

	chatHandler := NewChatHandler(chatSvc, log)
	messageHandler := NewMessageHandler(messageSvc, log)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(testSecret))

		r.Route("/chats", func(r chi.Router) {
			r.Post("/", chatHandler.Create)
			r.Get("/", chatHandler.List)
			r.Get("/{id}", chatHandler.Get)
			r.Delete("/{id}", chatHandler.Delete)
		})

		r.Route("/messages/{chatId}", func(r chi.Router) {
			r.Post("/", messageHandler.Send)
			r.Get("/", messageHandler.List)
		})
	})

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	return &apiFixture{
		router: r,
		store:  st,
		llm:    stub,
		userID: user.ID,
		token:  signed,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) createChat(t *testing.T) string {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/chats/", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var chat model.Chat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chat))
	require.NotEmpty(t, chat.ID)
	return chat.ID
}

func TestChatLifecycle(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	chatID := f.createChat(t)

	rec := f.do(t, http.MethodGet, "/chats/"+chatID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/chats/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list model.ListChatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Chats, 1)

	rec = f.do(t, http.MethodDelete, "/chats/"+chatID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Deleting again reports not found.
	rec = f.do(t, http.MethodDelete, "/chats/"+chatID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/chats/"+chatID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetChat_InvalidID(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/chats/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessage_Turn(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	chatID := f.createChat(t)

	rec := f.do(t, http.MethodPost, "/messages/"+chatID+"/", model.SendMessageRequest{Content: "Hi there"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var turn model.Turn
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turn))
	require.Equal(t, "Hi there", turn.UserMessage.Content)
	require.NotNil(t, turn.AIMessage)
	require.Equal(t, "Hello back!", turn.AIMessage.Content)

	rec = f.do(t, http.MethodGet, "/messages/"+chatID+"/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []model.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 2)
}

func TestSendMessage_ErrorContract(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	chatID := f.createChat(t)

	// Blank content is a field error.
	rec := f.do(t, http.MethodPost, "/messages/"+chatID+"/", model.SendMessageRequest{Content: "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "content")

	// A chat the caller does not own is forbidden.
	otherID := uuid.Must(uuid.NewV7()).String()
	rec = f.do(t, http.MethodPost, "/messages/"+otherID+"/", model.SendMessageRequest{Content: "Hi"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/messages/"+otherID+"/", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Provider failures surface as a generic 500; the user message stays.
	f.llm.err = context.DeadlineExceeded
	rec = f.do(t, http.MethodPost, "/messages/"+chatID+"/", model.SendMessageRequest{Content: "Still there?"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	f.llm.err = nil
	rec = f.do(t, http.MethodGet, "/messages/"+chatID+"/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []model.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 1)
	require.Equal(t, model.SenderUser, messages[0].Sender)
}

func TestRoutes_RequireAuth(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/chats/", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
