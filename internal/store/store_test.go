package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quillchat/quill-api/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func newTestUser(t *testing.T, s *Store, email string) *model.User {
	t.Helper()

	user, err := s.CreateUser(context.Background(), "Test User", email, "hash", "123456", time.Now().Add(10*time.Minute))
	require.NoError(t, err)

	return user
}

func TestCreateChat(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	chat, err := s.CreateChat(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chat.ID)
	require.Equal(t, user.ID, chat.UserID)
	require.Equal(t, chat.CreatedAt, chat.UpdatedAt)

	got, err := s.GetChat(ctx, user.ID, chat.ID)
	require.NoError(t, err)
	require.Equal(t, chat.ID, got.ID)
	require.Empty(t, got.Messages)
}

func TestGetChat_NotOwned(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	owner := newTestUser(t, s, "owner@example.com")
	other := newTestUser(t, s, "other@example.com")

	chat, err := s.CreateChat(ctx, owner.ID)
	require.NoError(t, err)

	// A non-owner gets the same error as for a missing chat.
	_, err = s.GetChat(ctx, other.ID, chat.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetChat(ctx, owner.ID, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetChat_Idempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	chat, err := s.CreateChat(ctx, user.ID)
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := s.AppendMessage(ctx, chat.ID, model.SenderUser, content)
		require.NoError(t, err)
	}

	first, err := s.GetChat(ctx, user.ID, chat.ID)
	require.NoError(t, err)
	second, err := s.GetChat(ctx, user.ID, chat.ID)
	require.NoError(t, err)
	require.Equal(t, first.Messages, second.Messages)
}

func TestListChats_OrderAndPreview(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	first, err := s.CreateChat(ctx, user.ID)
	require.NoError(t, err)
	second, err := s.CreateChat(ctx, user.ID)
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, second.ID, model.SenderUser, "hello")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, second.ID, model.SenderAI, "hi there")
	require.NoError(t, err)

	// Touching the first chat last moves it to the top.
	_, err = s.AppendMessage(ctx, first.ID, model.SenderUser, "newest")
	require.NoError(t, err)

	chats, err := s.ListChats(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)

	require.Equal(t, first.ID, chats[0].ID)
	require.NotNil(t, chats[0].PreviewMessage)
	require.Equal(t, "newest", chats[0].PreviewMessage.Content)

	// The preview is the latest message only, not the whole transcript.
	require.Equal(t, second.ID, chats[1].ID)
	require.NotNil(t, chats[1].PreviewMessage)
	require.Equal(t, "hi there", chats[1].PreviewMessage.Content)
	require.Equal(t, model.SenderAI, chats[1].PreviewMessage.Sender)
	require.Empty(t, chats[1].Messages)
}

func TestListChats_EmptyChatHasNoPreview(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	_, err := s.CreateChat(ctx, user.ID)
	require.NoError(t, err)

	chats, err := s.ListChats(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Nil(t, chats[0].PreviewMessage)
}

func TestAppendMessage_TouchesChat(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	chat, err := s.CreateChat(ctx, user.ID)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	msg, err := s.AppendMessage(ctx, chat.ID, model.SenderUser, "hello")
	require.NoError(t, err)
	require.Equal(t, model.SenderUser, msg.Sender)

	got, err := s.GetChat(ctx, user.ID, chat.ID)
	require.NoError(t, err)
	require.True(t, got.UpdatedAt.After(chat.UpdatedAt), "updated_at should advance on append")
}

func TestAppendMessage_MissingChat(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, err := s.AppendMessage(context.Background(), "no-such-chat", model.SenderUser, "hello")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAppendMessage_InvalidSender(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	chat, err := s.CreateChat(ctx, user.ID)
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, chat.ID, model.Sender("system"), "nope")
	require.ErrorIs(t, err, model.ErrInvalidSender)
}

func TestListMessages_CreationOrder(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	chat, err := s.CreateChat(ctx, user.ID)
	require.NoError(t, err)

	contents := []string{"a", "b", "c", "d", "e"}
	for _, c := range contents {
		_, err := s.AppendMessage(ctx, chat.ID, model.SenderUser, c)
		require.NoError(t, err)
	}

	messages, err := s.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, len(contents))

	for i, msg := range messages {
		require.Equal(t, contents[i], msg.Content)
		if i > 0 {
			require.False(t, msg.CreatedAt.Before(messages[i-1].CreatedAt),
				"created_at must be non-decreasing")
		}
	}
}

func TestDeleteChat_Cascades(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	chat, err := s.CreateChat(ctx, user.ID)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := s.AppendMessage(ctx, chat.ID, model.SenderUser, "msg")
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteChat(ctx, user.ID, chat.ID))

	_, err = s.GetChat(ctx, user.ID, chat.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// No orphaned messages remain queryable.
	messages, err := s.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Empty(t, messages)
}

func TestDeleteChat_NotOwned(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	owner := newTestUser(t, s, "owner@example.com")
	other := newTestUser(t, s, "other@example.com")

	chat, err := s.CreateChat(ctx, owner.ID)
	require.NoError(t, err)

	err = s.DeleteChat(ctx, other.ID, chat.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// Still there for the owner.
	_, err = s.GetChat(ctx, owner.ID, chat.ID)
	require.NoError(t, err)
}

func TestUserRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	expiry := time.Now().UTC().Add(10 * time.Minute)
	user, err := s.CreateUser(ctx, "Alice", "Alice@Example.com", "hash", "654321", expiry)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email, "emails are stored lowercased")

	got, err := s.GetUserByEmail(ctx, "ALICE@example.COM")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.False(t, got.IsVerified)
	require.Equal(t, "654321", got.VerificationCode)
	require.NotNil(t, got.CodeExpiry)

	require.NoError(t, s.MarkVerified(ctx, user.ID))

	got, err = s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, got.IsVerified)
	require.Empty(t, got.VerificationCode)
	require.Nil(t, got.CodeExpiry)
}

func TestGetUser_Missing(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, err := s.GetUserByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, ErrNotFound)

	err = s.MarkVerified(context.Background(), "no-such-id")
	require.True(t, errors.Is(err, ErrNotFound))
}
