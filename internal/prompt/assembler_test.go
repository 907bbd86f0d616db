package prompt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quillchat/quill-api/internal/llm"
	"github.com/quillchat/quill-api/internal/model"
)

func TestAssemble_RoleMapping(t *testing.T) {
	t.Parallel()

	a := NewAssembler("")
	history := []model.Message{
		{Sender: model.SenderUser, Content: "hello"},
		{Sender: model.SenderAI, Content: "hi there"},
		{Sender: model.SenderUser, Content: "how are you?"},
	}

	got := a.Assemble(history)
	require.Len(t, got, 4)

	require.Equal(t, llm.RoleSystem, got[0].Role)
	require.Equal(t, DefaultSystemInstruction, got[0].Content)

	require.Equal(t, llm.RoleUser, got[1].Role)
	require.Equal(t, "hello", got[1].Content)
	require.Equal(t, llm.RoleAssistant, got[2].Role)
	require.Equal(t, "hi there", got[2].Content)
	require.Equal(t, llm.RoleUser, got[3].Role)
	require.Equal(t, "how are you?", got[3].Content)
}

func TestAssemble_EmptyHistory(t *testing.T) {
	t.Parallel()

	got := NewAssembler("").Assemble(nil)
	require.Len(t, got, 1)
	require.Equal(t, llm.RoleSystem, got[0].Role)
}

func TestAssemble_CustomInstruction(t *testing.T) {
	t.Parallel()

	a := NewAssembler("You are a pirate.")
	got := a.Assemble([]model.Message{{Sender: model.SenderUser, Content: "ahoy"}})
	require.Equal(t, "You are a pirate.", got[0].Content)
}

func TestAssemble_PreservesOrder(t *testing.T) {
	t.Parallel()

	history := make([]model.Message, 0, 20)
	for i := 0; i < 10; i++ {
		history = append(history,
			model.Message{Sender: model.SenderUser, Content: string(rune('a' + i))},
			model.Message{Sender: model.SenderAI, Content: string(rune('A' + i))},
		)
	}

	got := NewAssembler("").Assemble(history)
	require.Len(t, got, 21)
	for i, msg := range history {
		require.Equal(t, msg.Content, got[i+1].Content)
	}
}
