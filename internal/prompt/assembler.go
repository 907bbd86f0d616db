// Package prompt builds LLM context windows from chat transcripts.
package prompt

import (
	"github.com/quillchat/quill-api/internal/llm"
	"github.com/quillchat/quill-api/internal/model"
)

// DefaultSystemInstruction frames the assistant persona. It is configuration,
// not conversation data, and is never persisted as a message.
const DefaultSystemInstruction = "You are a helpful AI assistant. Be concise, friendly, and informative."

// Assembler converts an ordered chat transcript into role-tagged LLM context.
type Assembler struct {
	systemInstruction string
}

// NewAssembler creates an assembler with the given system instruction.
// An empty instruction falls back to the default persona framing.
func NewAssembler(systemInstruction string) *Assembler {
	if systemInstruction == "" {
		systemInstruction = DefaultSystemInstruction
	}
	return &Assembler{systemInstruction: systemInstruction}
}

// Assemble maps the transcript into provider roles, preserving order exactly:
// sender user becomes role user, sender ai becomes role assistant. The system
// instruction is prepended ahead of the history. No truncation, reordering or
// deduplication happens here.
func (a *Assembler) Assemble(history []model.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(history)+1)
	out = append(out, llm.ChatMessage{
		Role:    llm.RoleSystem,
		Content: a.systemInstruction,
	})

	for _, msg := range history {
		role := llm.RoleUser
		if msg.Sender == model.SenderAI {
			role = llm.RoleAssistant
		}
		out = append(out, llm.ChatMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	return out
}
