package interact

import (
	"strings"

	"lookout/internal/types"
)

// liveToolCall tracks one in-flight tool use whose input JSON arrives as
// deltas.
type liveToolCall struct {
	id    string
	name  string
	input strings.Builder
	done  bool
}

// liveMessage accumulates one streaming assistant message. It exists only
// between message_start and the message's completion, owned by the decode
// loop.
type liveMessage struct {
	id        string
	role      string
	text      strings.Builder
	thinking  strings.Builder
	toolCalls []*liveToolCall
}

func (m *liveMessage) lastToolCall() *liveToolCall {
	if len(m.toolCalls) == 0 {
		return nil
	}
	return m.toolCalls[len(m.toolCalls)-1]
}

func (m *liveMessage) empty() bool {
	return m.text.Len() == 0 && m.thinking.Len() == 0 && len(m.toolCalls) == 0
}

// finalize converts the accumulator into a terminal ParsedMessage and is the
// end of the accumulator's lifetime.
func (m *liveMessage) finalize() *types.ParsedMessage {
	msg := &types.ParsedMessage{
		ID:   m.id,
		Type: types.MessageTypeAssistant,
		Role: m.role,
	}
	if msg.Role == "" {
		msg.Role = "assistant"
	}
	if m.thinking.Len() > 0 {
		msg.Content = append(msg.Content, types.ContentBlock{
			Kind: types.BlockThinking,
			Text: m.thinking.String(),
		})
	}
	if m.text.Len() > 0 {
		msg.Content = append(msg.Content, types.ContentBlock{
			Kind: types.BlockText,
			Text: m.text.String(),
		})
	}
	for _, call := range m.toolCalls {
		msg.Content = append(msg.Content, types.ContentBlock{
			Kind:      types.BlockToolUse,
			ToolUseID: call.id,
			ToolName:  call.name,
			ToolInput: call.input.String(),
		})
	}
	return msg
}
