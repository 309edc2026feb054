package types

import "time"

type MessageType string

const (
	MessageTypeUser      MessageType = "user"
	MessageTypeAssistant MessageType = "assistant"
	MessageTypeSystem    MessageType = "system"
	MessageTypeProgress  MessageType = "progress"
	MessageTypeSummary   MessageType = "summary"
	MessageTypeOther     MessageType = "other"
)

type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockThinking   BlockKind = "thinking"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
)

// ContentBlock is one element of a message's content. Kind selects which of
// the remaining fields are meaningful.
type ContentBlock struct {
	Kind BlockKind `json:"kind"`
	// Text carries text and thinking blocks, and the normalized content of
	// tool_result blocks.
	Text string `json:"text,omitempty"`
	// ToolUseID is the block's own id for tool_use and the answered id for
	// tool_result.
	ToolUseID string `json:"tool_use_id,omitempty"`
	ToolName  string `json:"tool_name,omitempty"`
	// ToolInput is the tool input serialized back to canonical JSON with
	// stable key order.
	ToolInput string `json:"tool_input,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ParsedMessage is one conversational turn or event decoded from a log line.
// Content blocks preserve log order.
type ParsedMessage struct {
	ID        string         `json:"id,omitempty"`
	Type      MessageType    `json:"type"`
	Role      string         `json:"role,omitempty"`
	Content   []ContentBlock `json:"content,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`

	Model          string `json:"model,omitempty"`
	GitBranch      string `json:"git_branch,omitempty"`
	Version        string `json:"version,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	Cwd            string `json:"cwd,omitempty"`
	Slug           string `json:"slug,omitempty"`
	PermissionMode string `json:"permission_mode,omitempty"`
	Summary        string `json:"summary,omitempty"`
}
