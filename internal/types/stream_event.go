package types

type StreamEventKind string

const (
	StreamConnected         StreamEventKind = "connected"
	StreamText              StreamEventKind = "text"
	StreamThinking          StreamEventKind = "thinking"
	StreamToolUseStart      StreamEventKind = "tool_use_start"
	StreamPermissionRequest StreamEventKind = "permission_request"
	StreamMessageComplete   StreamEventKind = "message_complete"
	StreamResult            StreamEventKind = "result"
	StreamDisconnected      StreamEventKind = "disconnected"
	StreamError             StreamEventKind = "error"
)

// StreamEvent is one event on an interactive connection's output stream.
// Kind selects which fields are meaningful.
type StreamEvent struct {
	Kind           StreamEventKind `json:"kind"`
	SessionID      string          `json:"session_id,omitempty"`
	Model          string          `json:"model,omitempty"`
	PermissionMode string          `json:"permission_mode,omitempty"`
	// Delta carries incremental text for text and thinking events.
	Delta     string `json:"delta,omitempty"`
	ToolUseID string `json:"tool_use_id,omitempty"`
	ToolName  string `json:"tool_name,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	// Input is the raw tool input JSON on permission requests.
	Input      string         `json:"input,omitempty"`
	Message    *ParsedMessage `json:"message,omitempty"`
	DurationMS int64          `json:"duration_ms,omitempty"`
	CostUSD    *float64       `json:"cost_usd,omitempty"`
	Err        string         `json:"error,omitempty"`
}
