// Package logparse converts one line of the agent's session log into a
// structured message. It does no I/O and never fails on malformed input:
// lines that cannot be decoded or carry an unrecognized type yield nil.
package logparse

import (
	"encoding/json"
	"strings"
	"time"

	"lookout/internal/types"
)

// ParseLine decodes a single log line. It returns nil for blank lines,
// malformed JSON, and records whose declared type is unrecognized; callers
// decide whether to count skipped lines.
func ParseLine(line string) *types.ParsedMessage {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		return nil
	}
	return ParseRecord(payload)
}

// ParseRecord converts an already-decoded log record. Shared with the
// interactive protocol, whose assistant frames embed the same record shape.
func ParseRecord(payload map[string]any) *types.ParsedMessage {
	if payload == nil {
		return nil
	}
	typ, _ := payload["type"].(string)

	var msgType types.MessageType
	switch typ {
	case "user":
		msgType = types.MessageTypeUser
	case "assistant":
		msgType = types.MessageTypeAssistant
	case "system":
		msgType = types.MessageTypeSystem
	case "progress":
		msgType = types.MessageTypeProgress
	case "summary":
		msgType = types.MessageTypeSummary
	case "file-history-snapshot", "queue-operation":
		msgType = types.MessageTypeOther
	default:
		return nil
	}

	msg := &types.ParsedMessage{Type: msgType}
	if id, _ := payload["uuid"].(string); id != "" {
		msg.ID = id
	}
	if ts := parseTimestamp(payload["timestamp"]); ts != nil {
		msg.Timestamp = ts
	}
	if slug, _ := payload["slug"].(string); slug != "" {
		msg.Slug = strings.TrimSpace(slug)
	}
	if mode, _ := payload["permissionMode"].(string); mode != "" {
		msg.PermissionMode = strings.TrimSpace(mode)
	}
	if branch, _ := payload["gitBranch"].(string); branch != "" {
		msg.GitBranch = strings.TrimSpace(branch)
	}
	if version, _ := payload["version"].(string); version != "" {
		msg.Version = strings.TrimSpace(version)
	}
	if sessionID, _ := payload["sessionId"].(string); sessionID != "" {
		msg.SessionID = strings.TrimSpace(sessionID)
	}
	if cwd, _ := payload["cwd"].(string); cwd != "" {
		msg.Cwd = strings.TrimSpace(cwd)
	}
	if msgType == types.MessageTypeSummary {
		if summary, _ := payload["summary"].(string); summary != "" {
			msg.Summary = strings.TrimSpace(summary)
		}
	}

	message, _ := payload["message"].(map[string]any)
	if message != nil {
		if role, _ := message["role"].(string); role != "" {
			msg.Role = role
		}
		if model, _ := message["model"].(string); strings.TrimSpace(model) != "" {
			msg.Model = strings.TrimSpace(model)
		}
		if id, _ := message["id"].(string); id != "" && msg.ID == "" {
			msg.ID = id
		}
		msg.Content = parseContent(message["content"])
	}
	return msg
}

func parseContent(raw any) []types.ContentBlock {
	switch content := raw.(type) {
	case string:
		if content == "" {
			return nil
		}
		return []types.ContentBlock{{Kind: types.BlockText, Text: content}}
	case []any:
		blocks := make([]types.ContentBlock, 0, len(content))
		for _, entry := range content {
			block, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if parsed, ok := parseBlock(block); ok {
				blocks = append(blocks, parsed)
			}
		}
		return blocks
	default:
		return nil
	}
}

func parseBlock(block map[string]any) (types.ContentBlock, bool) {
	kind, _ := block["type"].(string)
	switch kind {
	case "text":
		text, _ := block["text"].(string)
		return types.ContentBlock{Kind: types.BlockText, Text: text}, true
	case "thinking":
		text, _ := block["thinking"].(string)
		return types.ContentBlock{Kind: types.BlockThinking, Text: text}, true
	case "tool_use":
		id, _ := block["id"].(string)
		name, _ := block["name"].(string)
		return types.ContentBlock{
			Kind:      types.BlockToolUse,
			ToolUseID: id,
			ToolName:  name,
			ToolInput: CanonicalJSON(block["input"]),
		}, true
	case "tool_result":
		id, _ := block["tool_use_id"].(string)
		isError, _ := block["is_error"].(bool)
		return types.ContentBlock{
			Kind:      types.BlockToolResult,
			ToolUseID: id,
			Text:      flattenResultContent(block["content"]),
			IsError:   isError,
		}, true
	default:
		// Unknown block kinds are skipped, not fatal.
		return types.ContentBlock{}, false
	}
}

// CanonicalJSON serializes a decoded JSON value back to a string with stable
// key order, suitable for display and hashing.
func CanonicalJSON(raw any) string {
	if raw == nil {
		return ""
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return ""
	}
	return string(data)
}

// flattenResultContent normalizes tool result content, which may be a bare
// string or an array of text fragments, to a single string.
func flattenResultContent(raw any) string {
	switch content := raw.(type) {
	case string:
		return content
	case []any:
		var parts []string
		for _, entry := range content {
			block, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if text, _ := block["text"].(string); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "")
	default:
		return ""
	}
}

func parseTimestamp(raw any) *time.Time {
	value, _ := raw.(string)
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}
	return nil
}
