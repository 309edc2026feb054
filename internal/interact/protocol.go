package interact

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"lookout/internal/logging"
	"lookout/internal/logparse"
	"lookout/internal/types"
)

// decodeState is the protocol state machine's mutable state, owned entirely
// by the read loop goroutine.
type decodeState struct {
	live      *liveMessage
	blockKind string
}

// readLoop decodes stdout frames until the subprocess exits, then reports
// the exit as a disconnection. It is the only writer to the event stream
// once the connection is up.
func (c *Client) readLoop(stdout io.Reader, events chan types.StreamEvent, done chan struct{}) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufferBytes)
	state := &decodeState{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			// One malformed frame must not abort an otherwise-healthy
			// session.
			c.logger.Warn("malformed protocol frame", logging.F("error", err))
			continue
		}
		for _, event := range c.dispatch(payload, state) {
			events <- event
		}
	}

	c.mu.Lock()
	cmd := c.cmd
	killed := c.killed
	c.mu.Unlock()

	var exitErr error
	if cmd != nil {
		exitErr = cmd.Wait()
	}
	if exitErr != nil && !killed {
		// A mid-turn abnormal exit discards any in-flight streaming state;
		// the caller decides whether to retry or surface the failure.
		events <- types.StreamEvent{
			Kind: types.StreamError,
			Err:  "agent process exited: " + exitErr.Error(),
		}
	}
	events <- types.StreamEvent{Kind: types.StreamDisconnected}

	c.mu.Lock()
	c.connected = false
	c.cmd = nil
	c.stdin = nil
	c.pending = ""
	c.mu.Unlock()
	close(done)
}

func (c *Client) dispatch(payload map[string]any, state *decodeState) []types.StreamEvent {
	typ, _ := payload["type"].(string)
	switch typ {
	case "system":
		if subtype, _ := payload["subtype"].(string); subtype != "init" {
			return nil
		}
		sessionID, _ := payload["session_id"].(string)
		model, _ := payload["model"].(string)
		mode, _ := payload["permissionMode"].(string)
		return []types.StreamEvent{{
			Kind:           types.StreamConnected,
			SessionID:      sessionID,
			Model:          model,
			PermissionMode: mode,
		}}
	case "stream_event":
		event, _ := payload["event"].(map[string]any)
		if event == nil {
			return nil
		}
		return c.dispatchStreamEvent(event, state)
	case "assistant":
		// A complete non-streaming message supersedes whatever the
		// accumulator holds for the same turn.
		state.live = nil
		msg := logparse.ParseRecord(payload)
		if msg == nil {
			return nil
		}
		return []types.StreamEvent{{Kind: types.StreamMessageComplete, Message: msg}}
	case "control_request":
		return c.dispatchControlRequest(payload)
	case "result":
		out := types.StreamEvent{Kind: types.StreamResult}
		if duration, ok := payload["duration_ms"].(float64); ok {
			out.DurationMS = int64(duration)
		}
		if cost, ok := payload["total_cost_usd"].(float64); ok {
			out.CostUSD = &cost
		}
		return []types.StreamEvent{out}
	default:
		c.logger.Debug("ignoring protocol frame", logging.F("type", typ))
		return nil
	}
}

func (c *Client) dispatchStreamEvent(event map[string]any, state *decodeState) []types.StreamEvent {
	etype, _ := event["type"].(string)
	switch etype {
	case "message_start":
		live := &liveMessage{}
		if message, _ := event["message"].(map[string]any); message != nil {
			live.id, _ = message["id"].(string)
			live.role, _ = message["role"].(string)
		}
		state.live = live
		state.blockKind = ""
		return nil
	case "content_block_start":
		block, _ := event["content_block"].(map[string]any)
		if block == nil {
			return nil
		}
		kind, _ := block["type"].(string)
		state.blockKind = kind
		if kind != "tool_use" {
			return nil
		}
		if state.live == nil {
			state.live = &liveMessage{}
		}
		id, _ := block["id"].(string)
		name, _ := block["name"].(string)
		state.live.toolCalls = append(state.live.toolCalls, &liveToolCall{id: id, name: name})
		return []types.StreamEvent{{
			Kind:      types.StreamToolUseStart,
			ToolUseID: id,
			ToolName:  name,
		}}
	case "content_block_delta":
		delta, _ := event["delta"].(map[string]any)
		if delta == nil {
			return nil
		}
		// Some streams open with deltas and no message_start; accumulate
		// into a fresh message rather than dropping them.
		if state.live == nil {
			state.live = &liveMessage{}
		}
		dtype, _ := delta["type"].(string)
		switch dtype {
		case "text_delta":
			text, _ := delta["text"].(string)
			if text == "" {
				return nil
			}
			state.live.text.WriteString(text)
			return []types.StreamEvent{{Kind: types.StreamText, Delta: text}}
		case "thinking_delta":
			text, _ := delta["thinking"].(string)
			if text == "" {
				return nil
			}
			state.live.thinking.WriteString(text)
			return []types.StreamEvent{{Kind: types.StreamThinking, Delta: text}}
		case "input_json_delta":
			// Buffered until the tool call's block closes; nothing emitted.
			fragment, _ := delta["partial_json"].(string)
			if call := state.live.lastToolCall(); call != nil && !call.done {
				call.input.WriteString(fragment)
			}
			return nil
		default:
			return nil
		}
	case "content_block_stop":
		// If the closed block was a tool use its input buffer is complete;
		// whether approval is needed is the subprocess's call, signalled by
		// a separate control_request.
		if state.blockKind == "tool_use" && state.live != nil {
			if call := state.live.lastToolCall(); call != nil {
				call.done = true
			}
		}
		state.blockKind = ""
		return nil
	case "message_stop":
		live := state.live
		state.live = nil
		if live == nil || live.empty() {
			return nil
		}
		return []types.StreamEvent{{Kind: types.StreamMessageComplete, Message: live.finalize()}}
	default:
		return nil
	}
}

func (c *Client) dispatchControlRequest(payload map[string]any) []types.StreamEvent {
	requestID := asString(payload["request_id"])
	request, _ := payload["request"].(map[string]any)
	if requestID == "" || request == nil {
		c.logger.Warn("malformed control request")
		return nil
	}
	toolName, _ := request["tool_name"].(string)
	input := logparse.CanonicalJSON(request["input"])

	c.mu.Lock()
	if c.pending != "" {
		c.logger.Warn("control request while one is pending",
			logging.F("pending", c.pending),
			logging.F("request_id", requestID))
	}
	c.pending = requestID
	c.mu.Unlock()

	return []types.StreamEvent{{
		Kind:      types.StreamPermissionRequest,
		RequestID: requestID,
		ToolName:  toolName,
		Input:     input,
	}}
}

func asString(raw any) string {
	switch value := raw.(type) {
	case string:
		return value
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", value), ".0")
	default:
		return ""
	}
}
