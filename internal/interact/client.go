// Package interact owns a control connection to one live agent CLI
// subprocess, speaking the NDJSON control protocol over its stdio.
package interact

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"lookout/internal/logging"
	"lookout/internal/types"
)

const (
	eventBuffer     = 256
	terminateGrace  = 2 * time.Second
	killGrace       = 1 * time.Second
	scanBufferBytes = 1024 * 1024
)

var (
	ErrAlreadyConnected = errors.New("a session is already connected")
	ErrNotConnected     = errors.New("no session is connected")
)

// Client manages zero or one live subprocess. The decode loop runs on its
// own goroutine; callers only ever see already-decoded events on the stream
// returned by Connect.
type Client struct {
	logger     logging.Logger
	command    string
	binaryName string

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	events    chan types.StreamEvent
	done      chan struct{}
	connected bool
	killed    bool
	sessionID string
	pending   string
}

// NewClient builds a client. command optionally overrides binary resolution;
// it may be a path or a name looked up on PATH.
func NewClient(command string, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Client{
		logger:     logger,
		command:    strings.TrimSpace(command),
		binaryName: "claude",
	}
}

// Connect spawns the agent CLI resuming the given session and returns its
// event stream. It returns as soon as the process is launched; the protocol
// handshake is lazy and only completes on the first real turn. Binary
// resolution and spawn failures fail the stream with an error event rather
// than an error return.
func (c *Client) Connect(sessionID, workDir, permissionMode string) (<-chan types.StreamEvent, error) {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil, ErrAlreadyConnected
	}
	events := make(chan types.StreamEvent, eventBuffer)
	done := make(chan struct{})
	c.events = events
	c.done = done
	c.connected = true
	c.killed = false
	c.sessionID = sessionID
	c.pending = ""
	c.mu.Unlock()

	binary, err := resolveBinary(c.command, c.binaryName)
	if err != nil {
		c.failStream(events, "binary not found: "+c.binaryName)
		return events, nil
	}

	cmd := exec.Command(binary, spawnArgs(sessionID, permissionMode)...)
	if workDir != "" {
		cmd.Dir = workDir
	}
	cmd.Env = mergedPathEnv(binary)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		c.failStream(events, "stdin pipe: "+err.Error())
		return events, nil
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.failStream(events, "stdout pipe: "+err.Error())
		return events, nil
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		c.failStream(events, "stderr pipe: "+err.Error())
		return events, nil
	}

	if err := cmd.Start(); err != nil {
		c.failStream(events, "spawn failed: "+err.Error())
		return events, nil
	}

	c.mu.Lock()
	c.cmd = cmd
	c.stdin = stdin
	c.mu.Unlock()

	c.logger.Info("interactive session connected",
		logging.F("session_id", sessionID),
		logging.F("binary", binary),
		logging.F("pid", cmd.Process.Pid))

	go c.drainStderr(stderr)
	go c.readLoop(stdout, events, done)
	return events, nil
}

// spawnArgs builds the resume invocation. Print mode is what makes the CLI
// speak stream-json NDJSON over stdio instead of rendering a terminal UI.
func spawnArgs(sessionID, permissionMode string) []string {
	args := []string{
		"--print",
		"--input-format", "stream-json",
		"--output-format", "stream-json",
		"--verbose",
		"--include-partial-messages",
		"--permission-prompt-tool", "stdio",
		"--resume", sessionID,
	}
	if mode := strings.TrimSpace(permissionMode); mode != "" {
		args = append(args, "--permission-mode", mode)
	}
	return args
}

// failStream reports a connection failure on the stream and tears the
// connection state back down.
func (c *Client) failStream(events chan types.StreamEvent, message string) {
	c.logger.Error("interactive connect failed", logging.F("error", message))
	events <- types.StreamEvent{Kind: types.StreamError, Err: message}
	events <- types.StreamEvent{Kind: types.StreamDisconnected}
	c.mu.Lock()
	c.connected = false
	c.cmd = nil
	c.stdin = nil
	done := c.done
	c.mu.Unlock()
	if done != nil {
		close(done)
	}
}

// SendUserMessage writes one user message frame to the subprocess.
func (c *Client) SendUserMessage(text string) error {
	frame := map[string]any{
		"type": "user",
		"message": map[string]any{
			"role": "user",
			"content": []map[string]any{
				{"type": "text", "text": text},
			},
		},
	}
	return c.writeFrame(frame)
}

// SendApproval answers a pending control request allowing the tool call.
// updatedInput, when non-nil, replaces the tool's input (used both for
// edited approvals and for question answers).
func (c *Client) SendApproval(requestID string, updatedInput map[string]any) error {
	response := map[string]any{"behavior": "allow"}
	if updatedInput != nil {
		response["updatedInput"] = updatedInput
	}
	return c.sendControlResponse(requestID, response)
}

// SendRejection answers a pending control request denying the tool call.
func (c *Client) SendRejection(requestID, message string) error {
	response := map[string]any{"behavior": "deny"}
	if strings.TrimSpace(message) != "" {
		response["message"] = message
	}
	return c.sendControlResponse(requestID, response)
}

// sendControlResponse writes a control_response frame. The request_id must
// be nested inside the response object; the subprocess does not recognize a
// top-level request_id.
func (c *Client) sendControlResponse(requestID string, response map[string]any) error {
	if strings.TrimSpace(requestID) == "" {
		return errors.New("request id is required")
	}
	frame := map[string]any{
		"type": "control_response",
		"response": map[string]any{
			"subtype":    "success",
			"request_id": requestID,
			"response":   response,
		},
	}
	c.mu.Lock()
	if c.pending == requestID {
		c.pending = ""
	}
	c.mu.Unlock()
	return c.writeFrame(frame)
}

func (c *Client) writeFrame(frame map[string]any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.stdin == nil {
		return ErrNotConnected
	}
	_, err = c.stdin.Write(data)
	return err
}

// Connected reports whether a subprocess connection is live.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SessionID returns the connected session's id, or empty when disconnected.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ""
	}
	return c.sessionID
}

// PendingRequestID returns the outstanding control request's id, or empty.
// At most one request is outstanding per connection; the subprocess blocks
// until it is answered.
func (c *Client) PendingRequestID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Disconnect terminates the subprocess: SIGTERM, a short grace period, then
// SIGKILL. Idempotent and safe to call when never connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if !c.connected || c.cmd == nil {
		c.mu.Unlock()
		return
	}
	c.killed = true
	process := c.cmd.Process
	done := c.done
	stdin := c.stdin
	c.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}
	if process != nil {
		_ = process.Signal(syscall.SIGTERM)
		select {
		case <-done:
			return
		case <-time.After(terminateGrace):
		}
		_ = process.Kill()
		select {
		case <-done:
		case <-time.After(killGrace):
		}
	}
}

func (c *Client) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufferBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			c.logger.Debug("agent stderr", logging.F("line", line))
		}
	}
}
