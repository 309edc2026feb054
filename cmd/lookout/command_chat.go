package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"lookout/internal/app"
	"lookout/internal/logging"
	"lookout/internal/types"
)

var chatPermissionMode string

var chatCmd = &cobra.Command{
	Use:   "chat <session-id>",
	Short: "Resume a session interactively",
	Long: `Resume a session interactively. Lines you type are sent to the agent.

Commands:
  /approve        approve the pending tool call
  /deny [reason]  reject the pending tool call
  /quit           disconnect and exit
`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatPermissionMode, "permission-mode", "", "permission mode to resume with (e.g. acceptEdits, plan)")
}

func runChat(cmd *cobra.Command, args []string) error {
	settings, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(settings, logger)
	if err != nil {
		return err
	}
	go func() {
		if runErr := a.Run(ctx); runErr != nil {
			logger.Error("engine stopped", logging.F("error", runErr))
			cancel()
		}
	}()

	if err := waitForSession(ctx, a, args[0]); err != nil {
		return err
	}
	events, err := a.Connect(args[0], chatPermissionMode)
	if err != nil {
		return err
	}
	defer func() {
		// Nothing reads the resumed tail once chat exits, so stop it.
		a.Disconnect()
		a.DeselectSession()
	}()

	var pending pendingRequest
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			renderStreamEvent(os.Stdout, event, &pending)
			if event.Kind == types.StreamDisconnected {
				return
			}
		}
	}()

	input := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		default:
		}
		if !input.Scan() {
			return input.Err()
		}
		line := strings.TrimSpace(input.Text())
		if line == "" {
			continue
		}
		if err := handleChatLine(a, line, &pending); err != nil {
			if err == errQuit {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

var errQuit = fmt.Errorf("quit")

// pendingRequest remembers the last unanswered permission request so
// /approve and /deny do not need an id argument. At most one request is
// outstanding at a time.
type pendingRequest struct {
	mu sync.Mutex
	id string
}

func (p *pendingRequest) set(id string) {
	p.mu.Lock()
	p.id = id
	p.mu.Unlock()
}

func (p *pendingRequest) take() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.id
	p.id = ""
	return id
}

func handleChatLine(a *app.App, line string, pending *pendingRequest) error {
	switch {
	case line == "/quit":
		return errQuit
	case line == "/approve":
		id := pending.take()
		if id == "" {
			return fmt.Errorf("no pending tool call")
		}
		return a.Approve(id)
	case strings.HasPrefix(line, "/deny"):
		id := pending.take()
		if id == "" {
			return fmt.Errorf("no pending tool call")
		}
		reason := strings.TrimSpace(strings.TrimPrefix(line, "/deny"))
		return a.Reject(id, reason)
	case strings.HasPrefix(line, "/"):
		return fmt.Errorf("unknown command: %s", line)
	default:
		return a.SendMessage(line)
	}
}

func renderStreamEvent(output *os.File, event types.StreamEvent, pending *pendingRequest) {
	switch event.Kind {
	case types.StreamConnected:
		fmt.Fprintf(output, "connected to %s (model %s)\n", event.SessionID, event.Model)
	case types.StreamText:
		fmt.Fprint(output, event.Delta)
	case types.StreamToolUseStart:
		fmt.Fprintf(output, "\n[tool] %s\n", event.ToolName)
	case types.StreamPermissionRequest:
		pending.set(event.RequestID)
		fmt.Fprintf(output, "\n[permission] agent wants to run %s\n  input: %s\n  /approve or /deny [reason]\n",
			event.ToolName, truncate(event.Input, 200))
	case types.StreamMessageComplete:
		fmt.Fprintln(output)
	case types.StreamResult:
		if event.CostUSD != nil {
			fmt.Fprintf(output, "[done] %dms, $%.4f\n", event.DurationMS, *event.CostUSD)
		} else {
			fmt.Fprintf(output, "[done] %dms\n", event.DurationMS)
		}
	case types.StreamError:
		fmt.Fprintf(output, "[error] %s\n", event.Err)
	case types.StreamDisconnected:
		fmt.Fprintln(output, "disconnected")
	}
}
