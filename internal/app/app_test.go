package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lookout/internal/discovery"
	"lookout/internal/interact"
	"lookout/internal/logfile"
	"lookout/internal/procscan"
	"lookout/internal/tail"
	"lookout/internal/types"
)

func TestAnsweredQuestionInput(t *testing.T) {
	input := `{"questions":[{"question":"Which color?","options":[{"label":"red"},{"label":"blue"}]},{"question":"Confirm?","options":[{"label":"yes"},{"label":"no"}]}]}`
	updated, err := answeredQuestionInput(input, []string{"blue", "yes"})
	if err != nil {
		t.Fatalf("answeredQuestionInput: %v", err)
	}
	questions, _ := updated["questions"].([]any)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	first, _ := questions[0].(map[string]any)
	if first["answer"] != "blue" {
		t.Fatalf("first answer = %v", first["answer"])
	}
	second, _ := questions[1].(map[string]any)
	if second["answer"] != "yes" {
		t.Fatalf("second answer = %v", second["answer"])
	}
	// The original question fields survive.
	if first["question"] != "Which color?" {
		t.Fatalf("question text lost: %v", first)
	}
	if _, err := json.Marshal(updated); err != nil {
		t.Fatalf("updated input not serializable: %v", err)
	}
}

func TestAnsweredQuestionInputCountMismatch(t *testing.T) {
	input := `{"questions":[{"question":"One?"}]}`
	if _, err := answeredQuestionInput(input, []string{"a", "b"}); err == nil {
		t.Fatalf("expected an error for mismatched answer count")
	}
}

func TestAnsweredQuestionInputNoQuestions(t *testing.T) {
	if _, err := answeredQuestionInput(`{"plan":"x"}`, nil); err == nil {
		t.Fatalf("expected an error when the input has no questions")
	}
}

func TestAnsweredQuestionInputMalformed(t *testing.T) {
	if _, err := answeredQuestionInput(`{"questions":`, []string{"a"}); err == nil {
		t.Fatalf("expected an error for malformed input JSON")
	}
}

const (
	appTestSessionID = "7d3a1f2c-5b6e-4a8d-9c0f-1e2d3c4b5a69"
	appUserLine      = `{"type":"user","message":{"role":"user","content":"hi"}}` + "\n"
	appAssistantLine = `{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"hello"}]}}` + "\n"
)

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer file.Close()
	if _, err := file.WriteString(content); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
}

func receiveMessage(t *testing.T, ch <-chan *types.ParsedMessage) *types.ParsedMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a message")
		return nil
	}
}

// newTestApp builds an App over a one-session log tree without running the
// coordination loop, so tests can drive selection and notifications
// directly.
func newTestApp(t *testing.T) (*App, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "-Users-dev-Foo")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	logPath := filepath.Join(dir, appTestSessionID+".jsonl")
	appendLog(t, logPath, appUserLine)

	engine := discovery.NewEngine(discovery.Config{
		Roots: []string{root},
		Prober: procscan.NewProberWithSource("claude", func() (string, error) {
			return "", nil
		}),
	})
	a := &App{
		engine:      engine,
		tailer:      tail.NewEngine(nil),
		client:      interact.NewClient("", nil),
		subscribers: make(map[int]chan Snapshot),
	}
	a.publish(engine.Discover())
	return a, logPath
}

func TestSelectSessionReadsHistoryThenTails(t *testing.T) {
	a, logPath := newTestApp(t)
	defer a.DeselectSession()

	history, updates, err := a.SelectSession(appTestSessionID)
	if err != nil {
		t.Fatalf("SelectSession: %v", err)
	}
	if len(history) != 1 || history[0].Type != types.MessageTypeUser {
		t.Fatalf("unexpected history: %+v", history)
	}

	appendLog(t, logPath, appAssistantLine)
	a.tailer.Notify()
	if msg := receiveMessage(t, updates); msg.Type != types.MessageTypeAssistant {
		t.Fatalf("expected the appended assistant record, got %s", msg.Type)
	}
}

func TestSelectSessionUnknownID(t *testing.T) {
	a, _ := newTestApp(t)
	if _, _, err := a.SelectSession("no-such-session"); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestConnectStopsTail(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PATH", "")
	a, logPath := newTestApp(t)

	if _, _, err := a.SelectSession(appTestSessionID); err != nil {
		t.Fatalf("SelectSession: %v", err)
	}
	if got := a.tailer.Path(); got != logPath {
		t.Fatalf("expected tail on %s, got %q", logPath, got)
	}

	events, err := a.Connect(appTestSessionID, "")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if events == nil {
		t.Fatalf("expected an event stream")
	}
	// Tailing and interactive mode are mutually exclusive.
	if got := a.tailer.Path(); got != "" {
		t.Fatalf("tail still running on %q after Connect", got)
	}
}

func TestDisconnectWhenIdle(t *testing.T) {
	a, _ := newTestApp(t)
	if ch := a.Disconnect(); ch != nil {
		t.Fatalf("expected nil channel when nothing was connected")
	}
	if got := a.tailer.Path(); got != "" {
		t.Fatalf("unexpected tail on %q", got)
	}
}

func TestResumeTailSkipsStreamedContent(t *testing.T) {
	a, logPath := newTestApp(t)
	defer a.DeselectSession()

	// Records written while connected are already on screen; the resumed
	// tail must start past them.
	appendLog(t, logPath, appAssistantLine)

	updates := a.resumeTail(appTestSessionID)
	if updates == nil {
		t.Fatalf("expected a resumed tail channel")
	}
	if got := a.tailer.Offset(); got != logfile.Size(logPath) {
		t.Fatalf("resume offset = %d, want file size %d", got, logfile.Size(logPath))
	}

	a.tailer.Notify()
	select {
	case msg := <-updates:
		t.Fatalf("pre-resume record replayed: %+v", msg)
	default:
	}

	appendLog(t, logPath, appUserLine)
	a.tailer.Notify()
	if msg := receiveMessage(t, updates); msg.Type != types.MessageTypeUser {
		t.Fatalf("expected only the post-resume record, got %s", msg.Type)
	}
}

func TestDeselectSessionIdempotent(t *testing.T) {
	a, _ := newTestApp(t)

	a.DeselectSession()
	if _, _, err := a.SelectSession(appTestSessionID); err != nil {
		t.Fatalf("SelectSession: %v", err)
	}
	a.DeselectSession()
	a.DeselectSession()
	if got := a.tailer.Path(); got != "" {
		t.Fatalf("tail still active on %q", got)
	}
	a.mu.Lock()
	selected := a.selected
	a.mu.Unlock()
	if selected != "" {
		t.Fatalf("selection not cleared: %q", selected)
	}
}

func TestNotifyTailDeliversInFileOrder(t *testing.T) {
	a, logPath := newTestApp(t)
	defer a.DeselectSession()

	_, updates, err := a.SelectSession(appTestSessionID)
	if err != nil {
		t.Fatalf("SelectSession: %v", err)
	}

	appendLog(t, logPath, appUserLine+appAssistantLine)
	// notifyTail runs inline on the caller, so records are on the channel
	// in file order by the time it returns.
	a.notifyTail([]string{"/unrelated/file.jsonl", logPath})
	if msg := receiveMessage(t, updates); msg.Type != types.MessageTypeUser {
		t.Fatalf("expected the user record first, got %s", msg.Type)
	}
	if msg := receiveMessage(t, updates); msg.Type != types.MessageTypeAssistant {
		t.Fatalf("expected the assistant record second, got %s", msg.Type)
	}
}
