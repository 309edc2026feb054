// Package app wires discovery, tailing, and interactive control together
// behind one coordination loop. The loop owns all published state; blocking
// work (file reads, process probes, subprocess I/O) happens on worker
// goroutines that feed results back as messages.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"lookout/internal/config"
	"lookout/internal/discovery"
	"lookout/internal/interact"
	"lookout/internal/logfile"
	"lookout/internal/logging"
	"lookout/internal/procscan"
	"lookout/internal/store"
	"lookout/internal/tail"
	"lookout/internal/types"
	"lookout/internal/watch"
)

var ErrSessionNotFound = errors.New("session not found")

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	Sessions []*types.SessionSummary
	Projects []*types.Project
}

type App struct {
	settings config.Settings
	logger   logging.Logger
	roots    []string
	engine   *discovery.Engine
	cache    *store.SummaryCache
	tailer   *tail.Engine
	client   *interact.Client

	mu          sync.Mutex
	sessions    []*types.SessionSummary
	projects    []*types.Project
	selected    string
	subscribers map[int]chan Snapshot
	nextSub     int
}

// New builds the engine stack. The bbolt summary cache is optional: if it
// cannot be opened discovery simply runs cold.
func New(settings config.Settings, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	roots, err := settings.SessionRoots()
	if err != nil {
		return nil, err
	}

	var cache *store.SummaryCache
	if storePath, pathErr := config.StorePath(); pathErr == nil {
		opened, openErr := store.Open(storePath)
		if openErr != nil {
			logger.Warn("summary cache unavailable", logging.F("error", openErr))
		} else {
			cache = opened
		}
	}

	engine := discovery.NewEngine(discovery.Config{
		Roots:        roots,
		StaleHorizon: settings.StaleHorizon(),
		ActiveWindow: settings.ActiveWindow(),
		PreviewLines: settings.PreviewLines(),
		Prober:       procscan.NewProber(settings.ClaudeCommand()),
		Persisted:    cache,
		Logger:       logger,
	})

	return &App{
		settings:    settings,
		logger:      logger,
		roots:       roots,
		engine:      engine,
		cache:       cache,
		tailer:      tail.NewEngine(logger),
		client:      interact.NewClient(settings.ClaudeCommand(), logger),
		subscribers: make(map[int]chan Snapshot),
	}, nil
}

// Run drives periodic and watcher-triggered discovery until ctx is
// cancelled. It is the coordination loop: scans run on worker goroutines,
// while tail notifications are handled inline so records keep file order.
func (a *App) Run(ctx context.Context) error {
	watcher, err := watch.New(a.roots, a.settings.Debounce(), a.logger)
	if err != nil {
		return err
	}
	defer watcher.Stop()
	defer a.tailer.Stop()
	defer a.client.Disconnect()
	if a.cache != nil {
		defer a.cache.Close()
	}

	ticker := time.NewTicker(a.settings.PollInterval())
	defer ticker.Stop()

	results := make(chan discovery.Result, 1)
	scanning := false
	changes := watcher.Changes()
	a.requestScan(results, &scanning)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.requestScan(results, &scanning)
		case batch, ok := <-changes:
			if !ok {
				// Watcher died; polling keeps discovery alive.
				changes = nil
				continue
			}
			a.notifyTail(batch)
			a.requestScan(results, &scanning)
		case result := <-results:
			scanning = false
			a.publish(result)
		}
	}
}

func (a *App) requestScan(results chan discovery.Result, scanning *bool) {
	if *scanning {
		return
	}
	*scanning = true
	go func() {
		results <- a.engine.Discover()
	}()
}

// notifyTail forwards a change batch to the tail engine when the tailed
// file is among the changed paths. Notify is single-caller by contract, so
// this runs on the coordination loop, never concurrently.
func (a *App) notifyTail(batch []string) {
	tailed := a.tailer.Path()
	if tailed == "" {
		return
	}
	for _, path := range batch {
		if path == tailed {
			a.tailer.Notify()
			return
		}
	}
}

func (a *App) publish(result discovery.Result) {
	a.mu.Lock()
	a.sessions = result.Sessions
	a.projects = result.Projects
	snapshot := a.snapshotLocked()
	subscribers := make([]chan Snapshot, 0, len(a.subscribers))
	for _, ch := range a.subscribers {
		subscribers = append(subscribers, ch)
	}
	a.mu.Unlock()

	for _, ch := range subscribers {
		// Each subscriber channel holds one pending snapshot; a newer one
		// replaces an unconsumed older one.
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

func (a *App) snapshotLocked() Snapshot {
	sessions := make([]*types.SessionSummary, len(a.sessions))
	for i, s := range a.sessions {
		sessions[i] = types.CloneSummary(s)
	}
	projects := make([]*types.Project, len(a.projects))
	for i, p := range a.projects {
		clone := *p
		projects[i] = &clone
	}
	return Snapshot{Sessions: sessions, Projects: projects}
}

// Snapshot returns the latest published session and project lists.
func (a *App) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Subscribe registers for snapshot updates. The returned cancel is
// idempotent.
func (a *App) Subscribe() (<-chan Snapshot, func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	ch := make(chan Snapshot, 1)
	a.subscribers[id] = ch
	a.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subscribers, id)
			a.mu.Unlock()
		})
	}
	return ch, cancel
}

func (a *App) findSession(id string) (*types.SessionSummary, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, session := range a.sessions {
		if session.ID == id {
			return types.CloneSummary(session), true
		}
	}
	return nil, false
}

// SelectSession opens a session for read-only live viewing: the full
// history is read once, and records appended afterwards arrive on the
// returned channel. Selecting a session implicitly deselects the previous
// one.
func (a *App) SelectSession(id string) ([]*types.ParsedMessage, <-chan *types.ParsedMessage, error) {
	session, ok := a.findSession(id)
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	history, offset := logfile.ReadAll(session.LogPath)
	updates := a.tailer.Start(session.LogPath, offset)

	a.mu.Lock()
	a.selected = id
	a.mu.Unlock()
	return history, updates, nil
}

// DeselectSession stops tailing. Safe to call when nothing is selected.
func (a *App) DeselectSession() {
	a.tailer.Stop()
	a.mu.Lock()
	a.selected = ""
	a.mu.Unlock()
}

// Connect switches the selected session into read-write control. Tailing
// and interactive mode are mutually exclusive per session, so the tail is
// stopped first.
func (a *App) Connect(id, permissionMode string) (<-chan types.StreamEvent, error) {
	session, ok := a.findSession(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	a.tailer.Stop()
	events, err := a.client.Connect(id, session.WorkspacePath, permissionMode)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.selected = id
	a.mu.Unlock()
	return events, nil
}

// Disconnect leaves interactive mode and resumes tailing the session from
// the file's current size, returning the resumed tail's channel (nil when
// nothing was connected). Callers that do not consume it must call
// DeselectSession, or a full buffer will stall change handling. Idempotent.
func (a *App) Disconnect() <-chan *types.ParsedMessage {
	id := a.client.SessionID()
	a.client.Disconnect()
	if id == "" {
		return nil
	}
	return a.resumeTail(id)
}

// resumeTail restarts the tail at the log's current size, skipping whatever
// the interactive connection already streamed.
func (a *App) resumeTail(id string) <-chan *types.ParsedMessage {
	session, ok := a.findSession(id)
	if !ok {
		return nil
	}
	a.mu.Lock()
	a.selected = id
	a.mu.Unlock()
	return a.tailer.Start(session.LogPath, logfile.Size(session.LogPath))
}

func (a *App) SendMessage(text string) error {
	return a.client.SendUserMessage(text)
}

func (a *App) Approve(requestID string) error {
	return a.client.SendApproval(requestID, nil)
}

func (a *App) Reject(requestID, message string) error {
	return a.client.SendRejection(requestID, message)
}

// AnswerQuestion resolves a question-tool control request by approving it
// with the chosen option labels written into the tool's input.
func (a *App) AnswerQuestion(requestID, inputJSON string, answers []string) error {
	updated, err := answeredQuestionInput(inputJSON, answers)
	if err != nil {
		return err
	}
	return a.client.SendApproval(requestID, updated)
}

func answeredQuestionInput(inputJSON string, answers []string) (map[string]any, error) {
	var input map[string]any
	if err := json.Unmarshal([]byte(inputJSON), &input); err != nil {
		return nil, err
	}
	questions, _ := input["questions"].([]any)
	if len(questions) == 0 {
		return nil, errors.New("no questions in tool input")
	}
	if len(answers) != len(questions) {
		return nil, errors.New("answer count does not match question count")
	}
	for i, raw := range questions {
		question, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		question["answer"] = answers[i]
	}
	return input, nil
}
