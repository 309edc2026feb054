// Package discovery produces the authoritative session list by scanning the
// per-workspace session log tree. Summaries are cached keyed by log mtime;
// mtime equality is the sole invalidation signal.
package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"lookout/internal/logfile"
	"lookout/internal/logging"
	"lookout/internal/logparse"
	"lookout/internal/procscan"
	"lookout/internal/store"
	"lookout/internal/types"
)

const (
	maxPreviews       = 5
	previewTextLimit  = 200
	subagentsDirName  = "subagents"
	subagentLogPrefix = "agent-"
)

type Config struct {
	Roots        []string
	StaleHorizon time.Duration
	ActiveWindow time.Duration
	PreviewLines int
	Prober       *procscan.Prober
	// Persisted, when set, warms the cache at startup and keeps it current
	// across runs. Entries are trusted only while their stored mtime equals
	// the file's current mtime.
	Persisted *store.SummaryCache
	Logger    logging.Logger
}

type Result struct {
	Sessions []*types.SessionSummary
	Projects []*types.Project
}

type cacheEntry struct {
	modTime time.Time
	summary *types.SessionSummary
}

type Engine struct {
	roots        []string
	staleHorizon time.Duration
	activeWindow time.Duration
	previewLines int
	prober       *procscan.Prober
	persisted    *store.SummaryCache
	logger       logging.Logger
	now          func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
	group singleflight.Group
}

func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	prober := cfg.Prober
	if prober == nil {
		prober = procscan.NewProber("")
	}
	staleHorizon := cfg.StaleHorizon
	if staleHorizon <= 0 {
		staleHorizon = 14 * 24 * time.Hour
	}
	activeWindow := cfg.ActiveWindow
	if activeWindow <= 0 {
		activeWindow = 30 * time.Second
	}
	previewLines := cfg.PreviewLines
	if previewLines <= 0 {
		previewLines = 40
	}
	e := &Engine{
		roots:        append([]string{}, cfg.Roots...),
		staleHorizon: staleHorizon,
		activeWindow: activeWindow,
		previewLines: previewLines,
		prober:       prober,
		persisted:    cfg.Persisted,
		logger:       logger,
		now:          time.Now,
		cache:        make(map[string]cacheEntry),
	}
	e.warmCache()
	return e
}

func (e *Engine) warmCache() {
	if e.persisted == nil {
		return
	}
	entries, err := e.persisted.All()
	if err != nil {
		e.logger.Warn("summary cache load failed", logging.F("error", err))
		return
	}
	e.mu.Lock()
	for path, entry := range entries {
		e.cache[path] = cacheEntry{modTime: entry.ModTime, summary: entry.Summary}
	}
	e.mu.Unlock()
}

// Discover runs one scan. Concurrent callers share a single in-flight scan;
// the pass itself never fails, sessions that error are omitted.
func (e *Engine) Discover() Result {
	value, _, _ := e.group.Do("scan", func() (any, error) {
		return e.scan(), nil
	})
	result, _ := value.(Result)
	return result
}

func (e *Engine) scan() Result {
	now := e.now()
	procs := e.prober.BySession()

	var sessions []*types.SessionSummary
	for _, root := range e.roots {
		workspaces, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, workspace := range workspaces {
			if !workspace.IsDir() {
				continue
			}
			workspaceDir := filepath.Join(root, workspace.Name())
			workspacePath := DemanglePath(workspace.Name())
			projectName := ProjectName(workspacePath)
			for _, entry := range e.sessionEntries(workspaceDir) {
				summary := e.summarize(entry, workspacePath, projectName, procs, now)
				if summary != nil {
					sessions = append(sessions, summary)
				}
			}
		}
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].LastActivity.Equal(sessions[j].LastActivity) {
			return sessions[i].LastActivity.After(sessions[j].LastActivity)
		}
		return sessions[i].ID < sessions[j].ID
	})

	return Result{Sessions: sessions, Projects: buildProjects(sessions)}
}

type sessionEntry struct {
	id         string
	logPath    string
	sessionDir string
}

// sessionEntries finds valid sessions in one workspace directory: either a
// <sessionId>.jsonl file, or a <sessionId>/ subdirectory holding a
// same-named .jsonl. sessionDir is set when a per-session directory exists,
// for subagent counting.
func (e *Engine) sessionEntries(workspaceDir string) []sessionEntry {
	dirEntries, err := os.ReadDir(workspaceDir)
	if err != nil {
		return nil
	}
	var entries []sessionEntry
	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if dirEntry.IsDir() {
			if !ValidSessionID(name) {
				continue
			}
			logPath := filepath.Join(workspaceDir, name, name+".jsonl")
			if _, err := os.Stat(logPath); err != nil {
				continue
			}
			entries = append(entries, sessionEntry{
				id:         name,
				logPath:    logPath,
				sessionDir: filepath.Join(workspaceDir, name),
			})
			continue
		}
		id := strings.TrimSuffix(name, ".jsonl")
		if id == name || !ValidSessionID(id) {
			continue
		}
		entry := sessionEntry{id: id, logPath: filepath.Join(workspaceDir, name)}
		if info, err := os.Stat(filepath.Join(workspaceDir, id)); err == nil && info.IsDir() {
			entry.sessionDir = filepath.Join(workspaceDir, id)
		}
		entries = append(entries, entry)
	}
	return entries
}

func (e *Engine) summarize(entry sessionEntry, workspacePath, projectName string, procs map[string]int, now time.Time) *types.SessionSummary {
	modTime := logfile.LastModified(entry.logPath)
	if modTime.IsZero() {
		e.dropCached(entry.logPath)
		return nil
	}
	if now.Sub(modTime) > e.staleHorizon {
		e.dropCached(entry.logPath)
		return nil
	}

	summary, cached := e.cachedSummary(entry.logPath, modTime)
	if !cached {
		summary = e.buildSummary(entry, workspacePath, projectName, modTime)
		if summary == nil {
			return nil
		}
		e.storeCached(entry.logPath, modTime, summary)
	}

	// Status can change without a file write (the owning process may have
	// died), so it is re-derived from a fresh probe on every scan, cache hit
	// or not.
	out := types.CloneSummary(summary)
	pid, listed := procs[entry.id]
	alive := listed && e.prober.AliveCheck(pid)
	out.PID = pid
	out.Status = types.DeriveStatus(alive, out.Pending != nil, now.Sub(modTime), e.activeWindow)
	out.LastActivity = modTime
	return out
}

func (e *Engine) cachedSummary(logPath string, modTime time.Time) (*types.SessionSummary, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.cache[logPath]
	if !ok || !entry.modTime.Equal(modTime) {
		return nil, false
	}
	return entry.summary, true
}

func (e *Engine) storeCached(logPath string, modTime time.Time, summary *types.SessionSummary) {
	e.mu.Lock()
	e.cache[logPath] = cacheEntry{modTime: modTime, summary: summary}
	e.mu.Unlock()
	if e.persisted == nil {
		return
	}
	if err := e.persisted.Put(logPath, &store.CachedSummary{ModTime: modTime, Summary: summary}); err != nil {
		e.logger.Warn("summary cache write failed",
			logging.F("path", logPath),
			logging.F("error", err))
	}
}

func (e *Engine) dropCached(logPath string) {
	e.mu.Lock()
	delete(e.cache, logPath)
	e.mu.Unlock()
	if e.persisted != nil {
		_ = e.persisted.Delete(logPath)
	}
}

func (e *Engine) buildSummary(entry sessionEntry, workspacePath, projectName string, modTime time.Time) *types.SessionSummary {
	lines := logfile.Tail(entry.logPath, e.previewLines)
	messages := make([]*types.ParsedMessage, 0, len(lines))
	for _, line := range lines {
		if msg := logparse.ParseLine(line); msg != nil {
			messages = append(messages, msg)
		}
	}

	summary := &types.SessionSummary{
		ID:            entry.id,
		WorkspacePath: workspacePath,
		ProjectName:   projectName,
		LogPath:       entry.logPath,
		LastActivity:  modTime,
		MessageCount:  logfile.LineCount(entry.logPath),
		SubagentCount: countSubagents(entry.sessionDir),
		Previews:      buildPreviews(messages),
		Pending:       DetectPending(messages),
	}

	// Metadata comes from the most recent message that carries it.
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if summary.Model == "" && msg.Model != "" {
			summary.Model = msg.Model
		}
		if summary.GitBranch == "" && msg.GitBranch != "" {
			summary.GitBranch = msg.GitBranch
		}
		if summary.Version == "" && msg.Version != "" {
			summary.Version = msg.Version
		}
		if summary.PermissionMode == "" && msg.PermissionMode != "" {
			summary.PermissionMode = msg.PermissionMode
		}
		if summary.Summary == "" && msg.Summary != "" {
			summary.Summary = msg.Summary
		}
	}
	return summary
}

func buildPreviews(messages []*types.ParsedMessage) []types.MessagePreview {
	var previews []types.MessagePreview
	for _, msg := range messages {
		if msg.Type != types.MessageTypeUser && msg.Type != types.MessageTypeAssistant {
			continue
		}
		text := firstText(msg)
		if text == "" {
			continue
		}
		previews = append(previews, types.MessagePreview{Role: string(msg.Type), Text: text})
	}
	if len(previews) > maxPreviews {
		previews = previews[len(previews)-maxPreviews:]
	}
	return previews
}

func firstText(msg *types.ParsedMessage) string {
	for _, block := range msg.Content {
		if block.Kind != types.BlockText {
			continue
		}
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		if len(text) > previewTextLimit {
			text = truncateRunes(text, previewTextLimit)
		}
		return text
	}
	return ""
}

// truncateRunes cuts text to at most max bytes without splitting a rune.
func truncateRunes(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func countSubagents(sessionDir string) int {
	if sessionDir == "" {
		return 0
	}
	entries, err := os.ReadDir(filepath.Join(sessionDir, subagentsDirName))
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, subagentLogPrefix) && strings.HasSuffix(name, ".jsonl") {
			count++
		}
	}
	return count
}

func buildProjects(sessions []*types.SessionSummary) []*types.Project {
	byPath := make(map[string]*types.Project)
	var order []string
	for _, session := range sessions {
		project, ok := byPath[session.WorkspacePath]
		if !ok {
			project = &types.Project{
				Name: session.ProjectName,
				Path: session.WorkspacePath,
			}
			byPath[session.WorkspacePath] = project
			order = append(order, session.WorkspacePath)
		}
		project.SessionCount++
		if session.Status == types.SessionStatusActive || session.Status == types.SessionStatusWaiting {
			project.ActiveCount++
		}
	}
	projects := make([]*types.Project, 0, len(order))
	for _, path := range order {
		projects = append(projects, byPath[path])
	}
	sort.SliceStable(projects, func(i, j int) bool {
		if projects[i].ActiveCount != projects[j].ActiveCount {
			return projects[i].ActiveCount > projects[j].ActiveCount
		}
		return projects[i].Name < projects[j].Name
	})
	return projects
}
