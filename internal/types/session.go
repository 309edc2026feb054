package types

import "time"

type SessionStatus string

const (
	// SessionStatusActive means the owning process is alive and the log was
	// written to within the recency window.
	SessionStatusActive SessionStatus = "active"
	// SessionStatusWaiting means the session is blocked on a pending
	// interaction (tool approval, question, plan review).
	SessionStatusWaiting SessionStatus = "waiting"
	// SessionStatusIdle means the owning process is alive but the log has
	// been quiet for longer than the recency window.
	SessionStatusIdle SessionStatus = "idle"
	// SessionStatusStale means no live owning process was found.
	SessionStatusStale SessionStatus = "stale"
)

// DeriveStatus maps observable session facts to a status. It is the single
// place this mapping lives; callers must not store a status separately from
// the inputs that produced it.
func DeriveStatus(pidAlive bool, pending bool, sinceActivity time.Duration, activeWithin time.Duration) SessionStatus {
	if !pidAlive {
		return SessionStatusStale
	}
	if pending {
		return SessionStatusWaiting
	}
	if sinceActivity <= activeWithin {
		return SessionStatusActive
	}
	return SessionStatusIdle
}

type MessagePreview struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// SessionSummary is one discovered session. Refreshed on every scan; dropped
// when its log file disappears or ages past the staleness horizon.
type SessionSummary struct {
	ID             string              `json:"id"`
	WorkspacePath  string              `json:"workspace_path"`
	ProjectName    string              `json:"project_name"`
	LogPath        string              `json:"log_path"`
	Status         SessionStatus       `json:"status"`
	LastActivity   time.Time           `json:"last_activity"`
	PID            int                 `json:"pid,omitempty"`
	Model          string              `json:"model,omitempty"`
	GitBranch      string              `json:"git_branch,omitempty"`
	Version        string              `json:"version,omitempty"`
	PermissionMode string              `json:"permission_mode,omitempty"`
	Summary        string              `json:"summary,omitempty"`
	MessageCount   int                 `json:"message_count"`
	SubagentCount  int                 `json:"subagent_count"`
	Previews       []MessagePreview    `json:"previews,omitempty"`
	Pending        *PendingInteraction `json:"pending,omitempty"`
}

func CloneSummary(s *SessionSummary) *SessionSummary {
	if s == nil {
		return nil
	}
	out := *s
	if s.Previews != nil {
		out.Previews = append([]MessagePreview{}, s.Previews...)
	}
	out.Pending = ClonePendingInteraction(s.Pending)
	return &out
}

// Project aggregates sessions sharing a workspace path. Recomputed every
// scan, never persisted.
type Project struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	SessionCount int    `json:"session_count"`
	ActiveCount  int    `json:"active_count"`
}
