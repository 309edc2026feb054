package config

import (
	"errors"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultStaleAfterDays      = 14
	defaultActiveWithinSeconds = 30
	defaultPollIntervalSeconds = 5
	defaultPreviewLines        = 40
	defaultDebounceMillis      = 500
	defaultClaudeCommand       = "claude"
)

type Settings struct {
	Discovery DiscoverySettings `toml:"discovery"`
	Watch     WatchSettings     `toml:"watch"`
	Claude    ClaudeSettings    `toml:"claude"`
	Logging   LoggingSettings   `toml:"logging"`
}

type DiscoverySettings struct {
	// Roots lists the session log roots to scan. Empty means the agent's
	// default per-workspace root.
	Roots               []string `toml:"roots"`
	StaleAfterDays      int      `toml:"stale_after_days"`
	ActiveWithinSeconds int      `toml:"active_within_seconds"`
	PollIntervalSeconds int      `toml:"poll_interval_seconds"`
	PreviewLines        int      `toml:"preview_lines"`
}

type WatchSettings struct {
	DebounceMillis int `toml:"debounce_ms"`
}

type ClaudeSettings struct {
	Command        string `toml:"command"`
	PermissionMode string `toml:"permission_mode"`
}

type LoggingSettings struct {
	Level string `toml:"level"`
}

func DefaultSettings() Settings {
	return Settings{
		Discovery: DiscoverySettings{
			StaleAfterDays:      defaultStaleAfterDays,
			ActiveWithinSeconds: defaultActiveWithinSeconds,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			PreviewLines:        defaultPreviewLines,
		},
		Watch: WatchSettings{
			DebounceMillis: defaultDebounceMillis,
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// LoadSettings reads the settings file, layering it over defaults. A missing
// or empty file yields defaults.
func LoadSettings() (Settings, error) {
	path, err := SettingsPath()
	if err != nil {
		return Settings{}, err
	}
	return loadSettingsFromPath(path)
}

func loadSettingsFromPath(path string) (Settings, error) {
	cfg := DefaultSettings()
	if err := readTOML(path, &cfg); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func (s Settings) SessionRoots() ([]string, error) {
	roots := make([]string, 0, len(s.Discovery.Roots))
	for _, root := range s.Discovery.Roots {
		if trimmed := strings.TrimSpace(root); trimmed != "" {
			roots = append(roots, trimmed)
		}
	}
	if len(roots) > 0 {
		return roots, nil
	}
	root, err := DefaultSessionRoot()
	if err != nil {
		return nil, err
	}
	return []string{root}, nil
}

func (s Settings) StaleHorizon() time.Duration {
	days := s.Discovery.StaleAfterDays
	if days <= 0 {
		days = defaultStaleAfterDays
	}
	return time.Duration(days) * 24 * time.Hour
}

func (s Settings) ActiveWindow() time.Duration {
	seconds := s.Discovery.ActiveWithinSeconds
	if seconds <= 0 {
		seconds = defaultActiveWithinSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (s Settings) PollInterval() time.Duration {
	seconds := s.Discovery.PollIntervalSeconds
	if seconds <= 0 {
		seconds = defaultPollIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (s Settings) PreviewLines() int {
	if s.Discovery.PreviewLines <= 0 {
		return defaultPreviewLines
	}
	return s.Discovery.PreviewLines
}

func (s Settings) Debounce() time.Duration {
	millis := s.Watch.DebounceMillis
	if millis <= 0 {
		millis = defaultDebounceMillis
	}
	return time.Duration(millis) * time.Millisecond
}

func (s Settings) ClaudeCommand() string {
	cmd := strings.TrimSpace(s.Claude.Command)
	if cmd == "" {
		return defaultClaudeCommand
	}
	return cmd
}

func (s Settings) LogLevel() string {
	level := strings.TrimSpace(s.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}
