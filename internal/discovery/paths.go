package discovery

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const pathSentinel = "-"

// DemanglePath decodes a workspace directory name back into an absolute
// workspace path. The encoding replaces path separators with a sentinel
// character; a trailing sentinel (from a path that ended in a separator) is
// trimmed first.
func DemanglePath(dirName string) string {
	name := strings.TrimSuffix(dirName, pathSentinel)
	if name == "" {
		return string(filepath.Separator)
	}
	return strings.ReplaceAll(name, pathSentinel, string(filepath.Separator))
}

// ManglePath encodes a workspace path the way the agent names its
// per-workspace log directories.
func ManglePath(path string) string {
	return strings.ReplaceAll(path, string(filepath.Separator), pathSentinel)
}

// ProjectName derives the display name for a workspace path: its last path
// component.
func ProjectName(workspacePath string) string {
	name := filepath.Base(workspacePath)
	if name == string(filepath.Separator) || name == "." {
		return workspacePath
	}
	return name
}

// ValidSessionID reports whether an id has the canonical 8-4-4-4-12 hex UUID
// shape used for session log names.
func ValidSessionID(id string) bool {
	if len(id) != 36 {
		return false
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return parsed.String() == strings.ToLower(id)
}
