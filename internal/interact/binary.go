package interact

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

var ErrBinaryNotFound = errors.New("agent binary not found")

// resolveBinary locates the agent CLI. Explicit overrides win; otherwise a
// fixed list of common install locations is checked, then the newest entry
// of the package-manager-style versions directory, then PATH.
func resolveBinary(override, binaryName string) (string, error) {
	if trimmed := strings.TrimSpace(override); trimmed != "" && trimmed != binaryName {
		if isExecutable(trimmed) {
			return trimmed, nil
		}
		if resolved, err := exec.LookPath(trimmed); err == nil {
			return resolved, nil
		}
		return "", ErrBinaryNotFound
	}

	for _, candidate := range fixedLocations(binaryName) {
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	if versioned := newestVersionedBinary(binaryName); versioned != "" {
		return versioned, nil
	}
	if resolved, err := exec.LookPath(binaryName); err == nil {
		return resolved, nil
	}
	return "", ErrBinaryNotFound
}

func fixedLocations(binaryName string) []string {
	var locations []string
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, "."+binaryName, "local", binaryName),
			filepath.Join(home, ".local", "bin", binaryName),
			filepath.Join(home, "bin", binaryName),
		)
	}
	locations = append(locations,
		filepath.Join("/usr/local/bin", binaryName),
		filepath.Join("/opt/homebrew/bin", binaryName),
	)
	return locations
}

// newestVersionedBinary checks the versioned install tree some package
// managers use (~/.local/share/<name>/versions/<version>/<name>) and picks
// the lexically newest version.
func newestVersionedBinary(binaryName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	versionsDir := filepath.Join(home, ".local", "share", binaryName, "versions")
	entries, err := os.ReadDir(versionsDir)
	if err != nil {
		return ""
	}
	var versions []string
	for _, entry := range entries {
		if entry.IsDir() {
			versions = append(versions, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))
	for _, version := range versions {
		candidate := filepath.Join(versionsDir, version, binaryName)
		if isExecutable(candidate) {
			return candidate
		}
	}
	return ""
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}

// mergedPathEnv returns the process environment with the binary's directory
// prepended to PATH so the child can find its own helpers.
func mergedPathEnv(binaryPath string) []string {
	binDir := filepath.Dir(binaryPath)
	env := os.Environ()
	for i, entry := range env {
		if strings.HasPrefix(entry, "PATH=") {
			env[i] = "PATH=" + binDir + string(os.PathListSeparator) + strings.TrimPrefix(entry, "PATH=")
			return env
		}
	}
	return append(env, "PATH="+binDir)
}
