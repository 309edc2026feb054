package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func receiveBatch(t *testing.T, w *Watcher) []string {
	t.Helper()
	select {
	case batch := <-w.Changes():
		return batch
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a change batch")
		return nil
	}
}

func TestWatcherReportsLogWrites(t *testing.T) {
	root := t.TempDir()
	workspace := filepath.Join(root, "-Users-dev-Foo")
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	w, err := New([]string{root}, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	logPath := filepath.Join(workspace, "session.jsonl")
	if err := os.WriteFile(logPath, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	batch := receiveBatch(t, w)
	found := false
	for _, path := range batch {
		if path == logPath {
			found = true
		}
	}
	if !found {
		t.Fatalf("log path missing from batch: %v", batch)
	}
}

func TestWatcherCoalescesBurst(t *testing.T) {
	root := t.TempDir()
	w, err := New([]string{root}, 100*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		path := filepath.Join(root, "session.jsonl")
		if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	batch := receiveBatch(t, w)
	if len(batch) != 1 {
		t.Fatalf("expected one coalesced path, got %v", batch)
	}
}

func TestWatcherPicksUpNewWorkspaceDirs(t *testing.T) {
	root := t.TempDir()
	w, err := New([]string{root}, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	workspace := filepath.Join(root, "-Users-dev-New")
	if err := os.Mkdir(workspace, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	// Give the watcher a moment to add the new directory.
	time.Sleep(200 * time.Millisecond)

	logPath := filepath.Join(workspace, "session.jsonl")
	if err := os.WriteFile(logPath, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	batch := receiveBatch(t, w)
	found := false
	for _, path := range batch {
		if path == logPath {
			found = true
		}
	}
	if !found {
		t.Fatalf("write in new workspace not reported: %v", batch)
	}
}

func TestWatcherCreatesMissingRoots(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does", "not", "exist")
	w, err := New([]string{root}, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	if _, err := os.Stat(root); err != nil {
		t.Fatalf("root not created: %v", err)
	}
}

func TestStopClosesChanges(t *testing.T) {
	w, err := New([]string{t.TempDir()}, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Stop()
	w.Stop()

	select {
	case _, ok := <-w.Changes():
		if ok {
			t.Fatalf("expected the changes channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatalf("changes channel not closed after stop")
	}
}

func TestRelevantPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "/a/b/session.jsonl", want: true},
		{path: "/a/b/session.lock", want: true},
		{path: "/a/b/meta.JSON", want: true},
		{path: "/a/b/notes.txt", want: false},
		{path: "/a/b/session", want: false},
	}
	for _, tc := range tests {
		if got := relevantPath(tc.path); got != tc.want {
			t.Fatalf("relevantPath(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
