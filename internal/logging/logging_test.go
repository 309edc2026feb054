package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLogfmtOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Info)
	logger.Info("session discovered", F("id", "abc"), F("count", 3))

	line := strings.TrimSpace(buf.String())
	for _, want := range []string{"level=info", `msg="session discovered"`, "id=abc", "count=3"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Warn)
	logger.Debug("noise")
	logger.Info("noise")
	logger.Warn("kept")

	if strings.Contains(buf.String(), "noise") {
		t.Fatalf("suppressed levels leaked: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Info).With(F("component", "discovery"))
	logger.Info("scan complete")

	if !strings.Contains(buf.String(), "component=discovery") {
		t.Fatalf("bound field missing: %q", buf.String())
	}
}

func TestAppendValueQuoting(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "plain", value: "abc", want: "abc"},
		{name: "spaces", value: "a b", want: `"a b"`},
		{name: "empty", value: "", want: `""`},
		{name: "error", value: errors.New("boom boom"), want: `"boom boom"`},
		{name: "bool", value: true, want: "true"},
		{name: "int64", value: int64(42), want: "42"},
		{name: "nil", value: nil, want: "null"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			appendValue(&buf, tc.value)
			if got := buf.String(); got != tc.want {
				t.Fatalf("appendValue(%v) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}

func TestNopDropsEverything(t *testing.T) {
	logger := Nop()
	logger.Error("dropped")
	if logger.Enabled(Error) {
		t.Fatalf("nop logger should not enable any level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want Level
	}{
		{raw: "debug", want: Debug},
		{raw: "WARN", want: Warn},
		{raw: "warning", want: Warn},
		{raw: "error", want: Error},
		{raw: "", want: Info},
		{raw: "bogus", want: Info},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.raw); got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
