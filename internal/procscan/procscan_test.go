package procscan

import (
	"errors"
	"os"
	"testing"
)

const psOutput = ` 1001 /usr/local/bin/claude --resume 11111111-1111-4111-8111-111111111111
 1002 node /home/dev/.claude/local/claude --resume=22222222-2222-4222-8222-222222222222
 1003 /usr/local/bin/claude -r 33333333-3333-4333-8333-333333333333
 1004 /usr/local/bin/claude
 1005 vim notes.txt
 1006 /usr/local/bin/claudius --resume 44444444-4444-4444-8444-444444444444
`

func TestListMatchesAgentProcesses(t *testing.T) {
	prober := NewProberWithSource("claude", func() (string, error) {
		return psOutput, nil
	})
	procs := prober.List()
	if len(procs) != 3 {
		t.Fatalf("expected 3 processes, got %d: %+v", len(procs), procs)
	}
	if procs[0].PID != 1001 || procs[0].SessionID != "11111111-1111-4111-8111-111111111111" {
		t.Fatalf("unexpected first process: %+v", procs[0])
	}
	if procs[1].PID != 1002 {
		t.Fatalf("node-launched install not matched: %+v", procs[1])
	}
	if procs[2].SessionID != "33333333-3333-4333-8333-333333333333" {
		t.Fatalf("-r form not extracted: %+v", procs[2])
	}
}

func TestListFailureYieldsEmpty(t *testing.T) {
	prober := NewProberWithSource("claude", func() (string, error) {
		return "", errors.New("ps failed")
	})
	if procs := prober.List(); procs != nil {
		t.Fatalf("expected nil on listing failure, got %+v", procs)
	}
}

func TestBySession(t *testing.T) {
	output := ` 2001 claude --resume aaa
 2002 claude --resume aaa
 2003 claude --resume bbb
`
	prober := NewProberWithSource("claude", func() (string, error) {
		return output, nil
	})
	bySession := prober.BySession()
	if len(bySession) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(bySession))
	}
	// First match wins for duplicate session ids.
	if bySession["aaa"] != 2001 {
		t.Fatalf("pid for aaa = %d, want 2001", bySession["aaa"])
	}
}

func TestExtractSessionID(t *testing.T) {
	tests := []struct {
		name string
		args string
		want string
	}{
		{name: "resume flag", args: "claude --resume abc", want: "abc"},
		{name: "resume equals", args: "claude --resume=abc", want: "abc"},
		{name: "short flag", args: "claude -r abc", want: "abc"},
		{name: "session id flag", args: "claude --session-id abc", want: "abc"},
		{name: "session id equals", args: "claude --session-id=abc", want: "abc"},
		{name: "flag without value", args: "claude --resume", want: ""},
		{name: "no flag", args: "claude chat", want: ""},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := extractSessionID(tc.args); got != tc.want {
				t.Fatalf("extractSessionID(%q) = %q, want %q", tc.args, got, tc.want)
			}
		})
	}
}

func TestAlive(t *testing.T) {
	if !Alive(os.Getpid()) {
		t.Fatalf("own process reported dead")
	}
	if Alive(0) || Alive(-1) {
		t.Fatalf("invalid pids reported alive")
	}
}

func TestAliveCheck(t *testing.T) {
	prober := NewProber("claude")
	if !prober.AliveCheck(os.Getpid()) {
		t.Fatalf("own process reported dead")
	}
	if prober.AliveCheck(-1) {
		t.Fatalf("invalid pid reported alive")
	}
	// Injected sources treat their listings as live.
	injected := NewProberWithSource("claude", func() (string, error) {
		return psOutput, nil
	})
	if !injected.AliveCheck(-1) {
		t.Fatalf("injected prober should treat listed pids as live")
	}
}
