// Package procscan locates live agent CLI processes and ties them back to
// the sessions they own by inspecting their invocation arguments.
package procscan

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// AgentProcess is one live process running the agent binary with a session
// affinity extracted from its command line.
type AgentProcess struct {
	PID       int
	SessionID string
	Args      string
}

// Prober lists agent processes. listOutput and alive are injectable for
// tests and default to shelling out to ps and to a signal-0 probe.
type Prober struct {
	binaryName string
	listOutput func() (string, error)
	alive      func(int) bool
}

func NewProber(binaryName string) *Prober {
	binaryName = strings.TrimSpace(binaryName)
	if binaryName == "" {
		binaryName = "claude"
	}
	return &Prober{
		binaryName: binaryName,
		listOutput: runPS,
		alive:      Alive,
	}
}

// NewProberWithSource builds a prober over a fixed listing source instead of
// ps output. Processes the source lists are treated as live.
func NewProberWithSource(binaryName string, source func() (string, error)) *Prober {
	prober := NewProber(binaryName)
	if source != nil {
		prober.listOutput = source
		prober.alive = func(int) bool { return true }
	}
	return prober
}

// AliveCheck reports whether a pid from an earlier listing is still live.
// The listing and the status derivation are separate steps, so a process can
// die in between; this recheck closes that gap.
func (p *Prober) AliveCheck(pid int) bool {
	return p.alive(pid)
}

func runPS() (string, error) {
	out, err := exec.Command("ps", "-eo", "pid=,args=").Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// List returns every live process whose command line names the agent binary
// and carries a session id argument. A listing failure yields an empty
// result; discovery treats absence of a process as the session being stale.
func (p *Prober) List() []AgentProcess {
	output, err := p.listOutput()
	if err != nil {
		return nil
	}
	var procs []AgentProcess
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil || pid <= 0 {
			continue
		}
		args := strings.TrimSpace(fields[1])
		if !commandMatches(args, p.binaryName) {
			continue
		}
		sessionID := extractSessionID(args)
		if sessionID == "" {
			continue
		}
		procs = append(procs, AgentProcess{PID: pid, SessionID: sessionID, Args: args})
	}
	return procs
}

// BySession returns a session-id → pid map of live agent processes.
func (p *Prober) BySession() map[string]int {
	procs := p.List()
	if len(procs) == 0 {
		return nil
	}
	out := make(map[string]int, len(procs))
	for _, proc := range procs {
		if _, exists := out[proc.SessionID]; !exists {
			out[proc.SessionID] = proc.PID
		}
	}
	return out
}

// Alive reports whether the process still exists, using signal 0.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func commandMatches(args, binaryName string) bool {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return false
	}
	command := fields[0]
	// Node-launched installs show up as "node /path/to/claude ...".
	if strings.HasSuffix(command, "/node") || command == "node" {
		if len(fields) < 2 {
			return false
		}
		command = fields[1]
	}
	base := command
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	return base == binaryName
}

func extractSessionID(args string) string {
	fields := strings.Fields(args)
	for i, field := range fields {
		switch field {
		case "--resume", "-r", "--session-id":
			if i+1 < len(fields) {
				return strings.TrimSpace(fields[i+1])
			}
		}
		for _, prefix := range []string{"--resume=", "--session-id="} {
			if strings.HasPrefix(field, prefix) {
				return strings.TrimSpace(strings.TrimPrefix(field, prefix))
			}
		}
	}
	return ""
}
