package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"lookout/internal/config"
	"lookout/internal/discovery"
	"lookout/internal/logging"
	"lookout/internal/procscan"
	"lookout/internal/store"
	"lookout/internal/types"
)

// discoverOnce runs a single cold scan without the coordination loop. The
// summary cache is used when available so repeat invocations stay fast.
func discoverOnce(settings config.Settings, logger logging.Logger) (discovery.Result, error) {
	roots, err := settings.SessionRoots()
	if err != nil {
		return discovery.Result{}, err
	}

	var cache *store.SummaryCache
	if storePath, pathErr := config.StorePath(); pathErr == nil {
		if opened, openErr := store.Open(storePath); openErr == nil {
			cache = opened
			defer cache.Close()
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
	return engine.Discover(), nil
}

func printSessions(output io.Writer, sessions []*types.SessionSummary) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tSTATUS\tPROJECT\tPID\tLAST ACTIVITY\tSUMMARY")
	for _, session := range sessions {
		pid := "-"
		if session.PID > 0 {
			pid = fmt.Sprintf("%d", session.PID)
		}
		activity := "-"
		if !session.LastActivity.IsZero() {
			activity = formatAge(time.Since(session.LastActivity))
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			session.ID, session.Status, session.ProjectName, pid, activity, truncate(session.Summary, 60))
	}
	_ = writer.Flush()
}

func printProjects(output io.Writer, projects []*types.Project) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "PROJECT\tPATH\tSESSIONS\tACTIVE")
	for _, project := range projects {
		fmt.Fprintf(writer, "%s\t%s\t%d\t%d\n",
			project.Name, project.Path, project.SessionCount, project.ActiveCount)
	}
	_ = writer.Flush()
}

func formatAge(age time.Duration) string {
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

func truncate(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	// Back up to a rune start so multi-byte characters are never split.
	cut := max - 1
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}

func renderMessage(output io.Writer, msg *types.ParsedMessage) {
	if msg == nil {
		return
	}
	for _, block := range msg.Content {
		switch block.Kind {
		case types.BlockText:
			if strings.TrimSpace(block.Text) == "" {
				continue
			}
			fmt.Fprintf(output, "[%s] %s\n", msg.Type, strings.TrimSpace(block.Text))
		case types.BlockToolUse:
			fmt.Fprintf(output, "[tool] %s %s\n", block.ToolName, truncate(block.ToolInput, 120))
		case types.BlockToolResult:
			if block.IsError {
				fmt.Fprintf(output, "[tool error] %s\n", truncate(block.Text, 120))
			}
		}
	}
}
