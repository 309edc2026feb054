package main

import (
	"os"

	"github.com/spf13/cobra"
)

var sessionsStatusFlag string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List discovered agent sessions",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsStatusFlag, "status", "", "only show sessions with this status (active, waiting, idle, stale)")
}

func runSessions(cmd *cobra.Command, args []string) error {
	settings, logger, err := setup()
	if err != nil {
		return err
	}
	result, err := discoverOnce(settings, logger)
	if err != nil {
		return err
	}

	sessions := result.Sessions
	if sessionsStatusFlag != "" {
		filtered := sessions[:0]
		for _, session := range sessions {
			if string(session.Status) == sessionsStatusFlag {
				filtered = append(filtered, session)
			}
		}
		sessions = filtered
	}

	printSessions(os.Stdout, sessions)
	return nil
}
