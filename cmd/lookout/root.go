package main

import (
	"os"

	"github.com/spf13/cobra"

	"lookout/internal/config"
	"lookout/internal/logging"
)

var logLevelFlag string

var rootCmd = &cobra.Command{
	Use:           "lookout",
	Short:         "Monitor and drive coding agent sessions",
	Long:          "lookout watches agent session logs on disk, streams live output, and can take over a session interactively.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.AddCommand(sessionsCmd, projectsCmd, tailCmd, chatCmd, configCmd)
}

// setup loads settings and builds the logger every command shares. Logs go
// to stderr so command output on stdout stays clean.
func setup() (config.Settings, logging.Logger, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return config.Settings{}, nil, err
	}
	level := settings.LogLevel()
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	logger := logging.New(os.Stderr, logging.ParseLevel(level))
	return settings, logger, nil
}
