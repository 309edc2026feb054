package main

import (
	"os"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List workspaces that have sessions",
	RunE:  runProjects,
}

func runProjects(cmd *cobra.Command, args []string) error {
	settings, logger, err := setup()
	if err != nil {
		return err
	}
	result, err := discoverOnce(settings, logger)
	if err != nil {
		return err
	}
	printProjects(os.Stdout, result.Projects)
	return nil
}
