package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lookout/internal/app"
	"lookout/internal/logging"
)

var tailCmd = &cobra.Command{
	Use:   "tail <session-id>",
	Short: "Stream a session's log as it grows",
	Args:  cobra.ExactArgs(1),
	RunE:  runTail,
}

func runTail(cmd *cobra.Command, args []string) error {
	settings, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(settings, logger)
	if err != nil {
		return err
	}
	go func() {
		if runErr := a.Run(ctx); runErr != nil {
			logger.Error("engine stopped", logging.F("error", runErr))
			cancel()
		}
	}()

	if err := waitForSession(ctx, a, args[0]); err != nil {
		return err
	}
	history, updates, err := a.SelectSession(args[0])
	if err != nil {
		return err
	}
	defer a.DeselectSession()

	for _, msg := range history {
		renderMessage(os.Stdout, msg)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-updates:
			renderMessage(os.Stdout, msg)
		}
	}
}

// waitForSession blocks until discovery has published the session or the
// first few scans come up empty.
func waitForSession(ctx context.Context, a *app.App, id string) error {
	updates, cancel := a.Subscribe()
	defer cancel()

	deadline := time.After(10 * time.Second)
	for {
		for _, session := range a.Snapshot().Sessions {
			if session.ID == id {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("session %s: %w", id, app.ErrSessionNotFound)
		case <-updates:
		}
	}
}
