package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunegraph/internal/shared"
	"github.com/desertthunder/tunegraph/internal/tasks"
	"github.com/desertthunder/tunegraph/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive job picker.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.requireSpotify(); err != nil {
		return err
	}
	return r.runTUI(ctx, cmd, nil)
}

// runTUI runs the sync UI. With jobs set the picker is skipped and the run starts immediately.
func (r *Runner) runTUI(ctx context.Context, cmd *cli.Command, jobs []tasks.Job) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.logger = fileLogger

	store, release, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	engine := tasks.NewSyncEngine(r.spotify, store, fileLogger, r.syncOptions(cmd))
	model := ui.NewModel(ctx, engine, store)
	if len(jobs) > 0 {
		model = model.Start(jobs)
	}

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return model.Err()
}
