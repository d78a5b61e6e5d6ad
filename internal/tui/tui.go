// Package tui renders the interactive notification inbox.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/gitify-app/gitify-sub003/config"
	"github.com/gitify-app/gitify-sub003/internal/engine"
)

// Run displays the inbox until the user quits or ctx is cancelled. The engine
// is expected to be polling already; the inbox only reads snapshots and
// issues mutations.
func Run(ctx context.Context, eng *engine.Engine, cfg *config.Config) error {
	p := tea.NewProgram(
		NewModel(eng, cfg),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("inbox closed with error: %w", err)
	}
	return nil
}

// ShouldUseTUI returns true if the inbox UI should be used based on the
// environment.
func ShouldUseTUI() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}

	ciVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"JENKINS_URL",
		"GITLAB_CI",
	}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return false
		}
	}
	return true
}
