package cli

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"foreman/internal/tui"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Open the interactive dashboard",
	Long:  "Shows every project's phase progress, lets you approve or reject gates, and keeps maintenance sweeps running while open.",
	RunE:  runBoard,
}

func runBoard(cmd *cobra.Command, args []string) error {
	s, o, err := mustSetup()
	if err != nil {
		return err
	}
	defer s.Close()

	// Sweeps run while the board is open, so stale gates and stuck
	// executions resolve without a separate cron.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.RunMaintenance(ctx, time.Minute)

	model := tui.New(s, o)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	o.Tracker().Wait()
	return nil
}
