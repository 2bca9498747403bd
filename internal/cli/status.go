package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"foreman/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status [project]",
	Short: "Show workflow status",
	Long:  "With a project: its phases, pending gate and recent commands. Without: all projects.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, o, err := mustSetup()
	if err != nil {
		return err
	}
	defer s.Close()

	if len(args) == 0 {
		return runProjectList(cmd, args)
	}

	p, err := findProject(s, args[0])
	if err != nil {
		return err
	}
	snap, err := o.State(p.ID)
	if err != nil {
		return err
	}

	fmt.Printf("%s%s%s  %s%s%s\n", colorBold, snap.Project.Name, colorReset,
		statusColor(snap.Project.Status), snap.Project.Status, colorReset)

	if len(snap.Phases) == 0 {
		fmt.Printf("\nWorkflow not started. Run: %sforeman start %s%s\n", colorCyan, p.Name, colorReset)
		return nil
	}

	fmt.Println()
	for _, ph := range snap.Phases {
		mark := " "
		switch ph.Status {
		case store.PhaseCompleted:
			mark = "✓"
		case store.PhaseActive:
			mark = "▶"
		case store.PhaseFailed:
			mark = "✗"
		}
		fmt.Printf("  %s%s %d. %-26s %s%s\n", phaseColor(ph.Status), mark, ph.Number, ph.Name, ph.Status, colorReset)
		if ph.ErrorMsg != "" {
			fmt.Printf("       %s%s%s\n", colorRed, ph.ErrorMsg, colorReset)
		}
	}

	if snap.PendingGate != nil {
		g := snap.PendingGate
		fmt.Printf("\n%s⏸  Awaiting approval%s (%s)\n", colorYellow+colorBold, colorReset, g.Type)
		fmt.Printf("   %s\n", g.Prompt)
		fmt.Printf("   %sforeman approve %s%s\n", colorCyan, g.ID, colorReset)
	}

	if len(snap.Executions) > 0 {
		fmt.Printf("\nRecent commands:\n")
		for _, e := range snap.Executions {
			fmt.Printf("  %s  %-14s %s%s%s\n",
				e.StartedAt.Format("2006-01-02 15:04:05"),
				e.Command,
				execStatusColor(e.Status), e.Status, colorReset)
		}
	}
	return nil
}

func execStatusColor(status store.ExecStatus) string {
	switch status {
	case store.ExecCompleted:
		return colorGreen
	case store.ExecFailed, store.ExecTimedOut:
		return colorRed
	case store.ExecRunning:
		return colorBlue
	}
	return colorDim
}
