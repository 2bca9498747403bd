package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start [project]",
	Short: "Start the build workflow for a project",
	Long:  "Creates the phase sequence and opens the vision-review checkpoint.",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	s, o, err := mustSetup()
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := findProject(s, args[0])
	if err != nil {
		return err
	}

	out, err := o.Begin(context.Background(), p.ID)
	if err != nil {
		return err
	}
	o.Tracker().Wait()

	fmt.Printf("Workflow started for %s%s%s\n", colorBold, p.Name, colorReset)
	if out.Gate != nil {
		fmt.Printf("%s⏸  %s%s\n", colorYellow, out.Gate.Prompt, colorReset)
		fmt.Printf("Approve with: %sforeman approve %s%s\n", colorCyan, out.Gate.ID, colorReset)
	}
	return nil
}
