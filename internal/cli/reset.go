package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset [project]",
	Short: "Abandon the current workflow position and start a fresh topic",
	Long: "Expires the pending gate, fails the active phase and opens a new\n" +
		"conversation topic. Phase and command history stay on record.",
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	s, o, err := mustSetup()
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := findProject(s, args[0])
	if err != nil {
		return err
	}
	if err := o.Reset(p.ID); err != nil {
		return err
	}
	fmt.Printf("Reset %s%s%s back to brainstorming. History is preserved.\n", colorBold, p.Name, colorReset)
	return nil
}
