package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"foreman/internal/store"
)

var gatesCmd = &cobra.Command{
	Use:   "gates [project]",
	Short: "Show a project's approval gates",
	Args:  cobra.ExactArgs(1),
	RunE:  runGates,
}

func runGates(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := findProject(s, args[0])
	if err != nil {
		return err
	}

	gates, err := s.ListGates(p.ID)
	if err != nil {
		return err
	}
	if len(gates) == 0 {
		fmt.Println("No gates yet.")
		return nil
	}

	for _, g := range gates {
		fmt.Printf("  %s%-10s%s %-18s %s%s%s\n",
			gateStatusColor(g.Status), g.Status, colorReset,
			g.Type,
			colorDim, g.ID, colorReset)
		fmt.Printf("    %s\n", g.Prompt)
		if g.Response != "" {
			fmt.Printf("    %sresponse: %s%s\n", colorDim, g.Response, colorReset)
		}
	}
	return nil
}

func gateStatusColor(status store.GateStatus) string {
	switch status {
	case store.GatePending:
		return colorYellow
	case store.GateApproved:
		return colorGreen
	case store.GateRejected:
		return colorRed
	case store.GateExpired:
		return colorMagenta
	}
	return colorDim
}
