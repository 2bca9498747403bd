package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire stale gates and time out stuck executions",
	Long:  "One maintenance pass. Run it from cron, or rely on the board's background sweeps.",
	RunE:  runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	s, o, err := mustSetup()
	if err != nil {
		return err
	}
	defer s.Close()

	gates, execs, err := o.Sweep(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Expired %d gate(s), timed out %d execution(s)\n", gates, execs)
	return nil
}
