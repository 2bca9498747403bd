package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historySince string
)

var historyCmd = &cobra.Command{
	Use:   "history [project]",
	Short: "Show command execution history, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max executions to show")
	historyCmd.Flags().StringVar(&historySince, "since", "", "only executions at or after this time (RFC 3339)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, o, err := mustSetup()
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := findProject(s, args[0])
	if err != nil {
		return err
	}

	var since *time.Time
	if historySince != "" {
		t, err := time.Parse(time.RFC3339, historySince)
		if err != nil {
			return fmt.Errorf("invalid --since value %q: %w", historySince, err)
		}
		since = &t
	}

	execs, err := o.History(p.ID, since, historyLimit)
	if err != nil {
		return err
	}
	if len(execs) == 0 {
		fmt.Println("No commands have run yet.")
		return nil
	}

	for _, e := range execs {
		dur := ""
		if e.CompletedAt != nil {
			dur = fmt.Sprintf(" (%s)", e.CompletedAt.Sub(e.StartedAt).Round(time.Second))
		}
		fmt.Printf("  %s  %-14s %s%-10s%s%s\n",
			e.StartedAt.Format("2006-01-02 15:04:05"),
			e.Command,
			execStatusColor(e.Status), e.Status, colorReset, dur)
		if e.Error != "" {
			fmt.Printf("      %s%s%s\n", colorRed, e.Error, colorReset)
		}
	}
	return nil
}
