package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"foreman/internal/store"
	"foreman/internal/workflow"
)

var approveCmd = &cobra.Command{
	Use:   "approve [gate-or-project] [notes...]",
	Short: "Approve a pending gate",
	Long: "Approves a gate by ID, or the pending gate of the named project.\n" +
		"For a failed phase's gate, notes \"retry\" or \"skip\" pick the recovery.",
	Args: cobra.MinimumNArgs(1),
	RunE: runApprove,
}

var rejectCmd = &cobra.Command{
	Use:   "reject [gate-or-project] [notes...]",
	Short: "Reject a pending gate, halting the workflow at that phase",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReject,
}

func runApprove(cmd *cobra.Command, args []string) error {
	return resolveGate(args, true)
}

func runReject(cmd *cobra.Command, args []string) error {
	return resolveGate(args, false)
}

func resolveGate(args []string, approve bool) error {
	s, o, err := mustSetup()
	if err != nil {
		return err
	}
	defer s.Close()

	g, err := findGate(s, args[0])
	if err != nil {
		return err
	}
	notes := strings.Join(args[1:], " ")

	out, err := o.Advance(context.Background(), g.ProjectID, workflow.GateDecision{
		GateID:  g.ID,
		Approve: approve,
		Notes:   notes,
	})
	if err != nil {
		return err
	}
	// Approval may kick off a chain of phase commands; wait them out so
	// their outcomes print before we exit.
	o.Tracker().Wait()

	verdict := colorGreen + "approved" + colorReset
	if !approve {
		verdict = colorRed + "rejected" + colorReset
	}
	fmt.Printf("Gate %s (%s)\n", verdict, g.Type)
	if out.Reply != "" {
		fmt.Println(out.Reply)
	}
	if out.Done {
		fmt.Printf("%s✓ Workflow complete%s\n", colorGreen+colorBold, colorReset)
	}
	return nil
}

// findGate resolves an argument as a gate ID first, then as a project
// whose pending gate is meant.
func findGate(s *store.Store, ref string) (*store.Gate, error) {
	if g, err := s.GetGate(ref); err == nil {
		return g, nil
	}
	p, err := findProject(s, ref)
	if err != nil {
		return nil, fmt.Errorf("no gate or project %q", ref)
	}
	g, err := s.PendingGate(p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("project %q has no pending gate", p.Name)
	}
	return g, err
}
