package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"foreman/internal/workflow"
)

var chatCmd = &cobra.Command{
	Use:   "chat [project] [message...]",
	Short: "Send a message to a project's workflow assistant",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	s, o, err := mustSetup()
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := findProject(s, args[0])
	if err != nil {
		return err
	}
	message := strings.Join(args[1:], " ")

	out, err := o.Advance(context.Background(), p.ID, workflow.UserMessage{Text: message})
	if err != nil {
		return err
	}

	if out.Reply != "" {
		fmt.Println(out.Reply)
	}
	if out.ExecutionID != "" {
		// Block until the command the decider kicked off reports back;
		// its outcome prints through the update listener.
		o.Tracker().Wait()
	}
	if out.Gate != nil {
		fmt.Printf("%sApprove with:%s foreman approve %s\n", colorDim, colorReset, out.Gate.ID)
	}
	return nil
}
