package agent

import (
	"context"
	"strings"

	"foreman/internal/config"
	"foreman/internal/store"
)

// DecisionKind is what the decision agent wants the orchestrator to do.
type DecisionKind string

const (
	// DecideRun asks the orchestrator to run a workflow command.
	DecideRun DecisionKind = "run"
	// DecideReply is a conversational answer with no workflow action.
	DecideReply DecisionKind = "reply"
	// DecideClarify asks the user a question before proceeding.
	DecideClarify DecisionKind = "clarify"
)

// Decision is the structured outcome of one decision-agent turn.
type Decision struct {
	Kind    DecisionKind
	Command store.CommandType // set when Kind == DecideRun
	Args    string
	Message string // reply text or clarification question
}

// ParseDecision extracts a structured decision from agent text output.
// Expected format:
//
//	ACTION: RUN | REPLY | CLARIFY
//	COMMAND: prime            (RUN only)
//	ARGS: feature name        (optional)
//	MESSAGE:
//	free text for the user
//
// Output that doesn't follow the format degrades to a plain reply, so a
// chatty agent never breaks the turn.
func ParseDecision(output string) *Decision {
	d := &Decision{Kind: DecideReply}

	lines := strings.Split(output, "\n")
	var message []string
	inMessage := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)

		if inMessage {
			message = append(message, line)
			continue
		}

		switch {
		case strings.HasPrefix(upper, "ACTION:"):
			rest := strings.ToUpper(strings.TrimSpace(trimmed[7:]))
			switch {
			case strings.Contains(rest, "RUN"):
				d.Kind = DecideRun
			case strings.Contains(rest, "CLARIFY"):
				d.Kind = DecideClarify
			case strings.Contains(rest, "REPLY"):
				d.Kind = DecideReply
			}
		case strings.HasPrefix(upper, "COMMAND:"):
			d.Command = parseCommand(strings.TrimSpace(trimmed[8:]))
		case strings.HasPrefix(upper, "ARGS:"):
			d.Args = strings.TrimSpace(trimmed[5:])
		case strings.HasPrefix(upper, "MESSAGE:"):
			rest := strings.TrimSpace(trimmed[8:])
			if rest != "" {
				message = append(message, rest)
			}
			inMessage = true
		}
	}

	d.Message = strings.TrimSpace(strings.Join(message, "\n"))

	if d.Kind == DecideRun && d.Command == "" {
		// A run decision without a command is useless; treat it as a reply.
		d.Kind = DecideReply
	}
	if d.Message == "" && d.Kind != DecideRun {
		d.Message = strings.TrimSpace(output)
	}
	return d
}

func parseCommand(s string) store.CommandType {
	switch strings.ToLower(strings.Trim(s, "`\" ")) {
	case "prime":
		return store.CommandPrime
	case "plan-feature", "plan":
		return store.CommandPlan
	case "execute", "implement":
		return store.CommandImplement
	case "validate":
		return store.CommandValidate
	}
	return ""
}

// CLIDecider runs the decision agent as a CLI process and parses its
// structured output.
type CLIDecider struct {
	runner Runner
}

// NewCLIDecider builds a decider backed by the configured agent CLI.
func NewCLIDecider(cfg config.Agent) *CLIDecider {
	return &CLIDecider{runner: NewCLIRunner("decider", cfg)}
}

// Decide sends the framed prompt to the decision agent and parses the
// response. Errors from the spawn are returned as-is; unparseable output
// is returned as a plain reply.
func (d *CLIDecider) Decide(ctx context.Context, prompt string) (*Decision, error) {
	resp, err := d.runner.Run(ctx, Request{Prompt: prompt})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return ParseDecision(resp.Output), nil
}
