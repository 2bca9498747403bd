// Package agent is the boundary to external AI agents: the coding-agent
// CLI that executes workflow commands, and the decision-making agent that
// interprets free-form user messages.
package agent

import (
	"context"
)

// Request contains everything the coding agent needs for one invocation.
type Request struct {
	Prompt  string // full prompt, passed as the last CLI argument
	WorkDir string // working directory for the spawned process
}

// Response is what we get back from an agent invocation.
type Response struct {
	Output   string  // captured stdout
	ExitCode int     // 0 = success
	Duration float64 // execution time in seconds
	Error    error   // spawn or timeout error
}

// Runner executes the external coding-agent tool. Implementations must
// honor ctx cancellation: the tracker enforces per-command timeouts by
// cancelling the context.
type Runner interface {
	Run(ctx context.Context, req Request) (*Response, error)
	Name() string
}

// Decider interprets a user message against its conversation context and
// returns a structured decision. The reasoning itself happens in an
// external agent; this interface only frames the exchange.
type Decider interface {
	Decide(ctx context.Context, prompt string) (*Decision, error)
}
