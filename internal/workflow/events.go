package workflow

import "foreman/internal/store"

// Event is anything a transport can deliver into Advance: an inbound
// user message, a human gate decision, or a command-completion callback.
type Event interface {
	event()
}

// UserMessage is a free-form message from the user. The orchestrator
// does not interpret it itself; the decision agent does.
type UserMessage struct {
	Text string
}

// GateDecision is a human response to a pending approval gate. Notes
// carry optional commentary; for error-resolution gates they select the
// recovery action ("retry", "skip").
type GateDecision struct {
	GateID  string
	Approve bool
	Notes   string
}

// CommandResult reports a terminal command execution back into the
// workflow. Normally produced by the tracker's completion callback.
type CommandResult struct {
	ExecutionID string
	PhaseID     *string
	Command     store.CommandType
	Status      store.ExecStatus
	Output      string
	Error       string
}

func (UserMessage) event()   {}
func (GateDecision) event()  {}
func (CommandResult) event() {}

// Outcome describes what one event caused, for the transport to render.
type Outcome struct {
	Reply       string       // text to show the user, if any
	Gate        *store.Gate  // gate opened or resolved by this event
	ExecutionID string       // command started by this event
	Phase       *store.Phase // phase the event acted on, if any
	Done        bool         // the final phase completed
}

// Update is pushed to the transport when state changes without a user
// action in flight: command completions and expiry sweeps.
type Update struct {
	ProjectID string
	Text      string
	Phase     *store.Phase
	Gate      *store.Gate
}

// Snapshot is the read-only workflow state used for rendering.
type Snapshot struct {
	Project     *store.Project
	Phases      []store.Phase
	PendingGate *store.Gate
	Executions  []store.Execution // most recent, timestamp ascending
}
