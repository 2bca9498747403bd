package store

import "time"

// ProjectStatus represents where a project is in its lifecycle.
type ProjectStatus string

const (
	ProjectBrainstorming ProjectStatus = "brainstorming"
	ProjectVisionReview  ProjectStatus = "vision_review"
	ProjectPlanning      ProjectStatus = "planning"
	ProjectInProgress    ProjectStatus = "in_progress"
	ProjectPaused        ProjectStatus = "paused"
	ProjectCompleted     ProjectStatus = "completed"
)

// PhaseStatus represents the state of a single workflow phase.
// Within a project at most one phase is active at a time, and phases
// complete strictly in ordinal order.
type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseActive    PhaseStatus = "active"
	PhaseCompleted PhaseStatus = "completed"
	PhaseFailed    PhaseStatus = "failed"
)

// GateType categorizes what an approval gate is asking the user to sign off.
type GateType string

const (
	GateVisionDoc       GateType = "vision_doc"
	GatePhaseStart      GateType = "phase_start"
	GatePhaseComplete   GateType = "phase_complete"
	GateErrorResolution GateType = "error_resolution"
)

// GateStatus represents the state of an approval gate. Everything except
// pending is terminal; resolved gates are immutable.
type GateStatus string

const (
	GatePending  GateStatus = "pending"
	GateApproved GateStatus = "approved"
	GateRejected GateStatus = "rejected"
	GateExpired  GateStatus = "expired"
)

// CommandType identifies which coding-agent command an execution ran.
type CommandType string

const (
	CommandPrime     CommandType = "prime"
	CommandPlan      CommandType = "plan-feature"
	CommandImplement CommandType = "execute"
	CommandValidate  CommandType = "validate"
)

// ExecStatus represents the state of a command execution.
// completed, failed and timed_out are terminal; terminal records are
// append-only history.
type ExecStatus string

const (
	ExecQueued    ExecStatus = "queued"
	ExecRunning   ExecStatus = "running"
	ExecCompleted ExecStatus = "completed"
	ExecFailed    ExecStatus = "failed"
	ExecTimedOut  ExecStatus = "timed_out"
)

// Role identifies who authored a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Project is one software initiative. It owns every other entity below;
// deleting a project cascades.
type Project struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	RepoURL   string        `json:"repo_url,omitempty"`
	Status    ProjectStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Phase is one step of the fixed workflow sequence for a project.
type Phase struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"project_id"`
	Number      int         `json:"number"`
	Name        string      `json:"name"`
	Command     CommandType `json:"command,omitempty"` // empty for gate-only phases
	Status      PhaseStatus `json:"status"`
	GateID      *string     `json:"gate_id,omitempty"` // gate guarding this phase, if any
	ErrorMsg    string      `json:"error,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Gate is a blocking checkpoint awaiting a human decision.
type Gate struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"project_id"`
	PhaseID    *string    `json:"phase_id,omitempty"`
	Type       GateType   `json:"gate_type"`
	Prompt     string     `json:"prompt"`
	Payload    string     `json:"payload,omitempty"` // extra context shown to the user
	Status     GateStatus `json:"status"`
	Response   string     `json:"response,omitempty"` // user notes on resolution
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Execution is one tracked invocation of the external coding-agent tool.
//
// Executions are ordered by StartedAt, never by ID: IDs are UUIDs and do
// not sort chronologically.
type Execution struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"project_id"`
	PhaseID     *string     `json:"phase_id,omitempty"`
	Command     CommandType `json:"command"`
	Args        string      `json:"args,omitempty"`
	Status      ExecStatus  `json:"status"`
	Output      string      `json:"output,omitempty"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Terminal reports whether the execution has finished (successfully or not).
func (e *Execution) Terminal() bool {
	switch e.Status {
	case ExecCompleted, ExecFailed, ExecTimedOut:
		return true
	}
	return false
}

// Message is one turn in a project's conversation.
type Message struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	TopicID   *string   `json:"topic_id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Topic groups contiguous messages believed to share a subject.
// At most one topic per project is active.
type Topic struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id"`
	Title     string     `json:"title"`
	Summary   string     `json:"summary,omitempty"`
	Active    bool       `json:"active"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}
