// Package workflow is the composition root: a per-project state machine
// walking the fixed phase sequence, running coding-agent commands through
// the execution tracker and pausing at approval gates.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"foreman/internal/agent"
	"foreman/internal/config"
	"foreman/internal/conversation"
	"foreman/internal/executor"
	"foreman/internal/gate"
	"foreman/internal/store"
)

// ErrAlreadyStarted is returned by Begin when a project's workflow
// already has phases.
var ErrAlreadyStarted = errors.New("workflow already started")

// ErrOutOfOrder is returned when a phase would enter before every
// earlier phase has completed.
var ErrOutOfOrder = errors.New("phase entered out of order")

// Orchestrator drives project workflows. All state transitions for one
// project happen under that project's lock, so concurrent transports can
// deliver events safely.
type Orchestrator struct {
	store    *store.Store
	tracker  *executor.Tracker
	gates    *gate.Manager
	conv     *conversation.Manager
	decider  agent.Decider
	cfg      *config.Config
	log      *zap.Logger
	listener func(Update)

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wires the orchestrator and its tracker. runner executes workflow
// commands; decider interprets free-form messages. listener receives
// asynchronous updates and may be nil.
func New(s *store.Store, runner agent.Runner, decider agent.Decider, cfg *config.Config, workDir string, log *zap.Logger, listener func(Update)) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if listener == nil {
		listener = func(Update) {}
	}
	o := &Orchestrator{
		store:    s,
		gates:    gate.New(s, log),
		conv:     conversation.New(s, cfg.Context),
		decider:  decider,
		cfg:      cfg,
		log:      log,
		listener: listener,
		locks:    make(map[string]*sync.Mutex),
	}
	o.tracker = executor.New(s, runner, cfg.Executor, workDir, log, o.onExecution)
	return o
}

// Tracker exposes the execution tracker, mainly so callers can Wait for
// in-flight commands before a one-shot process exits.
func (o *Orchestrator) Tracker() *executor.Tracker {
	return o.tracker
}

func (o *Orchestrator) projectLock(projectID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[projectID] = l
	}
	return l
}

// Begin creates the phase sequence for a project and enters the first
// phase. Fails with ErrAlreadyStarted if phases already exist.
func (o *Orchestrator) Begin(ctx context.Context, projectID string) (*Outcome, error) {
	l := o.projectLock(projectID)
	l.Lock()
	defer l.Unlock()

	if _, err := o.store.GetProject(projectID); err != nil {
		return nil, err
	}
	if _, err := o.store.CurrentPhase(projectID); err == nil {
		return nil, ErrAlreadyStarted
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	for _, spec := range phaseTable {
		if _, err := o.store.CreatePhase(projectID, spec.Number, spec.Name, spec.Command); err != nil {
			return nil, err
		}
	}
	o.log.Info("workflow started", zap.String("project_id", projectID))
	return o.enterPhase(ctx, projectID, phaseTable[0].Number)
}

// Advance is the single entry point transports use to deliver events.
func (o *Orchestrator) Advance(ctx context.Context, projectID string, ev Event) (*Outcome, error) {
	l := o.projectLock(projectID)
	l.Lock()
	defer l.Unlock()

	if _, err := o.store.GetProject(projectID); err != nil {
		return nil, err
	}

	switch e := ev.(type) {
	case UserMessage:
		return o.handleMessage(ctx, projectID, e)
	case GateDecision:
		return o.handleGateDecision(ctx, projectID, e)
	case CommandResult:
		return o.handleCommandResult(ctx, projectID, e)
	}
	return nil, fmt.Errorf("unknown event type %T", ev)
}

// State returns a read-only snapshot for rendering.
func (o *Orchestrator) State(projectID string) (*Snapshot, error) {
	project, err := o.store.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	phases, err := o.store.ListPhases(projectID)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Project: project, Phases: phases}

	if g, err := o.gates.Pending(projectID); err == nil {
		snap.PendingGate = g
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	execs, err := o.tracker.History(projectID, nil, 10)
	if err != nil {
		return nil, err
	}
	snap.Executions = execs
	return snap, nil
}

// History returns a project's command executions ordered by start time.
func (o *Orchestrator) History(projectID string, since *time.Time, limit int) ([]store.Execution, error) {
	return o.tracker.History(projectID, since, limit)
}

// Reset abandons the current workflow position: the pending gate (if
// any) is expired, the active phase is failed, a fresh topic resets the
// conversation context, and the project returns to brainstorming. Phase
// and execution history stay on record.
func (o *Orchestrator) Reset(projectID string) error {
	l := o.projectLock(projectID)
	l.Lock()
	defer l.Unlock()

	if _, err := o.store.GetProject(projectID); err != nil {
		return err
	}

	if g, err := o.gates.Pending(projectID); err == nil {
		if _, err := o.store.ResolveGate(g.ID, store.GateExpired, "workflow reset"); err != nil {
			return err
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if p, err := o.store.ActivePhase(projectID); err == nil {
		if err := o.store.FailPhase(p.ID, "workflow reset"); err != nil {
			return err
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if o.cfg.Context.TopicsOn() {
		if _, err := o.store.CreateTopic(projectID, "fresh start", ""); err != nil {
			return err
		}
	}

	o.log.Info("workflow reset", zap.String("project_id", projectID))
	return o.store.UpdateProjectStatus(projectID, store.ProjectBrainstorming)
}

// onExecution pumps tracker completion events back through Advance.
func (o *Orchestrator) onExecution(e executor.Event) {
	out, err := o.Advance(context.Background(), e.ProjectID, CommandResult{
		ExecutionID: e.ExecutionID,
		PhaseID:     e.PhaseID,
		Command:     e.Command,
		Status:      e.Status,
		Output:      e.Output,
		Error:       e.Error,
	})
	if err != nil {
		o.log.Error("apply command result",
			zap.String("project_id", e.ProjectID),
			zap.String("execution_id", e.ExecutionID),
			zap.Error(err))
		return
	}
	o.listener(Update{ProjectID: e.ProjectID, Text: out.Reply, Phase: out.Phase, Gate: out.Gate})
}

func (o *Orchestrator) handleMessage(ctx context.Context, projectID string, e UserMessage) (*Outcome, error) {
	bundle, err := o.conv.BuildContext(projectID, e.Text)
	if err != nil {
		return nil, err
	}
	if _, err := o.store.AddMessage(projectID, bundle.TopicID, store.RoleUser, e.Text); err != nil {
		return nil, err
	}

	// A pending gate blocks all progress. Remind instead of reasoning.
	if g, err := o.gates.Pending(projectID); err == nil {
		reply := "Waiting on your approval first: " + g.Prompt
		o.recordReply(projectID, bundle.TopicID, reply)
		return &Outcome{Reply: reply, Gate: g}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	d, err := o.decider.Decide(ctx, o.deciderPrompt(projectID, bundle))
	if err != nil {
		o.log.Error("decider", zap.String("project_id", projectID), zap.Error(err))
		reply := "I couldn't reach the assistant just now. Please try again."
		o.recordReply(projectID, bundle.TopicID, reply)
		return &Outcome{Reply: reply}, nil
	}

	switch d.Kind {
	case agent.DecideRun:
		// Attribute the run to the active phase when the commands match;
		// anything else is an ad-hoc invocation.
		var phaseID *string
		var phase *store.Phase
		if p, err := o.store.ActivePhase(projectID); err == nil && p.Command == d.Command {
			phaseID = &p.ID
			phase = p
		} else if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		execID, err := o.tracker.Start(projectID, phaseID, d.Command, d.Args)
		if err != nil {
			return nil, err
		}
		reply := d.Message
		if reply == "" {
			reply = fmt.Sprintf("Running %s now. I'll report back when it finishes.", d.Command)
		}
		o.recordReply(projectID, bundle.TopicID, reply)
		return &Outcome{Reply: reply, ExecutionID: execID, Phase: phase}, nil
	default:
		o.recordReply(projectID, bundle.TopicID, d.Message)
		return &Outcome{Reply: d.Message}, nil
	}
}

func (o *Orchestrator) recordReply(projectID string, topicID *string, reply string) {
	if reply == "" {
		return
	}
	if _, err := o.store.AddMessage(projectID, topicID, store.RoleAssistant, reply); err != nil {
		o.log.Error("record reply", zap.String("project_id", projectID), zap.Error(err))
	}
}

func (o *Orchestrator) handleGateDecision(ctx context.Context, projectID string, e GateDecision) (*Outcome, error) {
	// Ownership check comes before Resolve. The caller holds projectID's
	// lock only, so touching another project's gate here would mutate it
	// outside its own lock.
	g, err := o.store.GetGate(e.GateID)
	if err != nil {
		return nil, err
	}
	if g.ProjectID != projectID {
		return nil, fmt.Errorf("gate %s belongs to another project", e.GateID)
	}
	g, err = o.gates.Resolve(e.GateID, e.Approve, e.Notes)
	if err != nil {
		return nil, err
	}
	return o.applyGateOutcome(ctx, g)
}

// applyGateOutcome drives the workflow after a gate reaches a terminal
// status. Shared by gate decisions and the expiry sweep; the caller must
// hold the project lock.
func (o *Orchestrator) applyGateOutcome(ctx context.Context, g *store.Gate) (*Outcome, error) {
	if g.PhaseID == nil {
		return &Outcome{Gate: g}, nil
	}
	phase, err := o.store.GetPhase(*g.PhaseID)
	if err != nil {
		return nil, err
	}

	if g.Status != store.GateApproved {
		// Rejection and expiry both halt the workflow here. No automatic
		// retry of a refused checkpoint.
		if err := o.store.FailPhase(phase.ID, "approval "+string(g.Status)); err != nil {
			return nil, err
		}
		if err := o.store.UpdateProjectStatus(g.ProjectID, store.ProjectPaused); err != nil {
			return nil, err
		}
		phase, _ = o.store.GetPhase(phase.ID)
		return &Outcome{
			Gate:  g,
			Phase: phase,
			Reply: fmt.Sprintf("Workflow halted at %q. Send a message or reset when you want to pick it back up.", phase.Name),
		}, nil
	}

	spec, ok := specFor(phase.Number)
	if !ok {
		return nil, fmt.Errorf("phase %d has no definition", phase.Number)
	}

	switch g.Type {
	case store.GateVisionDoc, store.GatePhaseStart:
		out, err := o.activatePhase(ctx, g.ProjectID, phase, spec)
		if err != nil {
			return nil, err
		}
		out.Gate = g
		return out, nil
	case store.GatePhaseComplete:
		out, err := o.finishPhase(ctx, g.ProjectID, phase)
		if err != nil {
			return nil, err
		}
		out.Gate = g
		return out, nil
	case store.GateErrorResolution:
		if strings.Contains(strings.ToLower(g.Response), "skip") {
			out, err := o.finishPhase(ctx, g.ProjectID, phase)
			if err != nil {
				return nil, err
			}
			out.Gate = g
			return out, nil
		}
		// Default recovery is a retry of the failed phase.
		out, err := o.activatePhase(ctx, g.ProjectID, phase, spec)
		if err != nil {
			return nil, err
		}
		out.Gate = g
		return out, nil
	}
	return &Outcome{Gate: g}, nil
}

func (o *Orchestrator) handleCommandResult(ctx context.Context, projectID string, e CommandResult) (*Outcome, error) {
	if e.PhaseID == nil {
		// Ad-hoc run, nothing to drive. Surface the outcome only.
		if e.Status == store.ExecCompleted {
			return &Outcome{Reply: fmt.Sprintf("%s finished.", e.Command)}, nil
		}
		return &Outcome{Reply: fmt.Sprintf("%s did not finish cleanly.", e.Command)}, nil
	}

	phase, err := o.store.GetPhase(*e.PhaseID)
	if err != nil {
		return nil, err
	}
	if phase.Status != store.PhaseActive {
		// Late or duplicate callback after a reset. The record stands in
		// history; the workflow has moved on.
		o.log.Warn("command result for inactive phase",
			zap.String("phase_id", phase.ID),
			zap.String("execution_id", e.ExecutionID))
		return &Outcome{Phase: phase}, nil
	}
	if g, err := o.gates.Pending(projectID); err == nil {
		// The workflow is parked on a gate; only the gate decision moves
		// it. The record stands in history.
		o.log.Warn("command result while gate pending",
			zap.String("phase_id", phase.ID),
			zap.String("gate_id", g.ID))
		return &Outcome{Phase: phase, Gate: g}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	spec, ok := specFor(phase.Number)
	if !ok {
		return nil, fmt.Errorf("phase %d has no definition", phase.Number)
	}

	if e.Status == store.ExecCompleted {
		if spec.ExitGate != "" {
			g, err := o.openGate(projectID, phase, spec.ExitGate, e.Output)
			if err != nil {
				return nil, err
			}
			return &Outcome{Gate: g, Phase: phase, Reply: g.Prompt}, nil
		}
		return o.finishPhase(ctx, projectID, phase)
	}

	// Failure and timeout both land here. The phase fails and an
	// error-resolution gate asks the user how to proceed.
	if err := o.store.FailPhase(phase.ID, e.Error); err != nil {
		return nil, err
	}
	g, err := o.openGate(projectID, phase, store.GateErrorResolution, e.Error)
	if err != nil {
		return nil, err
	}
	phase, _ = o.store.GetPhase(phase.ID)
	return &Outcome{
		Gate:  g,
		Phase: phase,
		Reply: fmt.Sprintf("Something went wrong during %q. %s", phase.Name, g.Prompt),
	}, nil
}

// enterPhase evaluates a phase's entry condition: open its entry gate,
// or activate it right away.
func (o *Orchestrator) enterPhase(ctx context.Context, projectID string, number int) (*Outcome, error) {
	spec, ok := specFor(number)
	if !ok {
		return nil, fmt.Errorf("phase %d has no definition", number)
	}
	phases, err := o.store.ListPhases(projectID)
	if err != nil {
		return nil, err
	}
	var target *store.Phase
	for i := range phases {
		p := &phases[i]
		if p.Number < number && p.Status != store.PhaseCompleted {
			return nil, fmt.Errorf("%w: phase %d is %s", ErrOutOfOrder, p.Number, p.Status)
		}
		if p.Number == number {
			target = p
		}
	}
	if target == nil {
		return nil, fmt.Errorf("phase %d not found: %w", number, store.ErrNotFound)
	}

	if spec.EntryGate != "" {
		g, err := o.openGate(projectID, target, spec.EntryGate, "")
		if err != nil {
			return nil, err
		}
		status := store.ProjectPlanning
		if spec.EntryGate == store.GateVisionDoc {
			status = store.ProjectVisionReview
		}
		if err := o.store.UpdateProjectStatus(projectID, status); err != nil {
			return nil, err
		}
		return &Outcome{Gate: g, Phase: target, Reply: g.Prompt}, nil
	}
	return o.activatePhase(ctx, projectID, target, spec)
}

func (o *Orchestrator) openGate(projectID string, phase *store.Phase, gateType store.GateType, payload string) (*store.Gate, error) {
	g, err := o.gates.Open(projectID, &phase.ID, gateType, gatePrompt(gateType, phase.Name), payload)
	if err != nil {
		return nil, err
	}
	if err := o.store.SetPhaseGate(phase.ID, g.ID); err != nil {
		return nil, err
	}
	return g, nil
}

// activatePhase marks a phase active and starts its command, if it has
// one. Command-less phases with no exit gate complete immediately.
func (o *Orchestrator) activatePhase(ctx context.Context, projectID string, phase *store.Phase, spec phaseSpec) (*Outcome, error) {
	if err := o.store.StartPhase(phase.ID); err != nil {
		return nil, err
	}
	if err := o.store.UpdateProjectStatus(projectID, store.ProjectInProgress); err != nil {
		return nil, err
	}
	o.log.Info("phase started",
		zap.String("project_id", projectID),
		zap.Int("phase", phase.Number),
		zap.String("name", phase.Name))

	if spec.Command != "" {
		execID, err := o.tracker.Start(projectID, &phase.ID, spec.Command, "")
		if err != nil {
			return nil, err
		}
		phase, _ = o.store.GetPhase(phase.ID)
		return &Outcome{
			ExecutionID: execID,
			Phase:       phase,
			Reply:       fmt.Sprintf("Started %q.", phase.Name),
		}, nil
	}

	phase, _ = o.store.GetPhase(phase.ID)
	return o.finishPhase(ctx, projectID, phase)
}

// finishPhase completes a phase and either enters the next one or, for
// the final phase, closes out the whole workflow.
func (o *Orchestrator) finishPhase(ctx context.Context, projectID string, phase *store.Phase) (*Outcome, error) {
	if err := o.store.CompletePhase(phase.ID); err != nil {
		return nil, err
	}
	o.log.Info("phase completed",
		zap.String("project_id", projectID),
		zap.Int("phase", phase.Number))

	if phase.Number == lastPhaseNumber() {
		if err := o.store.UpdateProjectStatus(projectID, store.ProjectCompleted); err != nil {
			return nil, err
		}
		phase, _ = o.store.GetPhase(phase.ID)
		return &Outcome{Phase: phase, Done: true, Reply: "All phases complete. The workflow is finished."}, nil
	}
	return o.enterPhase(ctx, projectID, phase.Number+1)
}

// deciderPrompt frames the conversation bundle with the workflow state
// and the response format the decision agent must use.
func (o *Orchestrator) deciderPrompt(projectID string, b *conversation.Bundle) string {
	var sb strings.Builder
	sb.WriteString("You are the workflow assistant for a software project. ")
	sb.WriteString("Decide whether the user's message should run a workflow command, get a conversational reply, or needs clarification.\n\n")
	sb.WriteString("Respond with exactly these fields:\n")
	sb.WriteString("ACTION: run | reply | clarify\n")
	sb.WriteString("COMMAND: prime | plan-feature | execute | validate (only when ACTION is run)\n")
	sb.WriteString("ARGS: optional command arguments\n")
	sb.WriteString("MESSAGE: what to tell the user\n\n")

	if p, err := o.store.GetProject(projectID); err == nil {
		fmt.Fprintf(&sb, "Project: %s (status: %s)\n", p.Name, p.Status)
	}
	if phase, err := o.store.ActivePhase(projectID); err == nil {
		fmt.Fprintf(&sb, "Active phase: %d %s\n", phase.Number, phase.Name)
	}
	sb.WriteString("\n")
	sb.WriteString(b.Render())
	return sb.String()
}
