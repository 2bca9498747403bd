// Package executor tracks invocations of the external coding-agent tool:
// it records each command's lifecycle in the store, runs the tool
// asynchronously with a timeout, and reports completion events.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"foreman/internal/agent"
	"foreman/internal/config"
	"foreman/internal/store"
)

// ErrAlreadyFinished is returned when completing an execution that is
// already terminal. Finished executions are append-only history.
var ErrAlreadyFinished = errors.New("execution already finished")

// Event reports a terminal execution to whoever is orchestrating.
type Event struct {
	ExecutionID string
	ProjectID   string
	PhaseID     *string
	Command     store.CommandType
	Status      store.ExecStatus
	Output      string
	Error       string
}

// Tracker records and runs command executions. Start returns as soon as
// the invocation is registered; the outcome arrives later through the
// notify callback.
type Tracker struct {
	store   *store.Store
	runner  agent.Runner
	cfg     config.Executor
	log     *zap.Logger
	workDir string
	notify  func(Event)

	wg sync.WaitGroup
}

// New creates a tracker. notify may be nil when nobody needs events
// (one-shot CLI queries).
func New(s *store.Store, runner agent.Runner, cfg config.Executor, workDir string, log *zap.Logger, notify func(Event)) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	if notify == nil {
		notify = func(Event) {}
	}
	return &Tracker{
		store:   s,
		runner:  runner,
		cfg:     cfg,
		log:     log,
		workDir: workDir,
		notify:  notify,
	}
}

// Start registers a command execution and launches the external tool in
// the background. The caller gets the execution ID immediately and is
// notified of the outcome through the tracker's event callback.
func (t *Tracker) Start(projectID string, phaseID *string, command store.CommandType, args string) (string, error) {
	exec, err := t.store.CreateExecution(projectID, phaseID, command, args, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if err := t.store.MarkExecutionRunning(exec.ID); err != nil {
		return "", err
	}

	t.log.Info("execution started",
		zap.String("execution_id", exec.ID),
		zap.String("project_id", projectID),
		zap.String("command", string(command)))

	t.wg.Add(1)
	go t.run(exec)
	return exec.ID, nil
}

func (t *Tracker) run(exec *store.Execution) {
	defer t.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.Timeout())
	defer cancel()

	resp, err := t.runner.Run(ctx, agent.Request{
		Prompt:  invocation(exec.Command, exec.Args),
		WorkDir: t.workDir,
	})

	status := store.ExecCompleted
	output := ""
	errText := ""

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		status = store.ExecTimedOut
		errText = fmt.Sprintf("no completion within %s", t.cfg.Timeout())
	case err != nil:
		status = store.ExecFailed
		errText = err.Error()
	case resp.Error != nil:
		status = store.ExecFailed
		output = resp.Output
		errText = resp.Error.Error()
	case resp.ExitCode != 0:
		status = store.ExecFailed
		output = resp.Output
		errText = fmt.Sprintf("exit code %d", resp.ExitCode)
	default:
		output = resp.Output
	}

	if err := t.finish(exec.ID, status, output, errText); err != nil {
		// Already swept as timed out; the sweep sent the event.
		if !errors.Is(err, ErrAlreadyFinished) {
			t.log.Error("finish execution", zap.String("execution_id", exec.ID), zap.Error(err))
		}
	}
}

// Complete transitions an execution to a terminal status and emits the
// event. Fails with ErrAlreadyFinished when it is already terminal.
func (t *Tracker) Complete(executionID string, status store.ExecStatus, output, errText string) error {
	switch status {
	case store.ExecCompleted, store.ExecFailed, store.ExecTimedOut:
	default:
		return fmt.Errorf("status %q is not terminal", status)
	}
	return t.finish(executionID, status, output, errText)
}

func (t *Tracker) finish(executionID string, status store.ExecStatus, output, errText string) error {
	limit := t.cfg.EffectiveOutputLimit()
	if len(output) > limit {
		// Back off to a rune boundary so the cut never splits a
		// multi-byte character.
		for limit > 0 && !utf8.RuneStart(output[limit]) {
			limit--
		}
		output = output[:limit] + "\n... (output truncated)"
	}

	n, err := t.store.FinishExecution(executionID, status, output, errText)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := t.store.GetExecution(executionID); errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return ErrAlreadyFinished
	}

	exec, err := t.store.GetExecution(executionID)
	if err != nil {
		return err
	}
	t.log.Info("execution finished",
		zap.String("execution_id", exec.ID),
		zap.String("status", string(status)))
	t.notify(Event{
		ExecutionID: exec.ID,
		ProjectID:   exec.ProjectID,
		PhaseID:     exec.PhaseID,
		Command:     exec.Command,
		Status:      status,
		Output:      exec.Output,
		Error:       exec.Error,
	})
	return nil
}

// SweepTimeouts marks every non-terminal execution older than the
// configured timeout as timed out. A safety net for executions whose
// runner goroutine died with the process.
func (t *Tracker) SweepTimeouts() (int, error) {
	stale, err := t.store.StaleExecutions(time.Now().UTC().Add(-t.cfg.Timeout()))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range stale {
		err := t.finish(e.ID, store.ExecTimedOut, "", fmt.Sprintf("no completion within %s", t.cfg.Timeout()))
		if err != nil && !errors.Is(err, ErrAlreadyFinished) {
			return count, err
		}
		count++
	}
	return count, nil
}

// History returns executions ordered by start timestamp ascending, the
// only ordering this package exposes.
func (t *Tracker) History(projectID string, since *time.Time, limit int) ([]store.Execution, error) {
	return t.store.ListExecutions(projectID, since, limit)
}

// Wait blocks until all in-flight executions have finished. Used by the
// CLI so a one-shot process does not exit with work still running.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// invocation renders the slash-command line handed to the coding agent.
func invocation(command store.CommandType, args string) string {
	parts := []string{"/" + string(command)}
	if args != "" {
		parts = append(parts, args)
	}
	return strings.Join(parts, " ")
}
