// Package gate manages approval gates: blocking checkpoints that hold
// workflow progress until a human approves, rejects, or lets them expire.
package gate

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"foreman/internal/store"
)

// ErrGatePending is returned when opening a gate for a project that
// already has one pending. A project never has two open checkpoints.
var ErrGatePending = errors.New("project already has a pending gate")

// ErrNotPending is returned when resolving a gate that is already
// terminal. Resolved gates are immutable.
var ErrNotPending = errors.New("gate is not pending")

// Manager opens, resolves and expires approval gates.
type Manager struct {
	store *store.Store
	log   *zap.Logger
}

// New creates a gate manager.
func New(s *store.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: s, log: log}
}

// Open creates a pending gate for a project. It fails with ErrGatePending
// if one already exists; state is left untouched in that case.
func (m *Manager) Open(projectID string, phaseID *string, gateType store.GateType, prompt, payload string) (*store.Gate, error) {
	if _, err := m.store.PendingGate(projectID); err == nil {
		return nil, ErrGatePending
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check pending gate: %w", err)
	}

	g, err := m.store.CreateGate(projectID, phaseID, gateType, prompt, payload)
	if err != nil {
		return nil, err
	}
	m.log.Info("gate opened",
		zap.String("gate_id", g.ID),
		zap.String("project_id", projectID),
		zap.String("type", string(gateType)))
	return g, nil
}

// Resolve transitions a pending gate to approved or rejected. Fails with
// ErrNotPending when the gate is already terminal; the first resolution
// always wins.
func (m *Manager) Resolve(gateID string, approve bool, notes string) (*store.Gate, error) {
	status := store.GateRejected
	if approve {
		status = store.GateApproved
	}

	n, err := m.store.ResolveGate(gateID, status, notes)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := m.store.GetGate(gateID); errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, ErrNotPending
	}

	g, err := m.store.GetGate(gateID)
	if err != nil {
		return nil, err
	}
	m.log.Info("gate resolved",
		zap.String("gate_id", g.ID),
		zap.String("status", string(g.Status)))
	return g, nil
}

// ExpireStale transitions every pending gate older than the threshold to
// expired and returns them. Workflow treats expiry like rejection, but
// the status stays distinct for audit. A zero threshold disables expiry.
func (m *Manager) ExpireStale(olderThan time.Duration) ([]store.Gate, error) {
	if olderThan <= 0 {
		return nil, nil
	}
	expired, err := m.store.ExpirePendingGates(time.Now().UTC().Add(-olderThan))
	if err != nil {
		return nil, err
	}
	for _, g := range expired {
		m.log.Info("gate expired",
			zap.String("gate_id", g.ID),
			zap.String("project_id", g.ProjectID))
	}
	return expired, nil
}

// Pending returns the pending gate for a project, or store.ErrNotFound.
func (m *Manager) Pending(projectID string) (*store.Gate, error) {
	return m.store.PendingGate(projectID)
}
