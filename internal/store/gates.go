package store

import (
	"database/sql"
	"fmt"
	"time"
)

const gateColumns = `id, project_id, phase_id, gate_type, prompt, payload, status, response, created_at, resolved_at`

// CreateGate inserts a new pending approval gate. Enforcing the
// at-most-one-pending invariant is the gate manager's job; the store
// only records what it is told.
func (s *Store) CreateGate(projectID string, phaseID *string, gateType GateType, prompt, payload string) (*Gate, error) {
	g := &Gate{
		ID:        newID(),
		ProjectID: projectID,
		PhaseID:   phaseID,
		Type:      gateType,
		Prompt:    prompt,
		Payload:   payload,
		Status:    GatePending,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO gates (id, project_id, phase_id, gate_type, prompt, payload, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.ProjectID, g.PhaseID, string(g.Type), g.Prompt, g.Payload, string(g.Status), g.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert gate: %w", err)
	}
	return g, nil
}

// GetGate returns a single gate by ID.
func (s *Store) GetGate(id string) (*Gate, error) {
	row := s.db.QueryRow(`SELECT `+gateColumns+` FROM gates WHERE id = ?`, id)
	return scanGate(row)
}

// PendingGate returns the pending gate for a project, or ErrNotFound
// if none exists. A project never has more than one.
func (s *Store) PendingGate(projectID string) (*Gate, error) {
	row := s.db.QueryRow(
		`SELECT `+gateColumns+` FROM gates
		 WHERE project_id = ? AND status = ?
		 ORDER BY created_at LIMIT 1`,
		projectID, string(GatePending),
	)
	return scanGate(row)
}

// ListGates returns all gates for a project, newest first, for audit display.
func (s *Store) ListGates(projectID string) ([]Gate, error) {
	rows, err := s.db.Query(
		`SELECT `+gateColumns+` FROM gates WHERE project_id = ? ORDER BY created_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("query gates: %w", err)
	}
	defer rows.Close()

	var gates []Gate
	for rows.Next() {
		g, err := scanGateRows(rows)
		if err != nil {
			return nil, err
		}
		gates = append(gates, *g)
	}
	return gates, rows.Err()
}

// ResolveGate transitions a pending gate to a terminal status. It returns
// the number of rows changed: zero means the gate was missing or already
// terminal, and the caller decides which error that is.
func (s *Store) ResolveGate(id string, status GateStatus, response string) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE gates SET status = ?, response = ?, resolved_at = ?
		 WHERE id = ? AND status = ?`,
		string(status), response, now, id, string(GatePending),
	)
	if err != nil {
		return 0, fmt.Errorf("resolve gate: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ExpirePendingGates transitions every pending gate created before the
// cutoff to expired and returns the affected gates.
func (s *Store) ExpirePendingGates(cutoff time.Time) ([]Gate, error) {
	rows, err := s.db.Query(
		`SELECT `+gateColumns+` FROM gates WHERE status = ? AND created_at < ?`,
		string(GatePending), cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query stale gates: %w", err)
	}
	var stale []Gate
	for rows.Next() {
		g, err := scanGateRows(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		stale = append(stale, *g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i := range stale {
		_, err := s.db.Exec(
			`UPDATE gates SET status = ?, resolved_at = ? WHERE id = ? AND status = ?`,
			string(GateExpired), now, stale[i].ID, string(GatePending),
		)
		if err != nil {
			return nil, fmt.Errorf("expire gate: %w", err)
		}
		stale[i].Status = GateExpired
		stale[i].ResolvedAt = &now
	}
	return stale, nil
}

func scanGate(row *sql.Row) (*Gate, error) {
	var g Gate
	var phaseID sql.NullString
	var resolved sql.NullTime
	err := row.Scan(
		&g.ID, &g.ProjectID, &phaseID, &g.Type, &g.Prompt, &g.Payload,
		&g.Status, &g.Response, &g.CreatedAt, &resolved,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan gate: %w", err)
	}
	applyGateNullables(&g, phaseID, resolved)
	return &g, nil
}

func scanGateRows(rows *sql.Rows) (*Gate, error) {
	var g Gate
	var phaseID sql.NullString
	var resolved sql.NullTime
	err := rows.Scan(
		&g.ID, &g.ProjectID, &phaseID, &g.Type, &g.Prompt, &g.Payload,
		&g.Status, &g.Response, &g.CreatedAt, &resolved,
	)
	if err != nil {
		return nil, fmt.Errorf("scan gate: %w", err)
	}
	applyGateNullables(&g, phaseID, resolved)
	return &g, nil
}

func applyGateNullables(g *Gate, phaseID sql.NullString, resolved sql.NullTime) {
	if phaseID.Valid {
		g.PhaseID = &phaseID.String
	}
	if resolved.Valid {
		t := resolved.Time
		g.ResolvedAt = &t
	}
}
