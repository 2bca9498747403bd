package store

import (
	"database/sql"
	"fmt"
	"time"
)

const phaseColumns = `id, project_id, number, name, command, status, gate_id, error_msg, started_at, completed_at`

// CreatePhase inserts a new pending phase record for a project.
func (s *Store) CreatePhase(projectID string, number int, name string, command CommandType) (*Phase, error) {
	p := &Phase{
		ID:        newID(),
		ProjectID: projectID,
		Number:    number,
		Name:      name,
		Command:   command,
		Status:    PhasePending,
	}
	_, err := s.db.Exec(
		`INSERT INTO phases (id, project_id, number, name, command, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.ProjectID, p.Number, p.Name, string(p.Command), string(p.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("insert phase: %w", err)
	}
	return p, nil
}

// GetPhase returns a single phase by ID.
func (s *Store) GetPhase(id string) (*Phase, error) {
	row := s.db.QueryRow(`SELECT `+phaseColumns+` FROM phases WHERE id = ?`, id)
	return scanPhase(row)
}

// CurrentPhase returns the highest-numbered phase of a project, or
// ErrNotFound when the workflow has not started.
func (s *Store) CurrentPhase(projectID string) (*Phase, error) {
	row := s.db.QueryRow(
		`SELECT `+phaseColumns+` FROM phases
		 WHERE project_id = ? ORDER BY number DESC LIMIT 1`, projectID,
	)
	return scanPhase(row)
}

// ActivePhase returns the phase currently marked active for a project,
// or ErrNotFound if none is.
func (s *Store) ActivePhase(projectID string) (*Phase, error) {
	row := s.db.QueryRow(
		`SELECT `+phaseColumns+` FROM phases
		 WHERE project_id = ? AND status = ? LIMIT 1`,
		projectID, string(PhaseActive),
	)
	return scanPhase(row)
}

// ListPhases returns all phases of a project in ordinal order.
func (s *Store) ListPhases(projectID string) ([]Phase, error) {
	rows, err := s.db.Query(
		`SELECT `+phaseColumns+` FROM phases WHERE project_id = ? ORDER BY number`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("query phases: %w", err)
	}
	defer rows.Close()

	var phases []Phase
	for rows.Next() {
		p, err := scanPhaseRows(rows)
		if err != nil {
			return nil, err
		}
		phases = append(phases, *p)
	}
	return phases, rows.Err()
}

// StartPhase marks a phase active and stamps its start time.
func (s *Store) StartPhase(id string) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE phases SET status = ?, started_at = ? WHERE id = ?`,
		string(PhaseActive), now, id,
	)
	if err != nil {
		return fmt.Errorf("start phase: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CompletePhase marks a phase completed and stamps its end time.
func (s *Store) CompletePhase(id string) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE phases SET status = ?, completed_at = ? WHERE id = ?`,
		string(PhaseCompleted), now, id,
	)
	if err != nil {
		return fmt.Errorf("complete phase: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FailPhase marks a phase failed with an error message.
func (s *Store) FailPhase(id, errMsg string) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE phases SET status = ?, error_msg = ?, completed_at = ? WHERE id = ?`,
		string(PhaseFailed), errMsg, now, id,
	)
	if err != nil {
		return fmt.Errorf("fail phase: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPhaseGate links the gate guarding a phase boundary to the phase.
func (s *Store) SetPhaseGate(id, gateID string) error {
	res, err := s.db.Exec(`UPDATE phases SET gate_id = ? WHERE id = ?`, gateID, id)
	if err != nil {
		return fmt.Errorf("set phase gate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPhase(row *sql.Row) (*Phase, error) {
	var p Phase
	var gateID sql.NullString
	var started, completed sql.NullTime
	err := row.Scan(
		&p.ID, &p.ProjectID, &p.Number, &p.Name, &p.Command, &p.Status,
		&gateID, &p.ErrorMsg, &started, &completed,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan phase: %w", err)
	}
	applyPhaseNullables(&p, gateID, started, completed)
	return &p, nil
}

func scanPhaseRows(rows *sql.Rows) (*Phase, error) {
	var p Phase
	var gateID sql.NullString
	var started, completed sql.NullTime
	err := rows.Scan(
		&p.ID, &p.ProjectID, &p.Number, &p.Name, &p.Command, &p.Status,
		&gateID, &p.ErrorMsg, &started, &completed,
	)
	if err != nil {
		return nil, fmt.Errorf("scan phase: %w", err)
	}
	applyPhaseNullables(&p, gateID, started, completed)
	return &p, nil
}

func applyPhaseNullables(p *Phase, gateID sql.NullString, started, completed sql.NullTime) {
	if gateID.Valid {
		p.GateID = &gateID.String
	}
	if started.Valid {
		t := started.Time
		p.StartedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		p.CompletedAt = &t
	}
}
