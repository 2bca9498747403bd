package store

import (
	"database/sql"
	"fmt"
	"time"
)

const execColumns = `id, project_id, phase_id, command, args, status, output, error, started_at, completed_at`

// CreateExecution inserts a queued execution record. The start timestamp
// is supplied by the tracker, not generated here, so that history order
// matches when the tracker accepted the command.
func (s *Store) CreateExecution(projectID string, phaseID *string, command CommandType, args string, startedAt time.Time) (*Execution, error) {
	e := &Execution{
		ID:        newID(),
		ProjectID: projectID,
		PhaseID:   phaseID,
		Command:   command,
		Args:      args,
		Status:    ExecQueued,
		StartedAt: startedAt.UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO executions (id, project_id, phase_id, command, args, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProjectID, e.PhaseID, string(e.Command), e.Args, string(e.Status), e.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert execution: %w", err)
	}
	return e, nil
}

// GetExecution returns a single execution by ID.
func (s *Store) GetExecution(id string) (*Execution, error) {
	row := s.db.QueryRow(`SELECT `+execColumns+` FROM executions WHERE id = ?`, id)
	return scanExecution(row)
}

// MarkExecutionRunning flips a queued execution to running.
func (s *Store) MarkExecutionRunning(id string) error {
	res, err := s.db.Exec(
		`UPDATE executions SET status = ? WHERE id = ? AND status = ?`,
		string(ExecRunning), id, string(ExecQueued),
	)
	if err != nil {
		return fmt.Errorf("mark execution running: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FinishExecution transitions an execution to a terminal status. It
// returns the number of rows changed: zero means the record was missing
// or already terminal.
func (s *Store) FinishExecution(id string, status ExecStatus, output, errText string) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE executions SET status = ?, output = ?, error = ?, completed_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		string(status), output, errText, now,
		id, string(ExecQueued), string(ExecRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("finish execution: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ListExecutions returns executions for a project ordered by start
// timestamp ascending. When since is non-nil only executions started at
// or after it are returned; otherwise the most recent limit executions
// are returned (still ascending). This is the only execution query
// contract: there is deliberately no ID-based pagination, because UUIDs
// do not sort chronologically.
func (s *Store) ListExecutions(projectID string, since *time.Time, limit int) ([]Execution, error) {
	var rows *sql.Rows
	var err error

	if since != nil {
		query := `SELECT ` + execColumns + ` FROM executions
			 WHERE project_id = ? AND started_at >= ?
			 ORDER BY started_at ASC`
		args := []any{projectID, since.UTC()}
		if limit > 0 {
			query += ` LIMIT ?`
			args = append(args, limit)
		}
		rows, err = s.db.Query(query, args...)
	} else {
		// Most recent N, fetched newest-first then reversed below.
		query := `SELECT ` + execColumns + ` FROM executions
			 WHERE project_id = ? ORDER BY started_at DESC`
		args := []any{projectID}
		if limit > 0 {
			query += ` LIMIT ?`
			args = append(args, limit)
		}
		rows, err = s.db.Query(query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var execs []Execution
	for rows.Next() {
		e, err := scanExecutionRows(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if since == nil {
		// Restore ascending order.
		for i, j := 0, len(execs)-1; i < j; i, j = i+1, j-1 {
			execs[i], execs[j] = execs[j], execs[i]
		}
	}
	return execs, nil
}

// StaleExecutions returns non-terminal executions started before the
// cutoff, for the tracker's timeout sweep.
func (s *Store) StaleExecutions(cutoff time.Time) ([]Execution, error) {
	rows, err := s.db.Query(
		`SELECT `+execColumns+` FROM executions
		 WHERE status IN (?, ?) AND started_at < ?
		 ORDER BY started_at ASC`,
		string(ExecQueued), string(ExecRunning), cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query stale executions: %w", err)
	}
	defer rows.Close()

	var execs []Execution
	for rows.Next() {
		e, err := scanExecutionRows(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *e)
	}
	return execs, rows.Err()
}

func scanExecution(row *sql.Row) (*Execution, error) {
	var e Execution
	var phaseID sql.NullString
	var completed sql.NullTime
	err := row.Scan(
		&e.ID, &e.ProjectID, &phaseID, &e.Command, &e.Args, &e.Status,
		&e.Output, &e.Error, &e.StartedAt, &completed,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}
	applyExecNullables(&e, phaseID, completed)
	return &e, nil
}

func scanExecutionRows(rows *sql.Rows) (*Execution, error) {
	var e Execution
	var phaseID sql.NullString
	var completed sql.NullTime
	err := rows.Scan(
		&e.ID, &e.ProjectID, &phaseID, &e.Command, &e.Args, &e.Status,
		&e.Output, &e.Error, &e.StartedAt, &completed,
	)
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}
	applyExecNullables(&e, phaseID, completed)
	return &e, nil
}

func applyExecNullables(e *Execution, phaseID sql.NullString, completed sql.NullTime) {
	if phaseID.Valid {
		e.PhaseID = &phaseID.String
	}
	if completed.Valid {
		t := completed.Time
		e.CompletedAt = &t
	}
}
