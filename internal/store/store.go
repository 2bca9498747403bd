// Package store persists foreman state in SQLite: projects, workflow
// phases, approval gates, command executions and conversation history.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store provides access to the foreman database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	// Cascade deletes from projects to owned entities.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		repo_url    TEXT DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'brainstorming',
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS phases (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		number        INTEGER NOT NULL,
		name          TEXT NOT NULL,
		command       TEXT DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'pending',
		gate_id       TEXT,
		error_msg     TEXT DEFAULT '',
		started_at    DATETIME,
		completed_at  DATETIME
	);

	CREATE TABLE IF NOT EXISTS gates (
		id           TEXT PRIMARY KEY,
		project_id   TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		phase_id     TEXT,
		gate_type    TEXT NOT NULL,
		prompt       TEXT NOT NULL,
		payload      TEXT DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'pending',
		response     TEXT DEFAULT '',
		created_at   DATETIME NOT NULL,
		resolved_at  DATETIME
	);

	CREATE TABLE IF NOT EXISTS executions (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		phase_id      TEXT,
		command       TEXT NOT NULL,
		args          TEXT DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'queued',
		output        TEXT DEFAULT '',
		error         TEXT DEFAULT '',
		started_at    DATETIME NOT NULL,
		completed_at  DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_executions_started
		ON executions(project_id, started_at);

	CREATE TABLE IF NOT EXISTS messages (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		topic_id    TEXT,
		role        TEXT NOT NULL,
		content     TEXT NOT NULL,
		timestamp   DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_time
		ON messages(project_id, timestamp);

	CREATE TABLE IF NOT EXISTS topics (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		title       TEXT NOT NULL,
		summary     TEXT DEFAULT '',
		active      INTEGER NOT NULL DEFAULT 1,
		started_at  DATETIME NOT NULL,
		ended_at    DATETIME
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// newID returns a fresh UUID string. UUIDs carry no chronological order,
// so callers must never sort or paginate by them.
func newID() string {
	return uuid.NewString()
}

// --- Projects ---

const projectColumns = `id, name, repo_url, status, created_at, updated_at`

// CreateProject inserts a new project in brainstorming status.
func (s *Store) CreateProject(name, repoURL string) (*Project, error) {
	now := time.Now().UTC()
	p := &Project{
		ID:        newID(),
		Name:      name,
		RepoURL:   repoURL,
		Status:    ProjectBrainstorming,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.RepoURL, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

// GetProject returns a single project by ID.
func (s *Store) GetProject(id string) (*Project, error) {
	row := s.db.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.RepoURL, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &p, nil
}

// ListProjects returns all projects ordered by creation time.
func (s *Store) ListProjects() ([]Project, error) {
	rows, err := s.db.Query(`SELECT ` + projectColumns + ` FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.RepoURL, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProjectStatus changes a project's lifecycle status.
func (s *Store) UpdateProjectStatus(id string, status ProjectStatus) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), now, id,
	)
	if err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProject removes a project and everything it owns.
func (s *Store) DeleteProject(id string) error {
	res, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
