package store

import (
	"database/sql"
	"fmt"
	"time"
)

const messageColumns = `id, project_id, topic_id, role, content, timestamp`
const topicColumns = `id, project_id, title, summary, active, started_at, ended_at`

// AddMessage appends a conversation message stamped with the current time.
func (s *Store) AddMessage(projectID string, topicID *string, role Role, content string) (*Message, error) {
	return s.AddMessageAt(projectID, topicID, role, content, time.Now().UTC())
}

// AddMessageAt appends a conversation message with an explicit timestamp.
func (s *Store) AddMessageAt(projectID string, topicID *string, role Role, content string, ts time.Time) (*Message, error) {
	m := &Message{
		ID:        newID(),
		ProjectID: projectID,
		TopicID:   topicID,
		Role:      role,
		Content:   content,
		Timestamp: ts.UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO messages (id, project_id, topic_id, role, content, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, m.TopicID, string(m.Role), m.Content, m.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// RecentMessages returns the last limit messages for a project in
// chronological order. Pass topicID to restrict to one topic.
func (s *Store) RecentMessages(projectID string, topicID *string, limit int) ([]Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE project_id = ?`
	args := []any{projectID}
	if topicID != nil {
		query += ` AND topic_id = ?`
		args = append(args, *topicID)
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var topic sql.NullString
		if err := rows.Scan(&m.ID, &m.ProjectID, &topic, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if topic.Valid {
			m.TopicID = &topic.String
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Restore chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// LastMessage returns the most recent message for a project, or
// ErrNotFound when the conversation is empty.
func (s *Store) LastMessage(projectID string) (*Message, error) {
	row := s.db.QueryRow(
		`SELECT `+messageColumns+` FROM messages
		 WHERE project_id = ? ORDER BY timestamp DESC LIMIT 1`, projectID,
	)
	var m Message
	var topic sql.NullString
	err := row.Scan(&m.ID, &m.ProjectID, &topic, &m.Role, &m.Content, &m.Timestamp)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	if topic.Valid {
		m.TopicID = &topic.String
	}
	return &m, nil
}

// ActiveTopic returns the active topic for a project, or ErrNotFound.
func (s *Store) ActiveTopic(projectID string) (*Topic, error) {
	row := s.db.QueryRow(
		`SELECT `+topicColumns+` FROM topics
		 WHERE project_id = ? AND active = 1
		 ORDER BY started_at DESC LIMIT 1`, projectID,
	)
	return scanTopic(row)
}

// CreateTopic opens a new active topic after closing any currently
// active one. Messages are attributed to at most one topic, so closing
// the old topic before opening the new one keeps the active flag unique.
func (s *Store) CreateTopic(projectID, title, summary string) (*Topic, error) {
	now := time.Now().UTC()
	if _, err := s.db.Exec(
		`UPDATE topics SET active = 0, ended_at = ? WHERE project_id = ? AND active = 1`,
		now, projectID,
	); err != nil {
		return nil, fmt.Errorf("close active topic: %w", err)
	}

	t := &Topic{
		ID:        newID(),
		ProjectID: projectID,
		Title:     title,
		Summary:   summary,
		Active:    true,
		StartedAt: now,
	}
	_, err := s.db.Exec(
		`INSERT INTO topics (id, project_id, title, summary, active, started_at)
		 VALUES (?, ?, ?, ?, 1, ?)`,
		t.ID, t.ProjectID, t.Title, t.Summary, t.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert topic: %w", err)
	}
	return t, nil
}

// ListTopics returns all topics for a project in chronological order.
func (s *Store) ListTopics(projectID string) ([]Topic, error) {
	rows, err := s.db.Query(
		`SELECT `+topicColumns+` FROM topics WHERE project_id = ? ORDER BY started_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		var t Topic
		var ended sql.NullTime
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Summary, &t.Active, &t.StartedAt, &ended); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		if ended.Valid {
			e := ended.Time
			t.EndedAt = &e
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func scanTopic(row *sql.Row) (*Topic, error) {
	var t Topic
	var ended sql.NullTime
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Summary, &t.Active, &t.StartedAt, &ended)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan topic: %w", err)
	}
	if ended.Valid {
		e := ended.Time
		t.EndedAt = &e
	}
	return &t, nil
}
