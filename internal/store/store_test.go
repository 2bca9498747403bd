package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testProject(t *testing.T, s *Store) *Project {
	t.Helper()
	p, err := s.CreateProject("Test project", "https://example.com/org/repo")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func TestCreateProject(t *testing.T) {
	s := testStore(t)

	p, err := s.CreateProject("My app", "https://example.com/me/app")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.ID == "" {
		t.Error("expected generated ID")
	}
	if p.Status != ProjectBrainstorming {
		t.Errorf("expected brainstorming status, got %s", p.Status)
	}

	got, err := s.GetProject(p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Name != "My app" {
		t.Errorf("expected name 'My app', got %q", got.Name)
	}
	if got.RepoURL != "https://example.com/me/app" {
		t.Errorf("unexpected repo url %q", got.RepoURL)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetProject("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProjectStatus(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	if err := s.UpdateProjectStatus(p.ID, ProjectPlanning); err != nil {
		t.Fatalf("UpdateProjectStatus: %v", err)
	}
	got, _ := s.GetProject(p.ID)
	if got.Status != ProjectPlanning {
		t.Errorf("expected planning, got %s", got.Status)
	}
}

func TestDeleteProject_Cascades(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	phase, _ := s.CreatePhase(p.ID, 1, "Vision Document Review", "")
	s.CreateGate(p.ID, &phase.ID, GateVisionDoc, "Approve the vision document", "")
	s.CreateExecution(p.ID, nil, CommandPrime, "", time.Now())
	s.AddMessage(p.ID, nil, RoleUser, "hello")
	s.CreateTopic(p.ID, "First topic", "")

	if err := s.DeleteProject(p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}

	if _, err := s.GetPhase(phase.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected phase to be deleted, got %v", err)
	}
	if _, err := s.PendingGate(p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected gate to be deleted, got %v", err)
	}
	execs, _ := s.ListExecutions(p.ID, nil, 0)
	if len(execs) != 0 {
		t.Errorf("expected no executions, got %d", len(execs))
	}
	msgs, _ := s.RecentMessages(p.ID, nil, 0)
	if len(msgs) != 0 {
		t.Errorf("expected no messages, got %d", len(msgs))
	}
}

func TestPhaseLifecycle(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	phase, err := s.CreatePhase(p.ID, 2, "Prime Context", CommandPrime)
	if err != nil {
		t.Fatalf("CreatePhase: %v", err)
	}
	if phase.Status != PhasePending {
		t.Errorf("expected pending, got %s", phase.Status)
	}

	if err := s.StartPhase(phase.ID); err != nil {
		t.Fatalf("StartPhase: %v", err)
	}
	got, _ := s.GetPhase(phase.ID)
	if got.Status != PhaseActive {
		t.Errorf("expected active, got %s", got.Status)
	}
	if got.StartedAt == nil {
		t.Error("expected started_at to be set")
	}

	if err := s.CompletePhase(phase.ID); err != nil {
		t.Fatalf("CompletePhase: %v", err)
	}
	got, _ = s.GetPhase(phase.ID)
	if got.Status != PhaseCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

func TestFailPhase(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	phase, _ := s.CreatePhase(p.ID, 4, "Execute Implementation", CommandImplement)
	s.StartPhase(phase.ID)

	if err := s.FailPhase(phase.ID, "agent exited with code 1"); err != nil {
		t.Fatalf("FailPhase: %v", err)
	}
	got, _ := s.GetPhase(phase.ID)
	if got.Status != PhaseFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if got.ErrorMsg != "agent exited with code 1" {
		t.Errorf("unexpected error message %q", got.ErrorMsg)
	}
}

func TestCurrentPhase(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	if _, err := s.CurrentPhase(p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before any phase, got %v", err)
	}

	s.CreatePhase(p.ID, 1, "Vision Document Review", "")
	s.CreatePhase(p.ID, 2, "Prime Context", CommandPrime)

	current, err := s.CurrentPhase(p.ID)
	if err != nil {
		t.Fatalf("CurrentPhase: %v", err)
	}
	if current.Number != 2 {
		t.Errorf("expected phase 2, got %d", current.Number)
	}
}

func TestActivePhase(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	p1, _ := s.CreatePhase(p.ID, 1, "Vision Document Review", "")
	p2, _ := s.CreatePhase(p.ID, 2, "Prime Context", CommandPrime)
	s.CompletePhase(p1.ID)
	s.StartPhase(p2.ID)

	active, err := s.ActivePhase(p.ID)
	if err != nil {
		t.Fatalf("ActivePhase: %v", err)
	}
	if active.ID != p2.ID {
		t.Errorf("expected phase %s, got %s", p2.ID, active.ID)
	}
}

func TestResolveGate(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	g, err := s.CreateGate(p.ID, nil, GatePhaseStart, "Approve: Plan Feature", "")
	if err != nil {
		t.Fatalf("CreateGate: %v", err)
	}

	n, err := s.ResolveGate(g.ID, GateApproved, "looks good")
	if err != nil {
		t.Fatalf("ResolveGate: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}

	got, _ := s.GetGate(g.ID)
	if got.Status != GateApproved {
		t.Errorf("expected approved, got %s", got.Status)
	}
	if got.ResolvedAt == nil {
		t.Error("expected resolved_at to be set")
	}

	// Second resolve touches nothing.
	n, err = s.ResolveGate(g.ID, GateRejected, "changed my mind")
	if err != nil {
		t.Fatalf("second ResolveGate: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 rows on second resolve, got %d", n)
	}
	got, _ = s.GetGate(g.ID)
	if got.Status != GateApproved {
		t.Errorf("terminal gate mutated to %s", got.Status)
	}
	if got.Response != "looks good" {
		t.Errorf("terminal gate response mutated to %q", got.Response)
	}
}

func TestPendingGate(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	if _, err := s.PendingGate(p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	g, _ := s.CreateGate(p.ID, nil, GateVisionDoc, "Approve the vision document", "")
	pending, err := s.PendingGate(p.ID)
	if err != nil {
		t.Fatalf("PendingGate: %v", err)
	}
	if pending.ID != g.ID {
		t.Errorf("expected gate %s, got %s", g.ID, pending.ID)
	}

	s.ResolveGate(g.ID, GateApproved, "")
	if _, err := s.PendingGate(p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected no pending gate after resolve, got %v", err)
	}
}

func TestExpirePendingGates(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	g, _ := s.CreateGate(p.ID, nil, GatePhaseComplete, "Approve: Validate & Test", "")

	// Cutoff in the past leaves the gate alone.
	expired, err := s.ExpirePendingGates(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ExpirePendingGates: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("expected no expired gates, got %d", len(expired))
	}

	// Cutoff in the future expires it.
	expired, err = s.ExpirePendingGates(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ExpirePendingGates: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != g.ID {
		t.Fatalf("expected gate %s expired, got %+v", g.ID, expired)
	}

	got, _ := s.GetGate(g.ID)
	if got.Status != GateExpired {
		t.Errorf("expected expired, got %s", got.Status)
	}
}

func TestFinishExecution_Terminal(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	e, err := s.CreateExecution(p.ID, nil, CommandValidate, "", time.Now())
	if err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	if err := s.MarkExecutionRunning(e.ID); err != nil {
		t.Fatalf("MarkExecutionRunning: %v", err)
	}

	n, err := s.FinishExecution(e.ID, ExecCompleted, "all tests passing", "")
	if err != nil {
		t.Fatalf("FinishExecution: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}

	// Already terminal: no rows change.
	n, _ = s.FinishExecution(e.ID, ExecFailed, "", "boom")
	if n != 0 {
		t.Fatalf("expected 0 rows on second finish, got %d", n)
	}
	got, _ := s.GetExecution(e.ID)
	if got.Status != ExecCompleted {
		t.Errorf("terminal execution mutated to %s", got.Status)
	}
	if got.Output != "all tests passing" {
		t.Errorf("terminal execution output mutated to %q", got.Output)
	}
}

// Executions inserted out of chronological order must still come back
// ordered by start timestamp. UUID identifiers carry no time ordering,
// which is why the query contract never sorts by ID.
func TestListExecutions_TimestampOrder(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	base := time.Now().UTC().Add(-time.Hour)
	// Insert in reverse chronological order.
	e3, _ := s.CreateExecution(p.ID, nil, CommandValidate, "", base.Add(30*time.Minute))
	e1, _ := s.CreateExecution(p.ID, nil, CommandPrime, "", base)
	e2, _ := s.CreateExecution(p.ID, nil, CommandPlan, "my feature", base.Add(10*time.Minute))

	execs, err := s.ListExecutions(p.ID, nil, 0)
	if err != nil {
		t.Fatalf("ListExecutions: %v", err)
	}
	if len(execs) != 3 {
		t.Fatalf("expected 3 executions, got %d", len(execs))
	}
	want := []string{e1.ID, e2.ID, e3.ID}
	for i, e := range execs {
		if e.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], e.ID)
		}
	}
}

func TestListExecutions_Since(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	base := time.Now().UTC().Add(-time.Hour)
	s.CreateExecution(p.ID, nil, CommandPrime, "", base)
	e2, _ := s.CreateExecution(p.ID, nil, CommandPlan, "", base.Add(10*time.Minute))
	e3, _ := s.CreateExecution(p.ID, nil, CommandImplement, "", base.Add(20*time.Minute))

	since := base.Add(5 * time.Minute)
	execs, err := s.ListExecutions(p.ID, &since, 0)
	if err != nil {
		t.Fatalf("ListExecutions since: %v", err)
	}
	if len(execs) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(execs))
	}
	if execs[0].ID != e2.ID || execs[1].ID != e3.ID {
		t.Errorf("wrong executions or order: %s, %s", execs[0].ID, execs[1].ID)
	}
}

func TestListExecutions_LimitReturnsMostRecentAscending(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	base := time.Now().UTC().Add(-time.Hour)
	s.CreateExecution(p.ID, nil, CommandPrime, "", base)
	e2, _ := s.CreateExecution(p.ID, nil, CommandPlan, "", base.Add(10*time.Minute))
	e3, _ := s.CreateExecution(p.ID, nil, CommandImplement, "", base.Add(20*time.Minute))

	execs, err := s.ListExecutions(p.ID, nil, 2)
	if err != nil {
		t.Fatalf("ListExecutions limit: %v", err)
	}
	if len(execs) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(execs))
	}
	if execs[0].ID != e2.ID || execs[1].ID != e3.ID {
		t.Errorf("expected most recent two ascending, got %s, %s", execs[0].ID, execs[1].ID)
	}
}

func TestStaleExecutions(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	old, _ := s.CreateExecution(p.ID, nil, CommandPrime, "", time.Now().Add(-20*time.Minute))
	s.MarkExecutionRunning(old.ID)
	fresh, _ := s.CreateExecution(p.ID, nil, CommandPlan, "", time.Now())
	done, _ := s.CreateExecution(p.ID, nil, CommandValidate, "", time.Now().Add(-30*time.Minute))
	s.FinishExecution(done.ID, ExecCompleted, "", "")

	stale, err := s.StaleExecutions(time.Now().Add(-10 * time.Minute))
	if err != nil {
		t.Fatalf("StaleExecutions: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("expected 1 stale execution, got %d", len(stale))
	}
	if stale[0].ID != fresh.ID && stale[0].ID != old.ID {
		t.Fatalf("unexpected stale execution %s", stale[0].ID)
	}
	if stale[0].ID != old.ID {
		t.Errorf("expected %s stale, got %s", old.ID, stale[0].ID)
	}
}

func TestTopics(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	if _, err := s.ActiveTopic(p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	t1, err := s.CreateTopic(p.ID, "Build a todo app", "")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	active, _ := s.ActiveTopic(p.ID)
	if active.ID != t1.ID {
		t.Errorf("expected %s active, got %s", t1.ID, active.ID)
	}

	t2, _ := s.CreateTopic(p.ID, "Deploy to production", "")
	active, _ = s.ActiveTopic(p.ID)
	if active.ID != t2.ID {
		t.Errorf("expected %s active, got %s", t2.ID, active.ID)
	}

	topics, _ := s.ListTopics(p.ID)
	if len(topics) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(topics))
	}
	if topics[0].Active {
		t.Error("first topic should be closed")
	}
	if topics[0].EndedAt == nil {
		t.Error("closed topic should have ended_at")
	}
}

func TestRecentMessages_TopicScoped(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	t1, _ := s.CreateTopic(p.ID, "First", "")
	s.AddMessage(p.ID, &t1.ID, RoleUser, "old topic message")
	t2, _ := s.CreateTopic(p.ID, "Second", "")
	s.AddMessage(p.ID, &t2.ID, RoleUser, "new topic message")

	all, _ := s.RecentMessages(p.ID, nil, 0)
	if len(all) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(all))
	}

	scoped, _ := s.RecentMessages(p.ID, &t2.ID, 0)
	if len(scoped) != 1 {
		t.Fatalf("expected 1 scoped message, got %d", len(scoped))
	}
	if scoped[0].Content != "new topic message" {
		t.Errorf("unexpected message %q", scoped[0].Content)
	}
}

func TestRecentMessages_ChronologicalWithLimit(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)

	base := time.Now().UTC().Add(-time.Hour)
	for i, text := range []string{"one", "two", "three", "four"} {
		s.AddMessageAt(p.ID, nil, RoleUser, text, base.Add(time.Duration(i)*time.Minute))
	}

	msgs, err := s.RecentMessages(p.ID, nil, 2)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "three" || msgs[1].Content != "four" {
		t.Errorf("expected last two in order, got %q, %q", msgs[0].Content, msgs[1].Content)
	}
}
