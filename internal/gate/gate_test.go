package gate

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"foreman/internal/store"
)

func testManager(t *testing.T) (*Manager, *store.Store, *store.Project) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	p, err := s.CreateProject("Test", "")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return New(s, nil), s, p
}

func TestOpen(t *testing.T) {
	m, _, p := testManager(t)

	g, err := m.Open(p.ID, nil, store.GateVisionDoc, "Approve the vision document", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if g.Status != store.GatePending {
		t.Errorf("expected pending, got %s", g.Status)
	}
	if g.Type != store.GateVisionDoc {
		t.Errorf("expected vision_doc, got %s", g.Type)
	}
}

func TestOpen_ConflictWhilePending(t *testing.T) {
	m, s, p := testManager(t)

	first, _ := m.Open(p.ID, nil, store.GatePhaseStart, "Approve: Plan Feature", "")

	_, err := m.Open(p.ID, nil, store.GatePhaseComplete, "Approve: Validate", "")
	if !errors.Is(err, ErrGatePending) {
		t.Fatalf("expected ErrGatePending, got %v", err)
	}

	// State unchanged: still exactly the first gate, still pending.
	gates, _ := s.ListGates(p.ID)
	if len(gates) != 1 {
		t.Fatalf("expected 1 gate, got %d", len(gates))
	}
	if gates[0].ID != first.ID || gates[0].Status != store.GatePending {
		t.Errorf("existing gate mutated: %+v", gates[0])
	}
}

func TestOpen_AllowedAfterResolve(t *testing.T) {
	m, _, p := testManager(t)

	g1, _ := m.Open(p.ID, nil, store.GatePhaseStart, "Approve: Plan Feature", "")
	if _, err := m.Resolve(g1.ID, true, ""); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if _, err := m.Open(p.ID, nil, store.GatePhaseComplete, "Approve: Validate", ""); err != nil {
		t.Fatalf("Open after resolve: %v", err)
	}
}

func TestResolve_Approve(t *testing.T) {
	m, _, p := testManager(t)

	g, _ := m.Open(p.ID, nil, store.GateVisionDoc, "Approve the vision document", "")
	resolved, err := m.Resolve(g.ID, true, "ship it")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Status != store.GateApproved {
		t.Errorf("expected approved, got %s", resolved.Status)
	}
	if resolved.Response != "ship it" {
		t.Errorf("expected notes 'ship it', got %q", resolved.Response)
	}
	if resolved.ResolvedAt == nil {
		t.Error("expected resolved_at to be set")
	}
}

func TestResolve_TwiceFails(t *testing.T) {
	m, s, p := testManager(t)

	g, _ := m.Open(p.ID, nil, store.GateVisionDoc, "Approve the vision document", "")
	if _, err := m.Resolve(g.ID, false, "needs work"); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}

	_, err := m.Resolve(g.ID, true, "actually fine")
	if !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}

	// First resolution stands.
	got, _ := s.GetGate(g.ID)
	if got.Status != store.GateRejected {
		t.Errorf("expected rejected, got %s", got.Status)
	}
	if got.Response != "needs work" {
		t.Errorf("expected 'needs work', got %q", got.Response)
	}
}

func TestResolve_MissingGate(t *testing.T) {
	m, _, _ := testManager(t)

	_, err := m.Resolve("no-such-gate", true, "")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExpireStale(t *testing.T) {
	m, s, p := testManager(t)

	g, _ := m.Open(p.ID, nil, store.GateErrorResolution, "Command failed. Retry?", "")

	// Gate is fresh: nothing expires.
	expired, err := m.ExpireStale(time.Hour)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("expected nothing expired, got %d", len(expired))
	}

	// Tiny threshold: the gate is older than it.
	time.Sleep(5 * time.Millisecond)
	expired, err = m.ExpireStale(time.Millisecond)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != g.ID {
		t.Fatalf("expected gate expired, got %+v", expired)
	}

	got, _ := s.GetGate(g.ID)
	if got.Status != store.GateExpired {
		t.Errorf("expected expired status, got %s", got.Status)
	}

	// Expired gate can no longer be resolved.
	if _, err := m.Resolve(g.ID, true, ""); !errors.Is(err, ErrNotPending) {
		t.Errorf("expected ErrNotPending for expired gate, got %v", err)
	}
}

func TestExpireStale_ZeroDisablesExpiry(t *testing.T) {
	m, _, p := testManager(t)

	m.Open(p.ID, nil, store.GateVisionDoc, "Approve the vision document", "")
	expired, err := m.ExpireStale(0)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if expired != nil {
		t.Errorf("expected nil, got %v", expired)
	}

	g, err := m.Pending(p.ID)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if g.Status != store.GatePending {
		t.Errorf("gate should still be pending, got %s", g.Status)
	}
}
