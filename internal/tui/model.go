// Package tui is the interactive dashboard: projects on the left of your
// attention, phases, gates and command history one keypress away.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"foreman/internal/store"
	"foreman/internal/workflow"
)

// screen represents which view the TUI is showing.
type screen int

const (
	screenProjects screen = iota // project list (main)
	screenDetail                 // one project's workflow
)

// Model is the top-level bubbletea model.
type Model struct {
	store *store.Store
	orch  *workflow.Orchestrator

	width  int
	height int

	currentScreen screen

	// Project list state.
	projects []store.Project
	cursor   int

	// Detail state.
	selected *store.Project
	snap     *workflow.Snapshot

	// Gate decision input. When active, enter submits notes.
	notesInput    textinput.Model
	decisionOpen  bool
	decisionIsYes bool

	// Status message at the bottom.
	statusMsg string

	quitting bool
}

// New creates the dashboard model.
func New(s *store.Store, o *workflow.Orchestrator) Model {
	ni := textinput.New()
	ni.Placeholder = "Notes (retry/skip for failed phases)..."
	ni.CharLimit = 200
	ni.Width = 50

	return Model{
		store:         s,
		orch:          o,
		currentScreen: screenProjects,
		notesInput:    ni,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshProjects(), tick())
}

type projectsMsg struct {
	projects []store.Project
}

type snapshotMsg struct {
	snap *workflow.Snapshot
}

type statusMsgMsg string

type tickMsg time.Time

// tick drives periodic refresh so async command completions show up.
func tick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) refreshProjects() tea.Cmd {
	return func() tea.Msg {
		projects, _ := m.store.ListProjects()
		return projectsMsg{projects: projects}
	}
}

func (m Model) loadSnapshot(projectID string) tea.Cmd {
	return func() tea.Msg {
		snap, err := m.orch.State(projectID)
		if err != nil {
			return statusMsgMsg("Error loading project")
		}
		return snapshotMsg{snap: snap}
	}
}

func (m Model) resolveGate(projectID, gateID string, approve bool, notes string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.orch.Advance(context.Background(), projectID, workflow.GateDecision{
			GateID:  gateID,
			Approve: approve,
			Notes:   notes,
		})
		if err != nil {
			return statusMsgMsg("Gate: " + err.Error())
		}
		if approve {
			return statusMsgMsg("Approved")
		}
		return statusMsgMsg("Rejected")
	}
}

func (m Model) startWorkflow(projectID string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.orch.Begin(context.Background(), projectID)
		if err != nil {
			return statusMsgMsg("Start: " + err.Error())
		}
		return statusMsgMsg("Workflow started")
	}
}

func (m *Model) selectedProject() *store.Project {
	if m.cursor < len(m.projects) {
		p := m.projects[m.cursor]
		return &p
	}
	return nil
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.projects) {
		m.cursor = len(m.projects) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
