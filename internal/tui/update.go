package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case projectsMsg:
		m.projects = msg.projects
		m.clampCursor()
		return m, nil

	case snapshotMsg:
		m.snap = msg.snap
		return m, nil

	case statusMsgMsg:
		m.statusMsg = string(msg)
		return m, m.refreshCurrent()

	case tickMsg:
		return m, tea.Batch(m.refreshCurrent(), tick())

	case tea.KeyMsg:
		if m.decisionOpen {
			return m.updateDecision(msg)
		}
		switch m.currentScreen {
		case screenProjects:
			return m.updateProjects(msg)
		case screenDetail:
			return m.updateDetail(msg)
		}
	}
	return m, nil
}

func (m Model) refreshCurrent() tea.Cmd {
	if m.currentScreen == screenDetail && m.selected != nil {
		return m.loadSnapshot(m.selected.ID)
	}
	return m.refreshProjects()
}

func (m Model) updateProjects(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		m.cursor--
		m.clampCursor()

	case "down", "j":
		m.cursor++
		m.clampCursor()

	case "enter":
		if p := m.selectedProject(); p != nil {
			m.selected = p
			m.currentScreen = screenDetail
			m.snap = nil
			m.statusMsg = ""
			return m, m.loadSnapshot(p.ID)
		}
	}
	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.currentScreen = screenProjects
		m.statusMsg = ""
		return m, m.refreshProjects()

	case "s":
		if m.snap != nil && len(m.snap.Phases) == 0 {
			return m, m.startWorkflow(m.selected.ID)
		}

	case "a", "r":
		if m.snap != nil && m.snap.PendingGate != nil {
			m.decisionOpen = true
			m.decisionIsYes = msg.String() == "a"
			m.notesInput.SetValue("")
			m.notesInput.Focus()
			return m, nil
		}
	}
	return m, nil
}

func (m Model) updateDecision(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.decisionOpen = false
		m.notesInput.Blur()
		return m, nil

	case "enter":
		m.decisionOpen = false
		m.notesInput.Blur()
		if m.snap == nil || m.snap.PendingGate == nil {
			return m, nil
		}
		return m, m.resolveGate(m.selected.ID, m.snap.PendingGate.ID, m.decisionIsYes, m.notesInput.Value())
	}

	var cmd tea.Cmd
	m.notesInput, cmd = m.notesInput.Update(msg)
	return m, cmd
}
