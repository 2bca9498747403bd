package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"foreman/internal/store"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrBlue      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle    = lipgloss.NewStyle().Foreground(clrDim)
	subtleStyle = lipgloss.NewStyle().Foreground(clrSubtle)

	selectedRowStyle = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)

	gatePanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrYellow).
			Padding(0, 1).
			Width(64)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrHighlight).
			Padding(1, 2).
			Width(60)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.currentScreen {
	case screenProjects:
		content = m.viewProjects()
	case screenDetail:
		content = m.viewDetail()
	}

	if m.decisionOpen {
		content = m.overlayDecision(content)
	}
	return content
}

func (m Model) viewProjects() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("foreman"))
	b.WriteString(dimStyle.Render(fmt.Sprintf(" — %d projects", len(m.projects))))
	b.WriteString("\n\n")

	if len(m.projects) == 0 {
		b.WriteString(dimStyle.Render("No projects yet. Create one: foreman project new \"name\""))
		b.WriteString("\n")
	}

	for i, p := range m.projects {
		line := fmt.Sprintf("%-24s %s", p.Name, projectStatusStyle(p.Status).Render(string(p.Status)))
		if i == m.cursor {
			b.WriteString(selectedRowStyle.Render("▶ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.footer([][2]string{
		{"↑/↓", "move"}, {"enter", "open"}, {"q", "quit"},
	}))
	return b.String()
}

func (m Model) viewDetail() string {
	var b strings.Builder

	if m.selected == nil || m.snap == nil {
		return dimStyle.Render("Loading...")
	}
	snap := m.snap

	b.WriteString(titleStyle.Render(snap.Project.Name))
	b.WriteString("  ")
	b.WriteString(projectStatusStyle(snap.Project.Status).Render(string(snap.Project.Status)))
	b.WriteString("\n\n")

	if len(snap.Phases) == 0 {
		b.WriteString(dimStyle.Render("Workflow not started."))
		b.WriteString("\n\n")
		b.WriteString(m.footer([][2]string{
			{"s", "start workflow"}, {"esc", "back"}, {"q", "quit"},
		}))
		return b.String()
	}

	for _, ph := range snap.Phases {
		mark, style := phaseGlyph(ph.Status)
		b.WriteString(style.Render(fmt.Sprintf(" %s %d. %-26s %s", mark, ph.Number, ph.Name, ph.Status)))
		b.WriteString("\n")
		if ph.ErrorMsg != "" {
			b.WriteString(lipgloss.NewStyle().Foreground(clrRed).Render("      " + ph.ErrorMsg))
			b.WriteString("\n")
		}
	}

	if snap.PendingGate != nil {
		g := snap.PendingGate
		panel := lipgloss.NewStyle().Bold(true).Foreground(clrYellow).Render("⏸ "+string(g.Type)) +
			"\n" + g.Prompt
		b.WriteString("\n")
		b.WriteString(gatePanelStyle.Render(panel))
		b.WriteString("\n")
	}

	if len(snap.Executions) > 0 {
		b.WriteString("\n")
		b.WriteString(subtleStyle.Render("Recent commands"))
		b.WriteString("\n")
		for _, e := range snap.Executions {
			b.WriteString(fmt.Sprintf("  %s  %-14s %s\n",
				dimStyle.Render(e.StartedAt.Format("15:04:05")),
				e.Command,
				execStatusStyle(e.Status).Render(string(e.Status))))
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(subtleStyle.Render(m.statusMsg))
		b.WriteString("\n")
	}

	keys := [][2]string{{"esc", "back"}, {"q", "quit"}}
	if snap.PendingGate != nil {
		keys = append([][2]string{{"a", "approve"}, {"r", "reject"}}, keys...)
	}
	b.WriteString("\n")
	b.WriteString(m.footer(keys))
	return b.String()
}

func (m Model) overlayDecision(content string) string {
	verb := "Reject"
	if m.decisionIsYes {
		verb = "Approve"
	}
	popup := titleStyle.Render(verb+" gate") + "\n\n" +
		m.notesInput.View() + "\n\n" +
		dimStyle.Render("enter confirm · esc cancel")
	return content + "\n\n" + popupStyle.Render(popup)
}

func (m Model) footer(keys [][2]string) string {
	var parts []string
	for _, k := range keys {
		parts = append(parts, footerKeyStyle.Render(k[0])+footerDescStyle.Render(" "+k[1]))
	}
	return strings.Join(parts, "  ")
}

func projectStatusStyle(status store.ProjectStatus) lipgloss.Style {
	switch status {
	case store.ProjectCompleted:
		return lipgloss.NewStyle().Foreground(clrGreen)
	case store.ProjectPaused:
		return lipgloss.NewStyle().Foreground(clrRed)
	case store.ProjectInProgress:
		return lipgloss.NewStyle().Foreground(clrBlue)
	case store.ProjectVisionReview, store.ProjectPlanning:
		return lipgloss.NewStyle().Foreground(clrYellow)
	}
	return dimStyle
}

func phaseGlyph(status store.PhaseStatus) (string, lipgloss.Style) {
	switch status {
	case store.PhaseCompleted:
		return "✓", lipgloss.NewStyle().Foreground(clrGreen)
	case store.PhaseActive:
		return "▶", lipgloss.NewStyle().Foreground(clrBlue)
	case store.PhaseFailed:
		return "✗", lipgloss.NewStyle().Foreground(clrRed)
	}
	return "·", dimStyle
}

func execStatusStyle(status store.ExecStatus) lipgloss.Style {
	switch status {
	case store.ExecCompleted:
		return lipgloss.NewStyle().Foreground(clrGreen)
	case store.ExecFailed, store.ExecTimedOut:
		return lipgloss.NewStyle().Foreground(clrRed)
	case store.ExecRunning:
		return lipgloss.NewStyle().Foreground(clrBlue)
	}
	return dimStyle
}
