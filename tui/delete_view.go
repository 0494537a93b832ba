// ABOUTME: Delete confirmation view for TUI
// ABOUTME: Confirms deletion of leads, deals and activities before calling the page controllers
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

// deleteTarget names the entity under confirmation.
func (m Model) deleteTarget() (kind, name string) {
	switch m.tab {
	case TabLeads:
		if lead, ok := m.findLead(m.selectedID); ok {
			return "lead", lead.FullName()
		}
		return "lead", fmt.Sprintf("#%d", m.selectedID)
	case TabPipeline:
		if deal, ok := m.findDeal(m.selectedID); ok {
			return "deal", deal.Title
		}
		return "deal", fmt.Sprintf("#%d", m.selectedID)
	case TabActivities:
		if act, ok := m.findActivity(m.selectedID); ok {
			return "activity", act.Subject
		}
		return "activity", fmt.Sprintf("#%d", m.selectedID)
	}
	return "", ""
}

func (m Model) renderConfirmDeleteView() string {
	kind, name := m.deleteTarget()

	title := warningStyle.Render("⚠  DELETE CONFIRMATION  ⚠")
	message := fmt.Sprintf("Are you sure you want to delete this %s?", kind)
	entityInfo := fmt.Sprintf("\n%s: %s\n", strings.ToUpper(kind), name)
	warning := "\nThis action cannot be undone!"

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Yes, Delete (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		message,
		entityInfo,
		warning,
		"",
		buttons,
	)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		confirmBoxStyle.Render(content),
	)
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		op := m.deleteOp()
		m.viewMode = ViewList
		m.selectedID = 0
		if op == nil {
			return m, nil
		}
		return m, m.run(op)
	case "n", "N", "esc":
		m.viewMode = ViewDetail
	}

	return m, nil
}

func (m Model) deleteOp() func(ctx context.Context) error {
	id := m.selectedID
	switch m.tab {
	case TabLeads:
		leads := m.leads
		return func(ctx context.Context) error { return leads.Delete(ctx, id) }
	case TabPipeline:
		deals := m.deals
		return func(ctx context.Context) error { return deals.Delete(ctx, id) }
	case TabActivities:
		acts := m.activities
		return func(ctx context.Context) error { return acts.Delete(ctx, id) }
	}
	return nil
}
