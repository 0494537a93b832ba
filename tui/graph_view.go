package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/viz"
)

func (m Model) renderGraphView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("GRAPH VIEW"))
	s.WriteString("\n\n")

	if m.graphDOT == "" {
		s.WriteString("Generating graph...\n")
	} else {
		s.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Render(m.graphDOT))
	}

	s.WriteString("\n\n")
	s.WriteString(m.renderGraphHelp())

	return s.String()
}

func (m Model) renderGraphHelp() string {
	help := []string{
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleGraphKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.selectedID != 0 {
			m.viewMode = ViewDetail
		} else {
			m.viewMode = ViewList
		}
		m.graphDOT = ""
	}

	return m, nil
}

// generateGraph renders DOT from the loaded data: the pipeline on the board,
// the selected lead's network on the leads tab.
func (m Model) generateGraph() tea.Cmd {
	leads, deals, acts := m.allLeads, m.allDeals, m.allActs
	tab, id := m.tab, m.selectedID
	return func() tea.Msg {
		generator, err := viz.NewGraphGenerator(leads, deals, acts).WithFormat(viz.FormatDOT)
		if err != nil {
			return graphMsg{err: err}
		}

		var dot string
		if tab == TabLeads && id != 0 {
			dot, err = generator.GenerateLeadGraph(models.Ref(id))
		} else {
			dot, err = generator.GeneratePipelineGraph()
		}
		return graphMsg{dot: dot, err: err}
	}
}
