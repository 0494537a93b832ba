package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadpipe/models"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(20)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	sectionStyle = lipgloss.NewStyle().Bold(true)
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DETAIL VIEW"))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n\n")
	}

	switch m.tab {
	case TabLeads:
		s.WriteString(m.renderLeadDetail())
	case TabPipeline:
		s.WriteString(m.renderDealDetail())
	case TabActivities:
		s.WriteString(m.renderActivityDetail())
	}

	s.WriteString("\n\n")
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) findLead(id int) (models.Lead, bool) {
	for _, l := range m.allLeads {
		if l.ID == id {
			return l, true
		}
	}
	return models.Lead{}, false
}

func (m Model) findDeal(id int) (models.Deal, bool) {
	for _, d := range m.allDeals {
		if d.ID == id {
			return d, true
		}
	}
	return models.Deal{}, false
}

func (m Model) findActivity(id int) (models.Activity, bool) {
	for _, a := range m.allActs {
		if a.ID == id {
			return a, true
		}
	}
	return models.Activity{}, false
}

func (m Model) renderLeadDetail() string {
	lead, ok := m.findLead(m.selectedID)
	if !ok {
		return fmt.Sprintf("Lead %d not found", m.selectedID)
	}

	var s strings.Builder
	s.WriteString(m.renderField("Name", lead.FullName()))
	s.WriteString(m.renderField("Email", lead.Email))
	s.WriteString(m.renderField("Phone", lead.Phone))
	s.WriteString(m.renderField("Company", lead.Company))
	s.WriteString(m.renderField("Product", lead.ProductName))
	s.WriteString(m.renderField("Status", lead.Status))
	s.WriteString(m.renderField("Source", lead.Source))
	s.WriteString(m.renderField("Created", lead.CreatedAt.Format("2006-01-02")))
	if lead.LastContact != nil {
		s.WriteString(m.renderField("Last Contact", lead.LastContact.Format("2006-01-02")))
	}
	if lead.ChatSummary != nil {
		s.WriteString(m.renderField("Chat Summary", *lead.ChatSummary))
	}

	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("DEALS"))
	s.WriteString("\n")
	for _, d := range m.allDeals {
		if models.RefEquals(d.LeadID, lead.ID) {
			s.WriteString(fmt.Sprintf("  • %s  %s  %s\n", d.Title, models.StageName(d.Stage), money(d.Value)))
		}
	}

	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("ACTIVITIES"))
	s.WriteString("\n")
	for _, a := range m.allActs {
		if models.RefEquals(a.LeadID, lead.ID) {
			mark := " "
			if a.Completed {
				mark = "✓"
			}
			s.WriteString(fmt.Sprintf("  %s [%s] %s (%s)\n", mark, a.DueDate.Format("2006-01-02"), a.Subject, a.Type))
		}
	}

	return s.String()
}

func (m Model) renderDealDetail() string {
	deal, ok := m.findDeal(m.selectedID)
	if !ok {
		return fmt.Sprintf("Deal %d not found", m.selectedID)
	}

	var s strings.Builder
	s.WriteString(m.renderField("Title", deal.Title))
	s.WriteString(m.renderField("Lead", m.leadName(deal.LeadID)))
	s.WriteString(m.renderField("Stage", models.StageName(deal.Stage)))
	s.WriteString(m.renderField("Value", fmt.Sprintf("$%.2f", deal.Value)))
	s.WriteString(m.renderField("Probability", fmt.Sprintf("%d%%", deal.Probability)))
	if !deal.ExpectedClose.IsZero() {
		s.WriteString(m.renderField("Expected Close", deal.ExpectedClose.Format("2006-01-02")))
	}
	s.WriteString(m.renderField("Assignee", deal.AssigneeName))

	if next := models.NextStages(deal.Stage); len(next) > 0 {
		names := make([]string, len(next))
		for i, st := range next {
			names[i] = models.StageName(st)
		}
		s.WriteString(m.renderField("Can Move To", strings.Join(names, ", ")))
	}

	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("ACTIVITIES"))
	s.WriteString("\n")
	for _, a := range m.allActs {
		if models.RefEquals(a.DealID, deal.ID) {
			s.WriteString(fmt.Sprintf("  • [%s] %s\n", a.DueDate.Format("2006-01-02"), a.Subject))
		}
	}

	return s.String()
}

func (m Model) renderActivityDetail() string {
	act, ok := m.findActivity(m.selectedID)
	if !ok {
		return fmt.Sprintf("Activity %d not found", m.selectedID)
	}

	var s strings.Builder
	s.WriteString(m.renderField("Subject", act.Subject))
	s.WriteString(m.renderField("Type", act.Type))
	s.WriteString(m.renderField("Due", act.DueDate.Format("2006-01-02")))
	s.WriteString(m.renderField("Completed", fmt.Sprintf("%t", act.Completed)))
	s.WriteString(m.renderField("Lead", m.leadName(act.LeadID)))
	if act.DealID != nil {
		if deal, ok := m.findDeal(*act.DealID); ok {
			s.WriteString(m.renderField("Deal", deal.Title))
		}
	}
	s.WriteString(m.renderField("Notes", act.CallNotes()))

	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fmt.Sprintf("%s %s\n",
		fieldLabelStyle.Render(label+":"),
		fieldValueStyle.Render(value))
}

func (m Model) renderDetailHelp() string {
	help := []string{
		"Esc: Back",
		"e: Edit",
		"d: Delete",
	}
	switch m.tab {
	case TabLeads:
		help = append(help, "g: Lead graph")
	case TabActivities:
		help = append(help, "c: Complete")
	}
	help = append(help, "q: Quit")
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
		m.err = nil
	case "e":
		m.editTab = m.tab
		m.initFormInputs()
		m.viewMode = ViewEdit
	case "d":
		m.viewMode = ViewConfirmDelete
	case "g":
		if m.tab == TabLeads || m.tab == TabPipeline {
			m.viewMode = ViewGraph
			m.graphDOT = ""
			return m, m.generateGraph()
		}
	case "c":
		if m.tab == TabActivities {
			return m, m.completeActivity(m.selectedID)
		}
	}

	return m, nil
}
