package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/viz"
)

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("LEADPIPE CRM"))
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n")
	if status := m.renderChatStatus(); status != "" {
		s.WriteString(status)
		s.WriteString("\n")
	}
	s.WriteString("\n")

	if m.searching {
		s.WriteString(m.searchInput.View())
		s.WriteString("\n\n")
	} else if m.searchQuery != "" {
		s.WriteString(helpStyle.Render(fmt.Sprintf("Filter: %q (esc clears)", m.searchQuery)))
		s.WriteString("\n\n")
	}

	if m.err != nil {
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n\n")
	}

	switch m.tab {
	case TabDashboard:
		s.WriteString(viz.RenderDashboard(m.dashView))
	case TabLeads:
		s.WriteString(m.renderLeadsTable())
		s.WriteString("\n" + m.leadsView.Summary())
	case TabPipeline:
		s.WriteString(m.renderBoard())
		s.WriteString("\n" + m.dealsView.Summary())
	case TabActivities:
		s.WriteString(m.renderActivitiesTable())
		s.WriteString("\n" + m.actsView.Summary())
	case TabNotifications:
		s.WriteString(m.renderNotificationsTable())
	}
	s.WriteString("\n")

	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	var rendered []string

	for i, tab := range tabNames {
		if Tab(i) == TabNotifications && m.bus != nil {
			if unread := m.bus.Stats().Unread; unread > 0 {
				tab = fmt.Sprintf("%s (%d)", tab, unread)
			}
		}
		if Tab(i) == m.tab {
			rendered = append(rendered, tabActiveStyle.Render(tab))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// renderChatStatus shows the chat assistant state and any unread visitor messages.
func (m Model) renderChatStatus() string {
	if m.chat == nil {
		return ""
	}
	var status string
	switch {
	case m.chat.Disabled():
		status = "Chat: off"
	case !m.chat.Ready():
		status = "Chat: loading..."
	case m.chat.IsOpen():
		status = "Chat: open"
	default:
		status = "Chat: closed"
		if unread := m.chat.Unread(); unread > 0 {
			status = fmt.Sprintf("Chat: closed • %d unread", unread)
		}
	}
	return helpStyle.Render(status)
}

func (m Model) newTable(columns []table.Column, rows []table.Row) string {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-14, 5)),
	)
	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}
	return t.View()
}

func (m Model) renderLeadsTable() string {
	if m.leadsView.Error != "" {
		return errorStyle.Render(m.leadsView.Error)
	}
	columns := []table.Column{
		{Title: "Name", Width: 22},
		{Title: "Email", Width: 30},
		{Title: "Company", Width: 20},
		{Title: "Status", Width: 10},
		{Title: "Source", Width: 12},
	}

	var rows []table.Row
	for _, lead := range m.leadsView.Leads {
		rows = append(rows, table.Row{lead.FullName(), lead.Email, lead.Company, lead.Status, lead.Source})
	}
	return m.newTable(columns, rows)
}

func (m Model) renderActivitiesTable() string {
	if m.actsView.Error != "" {
		return errorStyle.Render(m.actsView.Error)
	}
	columns := []table.Column{
		{Title: "Done", Width: 4},
		{Title: "Type", Width: 9},
		{Title: "Subject", Width: 36},
		{Title: "Due", Width: 10},
		{Title: "Lead", Width: 20},
	}

	var rows []table.Row
	for _, a := range m.actsView.Activities {
		done := ""
		if a.Completed {
			done = "✓"
		}
		rows = append(rows, table.Row{done, a.Type, a.Subject, a.DueDate.Format("2006-01-02"), m.leadName(a.LeadID)})
	}
	return m.newTable(columns, rows)
}

func (m Model) notifications() []models.Notification {
	if m.bus == nil {
		return nil
	}
	return m.bus.List()
}

func (m Model) renderNotificationsTable() string {
	list := m.notifications()
	if len(list) == 0 {
		return "No notifications"
	}
	columns := []table.Column{
		{Title: "", Width: 1},
		{Title: "Type", Width: 8},
		{Title: "Title", Width: 24},
		{Title: "Message", Width: 40},
		{Title: "Time", Width: 8},
	}

	var rows []table.Row
	for _, n := range list {
		unread := ""
		if !n.Read {
			unread = "•"
		}
		rows = append(rows, table.Row{unread, n.Type, n.Title, n.Message, n.Timestamp.Format("15:04:05")})
	}
	return m.newTable(columns, rows)
}

func (m Model) leadName(id *int) string {
	if id == nil {
		return ""
	}
	for _, l := range m.allLeads {
		if l.ID == *id {
			return l.FullName()
		}
	}
	return fmt.Sprintf("#%d", *id)
}

func (m Model) renderListHelp() string {
	help := []string{"Tab: Switch tabs", "r: Refresh"}
	switch m.tab {
	case TabLeads, TabActivities:
		help = append(help, "↑/↓: Navigate", "Enter: Details", "/: Search", "n: New")
		if m.tab == TabActivities {
			help = append(help, "c: Complete")
		}
	case TabPipeline:
		help = append(help, "←/→: Column", "↑/↓: Deal", "m: Advance", "w/x: Won/Lost", "Enter: Details", "n: New", "g: Graph")
	case TabNotifications:
		help = append(help, "Enter: Mark read", "a: Mark all read", "d: Dismiss", "D: Clear dismissed")
	}
	if m.chat != nil {
		help = append(help, "t: Chat")
	}
	help = append(help, "q: Quit")
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) rowCount() int {
	switch m.tab {
	case TabLeads:
		return len(m.leadsView.Leads)
	case TabActivities:
		return len(m.actsView.Activities)
	case TabNotifications:
		return len(m.notifications())
	case TabPipeline:
		if m.boardColumn < len(m.dealsView.Columns) {
			return len(m.dealsView.Columns[m.boardColumn].Deals)
		}
	}
	return 0
}

func (m *Model) clampSelection() {
	if n := len(m.dealsView.Columns); n > 0 && m.boardColumn >= n {
		m.boardColumn = n - 1
	}
	if rows := m.rowCount(); m.selectedRow >= rows {
		m.selectedRow = max(rows-1, 0)
	}
}

func (m Model) switchTab(tab Tab) Model {
	m.tab = tab
	m.selectedRow = 0
	m.boardColumn = 0
	m.err = nil
	if m.searchQuery != "" {
		m.searchQuery = ""
		m.searchInput.SetValue("")
		m.rebuildViews()
	}
	return m
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < m.rowCount()-1 {
			m.selectedRow++
		}
	case "tab":
		m = m.switchTab((m.tab + 1) % Tab(len(tabNames)))
	case "shift+tab":
		m = m.switchTab((m.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames)))
	case "r":
		m.loading = true
		return m, m.load()
	case "esc":
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.searchInput.SetValue("")
			m.rebuildViews()
		}
	case "/":
		if m.tab == TabLeads || m.tab == TabActivities {
			m.searching = true
			m.searchInput.SetValue(m.searchQuery)
			return m, m.searchInput.Focus()
		}
	}

	switch m.tab {
	case TabLeads, TabActivities:
		return m.handleEntityKeys(msg)
	case TabNotifications:
		return m.handleNotificationKeys(msg)
	}
	return m, nil
}

func (m Model) handleEntityKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if id := m.getSelectedID(); id > 0 {
			m.selectedID = id
			m.viewMode = ViewDetail
		}
	case "n":
		m.selectedID = 0
		m.editTab = m.tab
		m.initFormInputs()
		m.viewMode = ViewEdit
		return m, textinput.Blink
	case "c":
		if m.tab == TabActivities {
			if id := m.getSelectedID(); id > 0 {
				return m, m.completeActivity(id)
			}
		}
	}
	return m, nil
}

func (m Model) completeActivity(id int) tea.Cmd {
	acts := m.activities
	return m.run(func(ctx context.Context) error {
		_, err := acts.MarkComplete(ctx, id)
		return err
	})
}

func (m Model) handleNotificationKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.bus == nil {
		return m, nil
	}
	list := m.notifications()
	switch msg.String() {
	case "enter":
		if m.selectedRow < len(list) {
			m.bus.MarkAsRead(list[m.selectedRow].ID)
		}
	case "a":
		m.bus.MarkAllAsRead()
	case "d":
		if m.selectedRow < len(list) {
			m.bus.Dismiss(list[m.selectedRow].ID)
		}
	case "D":
		m.bus.ClearDismissed()
		m.clampSelection()
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		m.searchQuery = strings.TrimSpace(m.searchInput.Value())
		m.selectedRow = 0
		m.rebuildViews()
		return m, nil
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// getSelectedID returns the id under the cursor on the current tab, or 0.
func (m Model) getSelectedID() int {
	switch m.tab {
	case TabLeads:
		if m.selectedRow < len(m.leadsView.Leads) {
			return m.leadsView.Leads[m.selectedRow].ID
		}
	case TabActivities:
		if m.selectedRow < len(m.actsView.Activities) {
			return m.actsView.Activities[m.selectedRow].ID
		}
	case TabPipeline:
		if deal, ok := m.selectedDeal(); ok {
			return deal.ID
		}
	}
	return 0
}
