// ABOUTME: Kanban pipeline board for the TUI
// ABOUTME: One column per stage; moves follow the forward stage edges only
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/viz"
)

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeColumnStyle = columnStyle.
				BorderForeground(lipgloss.Color("170"))

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedCardStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("170"))
)

func (m Model) renderBoard() string {
	if m.dealsView.Error != "" {
		return errorStyle.Render(m.dealsView.Error)
	}
	width := max((m.width-len(m.dealsView.Columns)*4)/max(len(m.dealsView.Columns), 1), 16)

	var cols []string
	for i, col := range m.dealsView.Columns {
		var s strings.Builder
		s.WriteString(lipgloss.NewStyle().Bold(true).Render(col.Name))
		s.WriteString(fmt.Sprintf("\n%d · %s\n\n", col.Count, money(col.Value)))
		for j, deal := range col.Deals {
			card := fmt.Sprintf("%s\n%s", truncate(deal.Title, width), money(deal.Value))
			if i == m.boardColumn && j == m.selectedRow {
				s.WriteString(selectedCardStyle.Render("▸ " + card))
			} else {
				s.WriteString(cardStyle.Render("  " + card))
			}
			s.WriteString("\n")
		}

		style := columnStyle
		if i == m.boardColumn {
			style = activeColumnStyle
		}
		cols = append(cols, style.Width(width).Render(s.String()))
	}

	board := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	return board + fmt.Sprintf("\nPipeline: %s open of %s · win rate %d%%",
		money(m.dealsView.PipelineValue), money(m.dealsView.TotalValue), m.dealsView.WinRate)
}

func (m Model) selectedDeal() (models.Deal, bool) {
	if m.boardColumn >= len(m.dealsView.Columns) {
		return models.Deal{}, false
	}
	deals := m.dealsView.Columns[m.boardColumn].Deals
	if m.selectedRow >= len(deals) {
		return models.Deal{}, false
	}
	return deals[m.selectedRow], true
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "r":
		return m.handleListKeys(msg)
	case "left", "h":
		if m.boardColumn > 0 {
			m.boardColumn--
			m.selectedRow = 0
		}
	case "right", "l":
		if m.boardColumn < len(m.dealsView.Columns)-1 {
			m.boardColumn++
			m.selectedRow = 0
		}
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < m.rowCount()-1 {
			m.selectedRow++
		}
	case "enter":
		if deal, ok := m.selectedDeal(); ok {
			m.selectedID = deal.ID
			m.viewMode = ViewDetail
		}
	case "n":
		m.selectedID = 0
		m.editTab = TabPipeline
		m.initFormInputs()
		m.viewMode = ViewEdit
		return m, textinput.Blink
	case "g":
		m.selectedID = 0
		m.viewMode = ViewGraph
		m.graphDOT = ""
		return m, m.generateGraph()
	case "m":
		if deal, ok := m.selectedDeal(); ok {
			next := models.NextStages(deal.Stage)
			// Negotiation branches; w and x pick the outcome.
			if len(next) == 1 {
				return m, m.moveDeal(deal.ID, next[0])
			}
		}
	case "w":
		if deal, ok := m.selectedDeal(); ok {
			return m, m.moveDeal(deal.ID, models.StageClosedWon)
		}
	case "x":
		if deal, ok := m.selectedDeal(); ok {
			return m, m.moveDeal(deal.ID, models.StageClosedLost)
		}
	}
	return m, nil
}

func (m Model) moveDeal(id int, stage string) tea.Cmd {
	deals := m.deals
	return m.run(func(ctx context.Context) error {
		_, err := deals.MoveStage(ctx, id, stage)
		return err
	})
}

func money(v float64) string {
	return viz.Money(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:max(n-1, 1)]) + "…"
}
