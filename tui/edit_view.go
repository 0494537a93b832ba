package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadpipe/models"
)

const dateLayout = "2006-01-02"

type formField struct {
	placeholder string
	limit       int
	value       string
}

func (m Model) renderEditView() string {
	var s strings.Builder

	if m.selectedID == 0 {
		s.WriteString(titleStyle.Render("NEW " + m.entityTypeName()))
	} else {
		s.WriteString(titleStyle.Render(fmt.Sprintf("EDIT %s #%d", m.entityTypeName(), m.selectedID)))
	}
	s.WriteString("\n\n")

	for i, input := range m.formInputs {
		if i == m.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.renderEditHelp())

	return s.String()
}

func (m Model) entityTypeName() string {
	switch m.editTab {
	case TabLeads:
		return "LEAD"
	case TabPipeline:
		return "DEAL"
	case TabActivities:
		return "ACTIVITY"
	}
	return ""
}

func (m Model) renderEditHelp() string {
	help := []string{
		"Tab: Next field",
		"Enter: Save",
		"Esc: Cancel",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.err = nil
		if m.selectedID != 0 {
			m.viewMode = ViewDetail
		} else {
			m.viewMode = ViewList
		}
		return m, nil
	case "tab", "down":
		m.focusIndex = (m.focusIndex + 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "shift+tab", "up":
		m.focusIndex = (m.focusIndex + len(m.formInputs) - 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "enter":
		op, err := m.saveEntity()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		if m.selectedID != 0 {
			m.viewMode = ViewDetail
		} else {
			m.viewMode = ViewList
		}
		return m, m.run(op)
	}

	var cmd tea.Cmd
	m.formInputs[m.focusIndex], cmd = m.formInputs[m.focusIndex].Update(msg)
	return m, cmd
}

func (m *Model) initFormInputs() {
	var fields []formField
	switch m.editTab {
	case TabLeads:
		fields = m.leadFields()
	case TabPipeline:
		fields = m.dealFields()
	case TabActivities:
		fields = m.activityFields()
	}

	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = f.placeholder
		inputs[i].CharLimit = f.limit
		inputs[i].SetValue(f.value)
	}

	m.formInputs = inputs
	m.focusIndex = 0
	m.err = nil
	m.updateFormFocus()
}

func (m Model) leadFields() []formField {
	fields := []formField{
		{placeholder: "First name", limit: 50},
		{placeholder: "Last name", limit: 50},
		{placeholder: "Email", limit: 100},
		{placeholder: "Phone", limit: 30},
		{placeholder: "Company", limit: 100},
		{placeholder: "Product", limit: 100},
		{placeholder: "Status (" + strings.Join(models.LeadStatuses, "/") + ")", limit: 20, value: models.LeadStatusNew},
		{placeholder: "Source (" + strings.Join(models.LeadSources, "/") + ")", limit: 20, value: models.SourceManual},
	}
	if lead, ok := m.findLead(m.selectedID); ok {
		for i, v := range []string{lead.FirstName, lead.LastName, lead.Email, lead.Phone, lead.Company, lead.ProductName, lead.Status, lead.Source} {
			fields[i].value = v
		}
	}
	return fields
}

func (m Model) dealFields() []formField {
	fields := []formField{
		{placeholder: "Title", limit: 100},
		{placeholder: "Value", limit: 20},
		{placeholder: "Stage (" + strings.Join(models.Stages, "/") + ")", limit: 20, value: models.StageProspecting},
		{placeholder: "Lead ID (optional)", limit: 10},
		{placeholder: "Expected close (YYYY-MM-DD)", limit: 10},
		{placeholder: "Assignee", limit: 50},
	}
	if deal, ok := m.findDeal(m.selectedID); ok {
		fields[0].value = deal.Title
		fields[1].value = strconv.FormatFloat(deal.Value, 'f', -1, 64)
		fields[2].value = deal.Stage
		fields[3].value = refString(deal.LeadID)
		if !deal.ExpectedClose.IsZero() {
			fields[4].value = deal.ExpectedClose.Format(dateLayout)
		}
		fields[5].value = deal.AssigneeName
	}
	return fields
}

func (m Model) activityFields() []formField {
	fields := []formField{
		{placeholder: "Type (" + strings.Join(models.ActivityTypes, "/") + ")", limit: 20, value: models.ActivityTask},
		{placeholder: "Subject", limit: 200},
		{placeholder: "Notes", limit: 500},
		{placeholder: "Lead ID (optional)", limit: 10},
		{placeholder: "Due (YYYY-MM-DD, default today)", limit: 10},
	}
	if act, ok := m.findActivity(m.selectedID); ok {
		fields[0].value = act.Type
		fields[1].value = act.Subject
		fields[2].value = act.Notes
		fields[3].value = refString(act.LeadID)
		fields[4].value = act.DueDate.Format(dateLayout)
	}
	return fields
}

func (m *Model) updateFormFocus() {
	for i := range m.formInputs {
		if i == m.focusIndex {
			m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
}

func (m Model) value(i int) string {
	return strings.TrimSpace(m.formInputs[i].Value())
}

// saveEntity validates the form and returns the store operation to run.
func (m Model) saveEntity() (func(ctx context.Context) error, error) {
	switch m.editTab {
	case TabLeads:
		return m.saveLead()
	case TabPipeline:
		return m.saveDeal()
	case TabActivities:
		return m.saveActivity()
	}
	return nil, fmt.Errorf("nothing to save")
}

func (m Model) saveLead() (func(ctx context.Context) error, error) {
	first, last, email := m.value(0), m.value(1), m.value(2)
	status, source := m.value(6), m.value(7)
	if first == "" || last == "" || email == "" {
		return nil, fmt.Errorf("first name, last name and email are required")
	}
	if !models.Contains(models.LeadStatuses, status) {
		return nil, fmt.Errorf("invalid status: %s", status)
	}
	if !models.Contains(models.LeadSources, source) {
		return nil, fmt.Errorf("invalid source: %s", source)
	}
	phone, company, product := m.value(3), m.value(4), m.value(5)

	leads, id := m.leads, m.selectedID
	if id == 0 {
		draft := models.Lead{FirstName: first, LastName: last, Email: email, Phone: phone,
			Company: company, ProductName: product, Status: status, Source: source}
		return func(ctx context.Context) error {
			_, err := leads.Create(ctx, draft)
			return err
		}, nil
	}
	patch := models.LeadPatch{FirstName: &first, LastName: &last, Email: &email, Phone: &phone,
		Company: &company, ProductName: &product, Status: &status, Source: &source}
	return func(ctx context.Context) error {
		_, err := leads.Update(ctx, id, patch)
		return err
	}, nil
}

func (m Model) saveDeal() (func(ctx context.Context) error, error) {
	title, stage, assignee := m.value(0), m.value(2), m.value(5)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	value, err := strconv.ParseFloat(m.value(1), 64)
	if err != nil || value < 0 {
		return nil, fmt.Errorf("value must be a non-negative number")
	}
	if !models.IsValidStage(stage) {
		return nil, fmt.Errorf("invalid stage: %s", stage)
	}
	leadID, err := parseRef(m.value(3))
	if err != nil {
		return nil, err
	}
	closeDate, err := parseDate(m.value(4))
	if err != nil {
		return nil, err
	}

	deals, id := m.deals, m.selectedID
	if id == 0 {
		draft := models.Deal{Title: title, Value: value, Stage: stage, LeadID: leadID, AssigneeName: assignee}
		draft.Probability, _ = models.StageProbability(stage)
		if closeDate != nil {
			draft.ExpectedClose = *closeDate
		}
		return func(ctx context.Context) error {
			_, err := deals.Create(ctx, draft)
			return err
		}, nil
	}

	current, _ := m.findDeal(id)
	clearLead := 0
	patch := models.DealPatch{Title: &title, Value: &value, AssigneeName: &assignee, ExpectedClose: closeDate, LeadID: leadID}
	if leadID == nil {
		patch.LeadID = &clearLead
	}
	return func(ctx context.Context) error {
		if _, err := deals.Update(ctx, id, patch); err != nil {
			return err
		}
		// Stage edits follow the pipeline edges.
		if stage != current.Stage {
			_, err := deals.MoveStage(ctx, id, stage)
			return err
		}
		return nil
	}, nil
}

func (m Model) saveActivity() (func(ctx context.Context) error, error) {
	typ, subject, notes := m.value(0), m.value(1), m.value(2)
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if !models.Contains(models.ActivityTypes, typ) {
		return nil, fmt.Errorf("invalid type: %s", typ)
	}
	leadID, err := parseRef(m.value(3))
	if err != nil {
		return nil, err
	}
	due, err := parseDate(m.value(4))
	if err != nil {
		return nil, err
	}

	acts, id := m.activities, m.selectedID
	if id == 0 {
		draft := models.Activity{Type: typ, Subject: subject, Notes: notes, LeadID: leadID}
		if due != nil {
			draft.DueDate = *due
		}
		return func(ctx context.Context) error {
			_, err := acts.Create(ctx, draft)
			return err
		}, nil
	}

	clearLead := 0
	patch := models.ActivityPatch{Type: &typ, Subject: &subject, Notes: &notes, LeadID: leadID, DueDate: due}
	if leadID == nil {
		patch.LeadID = &clearLead
	}
	return func(ctx context.Context) error {
		_, err := acts.Update(ctx, id, patch)
		return err
	}, nil
}

func parseRef(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid id: %s", s)
	}
	return models.NormalizeRef(&id), nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return &t, nil
}

func refString(ref *int) string {
	if ref == nil {
		return ""
	}
	return strconv.Itoa(*ref)
}
