// ABOUTME: Lead collection operations
// ABOUTME: Handles lead CRUD and last-contact tracking
package store

import (
	"context"
	"time"

	"github.com/harperreed/leadpipe/models"
)

// ListLeads returns a snapshot of every lead in storage order.
func (s *Store) ListLeads(ctx context.Context) ([]models.Lead, error) {
	s.leadsMu.RLock()
	out := make([]models.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		out = append(out, l.Clone())
	}
	s.leadsMu.RUnlock()

	if err := s.wait(ctx, OpList); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetLead(ctx context.Context, id int) (models.Lead, error) {
	s.leadsMu.RLock()
	i := s.leadIndex(id)
	var lead models.Lead
	if i >= 0 {
		lead = s.leads[i].Clone()
	}
	s.leadsMu.RUnlock()

	if i < 0 {
		return models.Lead{}, notFound("Lead", id)
	}
	if err := s.wait(ctx, OpGet); err != nil {
		return models.Lead{}, err
	}
	return lead, nil
}

// CreateLead stores a new lead built from draft. Id, createdAt and
// lastContact are assigned here; status and source default to new/website.
func (s *Store) CreateLead(ctx context.Context, draft models.Lead) (models.Lead, error) {
	lead := draft.Clone()
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}
	if lead.Source == "" {
		lead.Source = models.SourceWebsite
	}
	lead.CreatedAt = s.now()
	lead.LastContact = nil

	s.leadsMu.Lock()
	maxID := 0
	for _, l := range s.leads {
		maxID = max(maxID, l.ID)
	}
	lead.ID = nextID(&s.leadsHigh, maxID)
	s.leads = append(s.leads, lead)
	out := lead.Clone()
	s.leadsMu.Unlock()

	s.logger.Debug("lead created", "id", out.ID, "source", out.Source)
	if err := s.wait(ctx, OpCreate); err != nil {
		return models.Lead{}, err
	}
	return out, nil
}

func (s *Store) UpdateLead(ctx context.Context, id int, patch models.LeadPatch) (models.Lead, error) {
	s.leadsMu.Lock()
	i := s.leadIndex(id)
	if i < 0 {
		s.leadsMu.Unlock()
		return models.Lead{}, notFound("Lead", id)
	}
	patch.Apply(&s.leads[i])
	out := s.leads[i].Clone()
	s.leadsMu.Unlock()

	if err := s.wait(ctx, OpUpdate); err != nil {
		return models.Lead{}, err
	}
	return out, nil
}

// TouchLead records a contact with the lead at the given time.
func (s *Store) TouchLead(ctx context.Context, id int, at time.Time) (models.Lead, error) {
	return s.UpdateLead(ctx, id, models.LeadPatch{LastContact: &at})
}

// DeleteLead removes a lead and returns it. Deals and activities that
// reference it keep their dangling leadId.
func (s *Store) DeleteLead(ctx context.Context, id int) (models.Lead, error) {
	s.leadsMu.Lock()
	i := s.leadIndex(id)
	if i < 0 {
		s.leadsMu.Unlock()
		return models.Lead{}, notFound("Lead", id)
	}
	removed := s.leads[i]
	s.leads = append(s.leads[:i], s.leads[i+1:]...)
	s.leadsMu.Unlock()

	if err := s.wait(ctx, OpDelete); err != nil {
		return models.Lead{}, err
	}
	return removed, nil
}

// caller holds leadsMu
func (s *Store) leadIndex(id int) int {
	for i := range s.leads {
		if s.leads[i].ID == id {
			return i
		}
	}
	return -1
}
