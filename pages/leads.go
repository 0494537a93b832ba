// ABOUTME: Leads page controller
// ABOUTME: Search and select filters over leads plus create, update and delete actions
package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/leadpipe/models"
)

type LeadFilter struct {
	Search string
	Status string
	Source string
}

type LeadsView struct {
	Leads []models.Lead `json:"leads"`
	Total int           `json:"total"`
	Error string        `json:"error,omitempty"`
}

// Summary renders the "Showing N of M" line.
func (v LeadsView) Summary() string {
	return fmt.Sprintf("Showing %d of %d leads", len(v.Leads), v.Total)
}

type Leads struct {
	store LeadStore
	toast Toaster
}

func NewLeads(store LeadStore, toast Toaster) *Leads {
	return &Leads{store: store, toast: toasterOrNop(toast)}
}

func (p *Leads) Load(ctx context.Context, f LeadFilter) LeadsView {
	leads, err := p.store.ListLeads(ctx)
	if err != nil {
		return LeadsView{Error: errMessage(err, "Failed to load leads")}
	}
	return LeadsView{Leads: FilterLeads(leads, f), Total: len(leads)}
}

// FilterLeads applies a case-insensitive search over name, email, company and
// product, then the status and source filters.
func FilterLeads(leads []models.Lead, f LeadFilter) []models.Lead {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Lead, 0, len(leads))
	for _, l := range leads {
		if term != "" &&
			!containsFold(l.FirstName, term) &&
			!containsFold(l.LastName, term) &&
			!containsFold(l.Email, term) &&
			!containsFold(l.Company, term) &&
			!containsFold(l.ProductName, term) {
			continue
		}
		if isFiltered(f.Status) && l.Status != f.Status {
			continue
		}
		if isFiltered(f.Source) && l.Source != f.Source {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (p *Leads) Create(ctx context.Context, draft models.Lead) (models.Lead, error) {
	lead, err := p.store.CreateLead(ctx, draft)
	if err != nil {
		p.toast.Error(errMessage(err, "Failed to save lead"))
		return models.Lead{}, err
	}
	p.toast.Success("Lead created successfully!")
	return lead, nil
}

func (p *Leads) Update(ctx context.Context, id int, patch models.LeadPatch) (models.Lead, error) {
	lead, err := p.store.UpdateLead(ctx, id, patch)
	if err != nil {
		p.toast.Error(errMessage(err, "Failed to save lead"))
		return models.Lead{}, err
	}
	p.toast.Success("Lead updated successfully!")
	return lead, nil
}

func (p *Leads) UpdateStatus(ctx context.Context, id int, status string) (models.Lead, error) {
	lead, err := p.store.UpdateLead(ctx, id, models.LeadPatch{Status: &status})
	if err != nil {
		p.toast.Error(errMessage(err, "Failed to update status"))
		return models.Lead{}, err
	}
	p.toast.Success(fmt.Sprintf("Lead status updated to %s", status))
	return lead, nil
}

func (p *Leads) Delete(ctx context.Context, id int) error {
	if _, err := p.store.DeleteLead(ctx, id); err != nil {
		p.toast.Error(errMessage(err, "Failed to delete lead"))
		return err
	}
	p.toast.Success("Lead deleted successfully!")
	return nil
}
