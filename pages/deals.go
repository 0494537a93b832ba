// ABOUTME: Deals page controller
// ABOUTME: Pipeline columns, deal filters, totals and forward-only stage moves
package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harperreed/leadpipe/models"
)

type DealFilter struct {
	Search string
	Stage  string
	// AssigneeID of 0 means every assignee.
	AssigneeID int
}

type Assignee struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type PipelineColumn struct {
	StageSummary
	Deals []models.Deal `json:"deals"`
}

type DealsView struct {
	Deals         []models.Deal    `json:"deals"`
	Total         int              `json:"total"`
	Columns       []PipelineColumn `json:"columns"`
	Assignees     []Assignee       `json:"assignees"`
	TotalValue    float64          `json:"totalValue"`
	PipelineValue float64          `json:"pipelineValue"`
	// WinRate is won deals over every deal, as a rounded percentage.
	WinRate int    `json:"winRate"`
	Error   string `json:"error,omitempty"`
}

func (v DealsView) Summary() string {
	return fmt.Sprintf("Showing %d of %d deals", len(v.Deals), v.Total)
}

type Deals struct {
	store DealStore
	toast Toaster
}

func NewDeals(store DealStore, toast Toaster) *Deals {
	return &Deals{store: store, toast: toasterOrNop(toast)}
}

func (p *Deals) Load(ctx context.Context, f DealFilter) DealsView {
	deals, err := p.store.ListDeals(ctx)
	if err != nil {
		return DealsView{Error: errMessage(err, "Failed to load deals")}
	}
	return BuildDealsView(deals, f)
}

// BuildDealsView filters deals and derives the pipeline board. Totals cover
// the filtered deals; the win rate and assignee list cover every deal.
func BuildDealsView(deals []models.Deal, f DealFilter) DealsView {
	filtered := FilterDeals(deals, f)
	v := DealsView{
		Deals:     filtered,
		Total:     len(deals),
		Assignees: DistinctAssignees(deals),
	}
	v.TotalValue, _, v.PipelineValue = dealValues(filtered)

	won := 0
	for _, d := range deals {
		if d.Stage == models.StageClosedWon {
			won++
		}
	}
	v.WinRate = percent(won, len(deals))

	for _, s := range stageSummaries(filtered) {
		col := PipelineColumn{StageSummary: s, Deals: []models.Deal{}}
		for _, d := range filtered {
			if d.Stage == s.Stage {
				col.Deals = append(col.Deals, d)
			}
		}
		v.Columns = append(v.Columns, col)
	}
	return v
}

func FilterDeals(deals []models.Deal, f DealFilter) []models.Deal {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if term != "" && !containsFold(d.Title, term) {
			continue
		}
		if isFiltered(f.Stage) && d.Stage != f.Stage {
			continue
		}
		if f.AssigneeID != 0 && !models.RefEquals(d.AssigneeID, f.AssigneeID) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// DistinctAssignees lists assignees with both an id and a name, first seen first.
func DistinctAssignees(deals []models.Deal) []Assignee {
	seen := map[int]bool{}
	var out []Assignee
	for _, d := range deals {
		if d.AssigneeID == nil || d.AssigneeName == "" || seen[*d.AssigneeID] {
			continue
		}
		seen[*d.AssigneeID] = true
		out = append(out, Assignee{ID: *d.AssigneeID, Name: d.AssigneeName})
	}
	return out
}

func (p *Deals) Create(ctx context.Context, draft models.Deal) (models.Deal, error) {
	deal, err := p.store.CreateDeal(ctx, draft)
	if err != nil {
		p.toast.Error(errMessage(err, "Failed to save deal"))
		return models.Deal{}, err
	}
	p.toast.Success("Deal created successfully!")
	return deal, nil
}

func (p *Deals) Update(ctx context.Context, id int, patch models.DealPatch) (models.Deal, error) {
	deal, err := p.store.UpdateDeal(ctx, id, patch)
	if err != nil {
		p.toast.Error(errMessage(err, "Failed to save deal"))
		return models.Deal{}, err
	}
	p.toast.Success("Deal updated successfully!")
	return deal, nil
}

func (p *Deals) Delete(ctx context.Context, id int) error {
	if _, err := p.store.DeleteDeal(ctx, id); err != nil {
		p.toast.Error(errMessage(err, "Failed to delete deal"))
		return err
	}
	p.toast.Success("Deal deleted successfully!")
	return nil
}

// MoveStage advances a deal along a forward pipeline edge. The edge is
// checked against the stored stage in the same critical section as the move.
func (p *Deals) MoveStage(ctx context.Context, id int, stage string) (models.Deal, error) {
	deal, err := p.store.MoveStageChecked(ctx, id, stage, forwardOnly)
	if err != nil {
		var te *TransitionError
		if errors.As(err, &te) {
			p.toast.Error(fmt.Sprintf("Cannot move deal from %s to %s", models.StageName(te.From), models.StageName(te.To)))
			return models.Deal{}, err
		}
		p.toast.Error(errMessage(err, "Failed to move deal"))
		return models.Deal{}, err
	}
	p.toast.Success(fmt.Sprintf("Deal moved to %s", models.StageName(stage)))
	return deal, nil
}
