// ABOUTME: Dashboard page controller
// ABOUTME: Loads every collection and derives headline metrics and activity lists
package pages

import (
	"context"
	"sort"
	"time"

	"github.com/harperreed/leadpipe/models"
	"golang.org/x/sync/errgroup"
)

const dashboardListSize = 5

type StageSummary struct {
	Stage string  `json:"stage"`
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

type DashboardView struct {
	TotalLeads     int               `json:"totalLeads"`
	QualifiedLeads int               `json:"qualifiedLeads"`
	DueToday       int               `json:"dueToday"`
	Overdue        int               `json:"overdue"`
	TotalDealValue float64           `json:"totalDealValue"`
	WonValue       float64           `json:"wonValue"`
	PipelineValue  float64           `json:"pipelineValue"`
	Recent         []models.Activity `json:"recentActivities"`
	Upcoming       []models.Activity `json:"upcomingActivities"`
	Stages         []StageSummary    `json:"stages"`
	Error          string            `json:"error,omitempty"`
}

type Dashboard struct {
	store Store
	now   func() time.Time
}

func NewDashboard(store Store, now func() time.Time) *Dashboard {
	return &Dashboard{store: store, now: clockOrNow(now)}
}

// Load fetches all three collections concurrently. A failure yields an empty
// view carrying the error text.
func (d *Dashboard) Load(ctx context.Context) DashboardView {
	var (
		leads      []models.Lead
		deals      []models.Deal
		activities []models.Activity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { leads, err = d.store.ListLeads(gctx); return })
	g.Go(func() (err error) { deals, err = d.store.ListDeals(gctx); return })
	g.Go(func() (err error) { activities, err = d.store.ListActivities(gctx); return })
	if err := g.Wait(); err != nil {
		return DashboardView{Error: errMessage(err, "Failed to load dashboard data")}
	}
	return BuildDashboard(leads, deals, activities, d.now())
}

// BuildDashboard derives the dashboard from already loaded collections.
func BuildDashboard(leads []models.Lead, deals []models.Deal, activities []models.Activity, now time.Time) DashboardView {
	v := DashboardView{TotalLeads: len(leads)}
	for _, l := range leads {
		if l.Status == models.LeadStatusQualified {
			v.QualifiedLeads++
		}
	}

	for _, a := range activities {
		if a.Completed {
			continue
		}
		if sameDay(a.DueDate.In(now.Location()), now) {
			v.DueToday++
		}
		if now.After(a.DueDate) {
			v.Overdue++
		}
	}

	v.TotalDealValue, v.WonValue, v.PipelineValue = dealValues(deals)
	v.Stages = stageSummaries(deals)

	recent := append([]models.Activity(nil), activities...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	v.Recent = firstN(recent, dashboardListSize)

	var upcoming []models.Activity
	for _, a := range activities {
		if !a.Completed {
			upcoming = append(upcoming, a)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].DueDate.Before(upcoming[j].DueDate) })
	v.Upcoming = firstN(upcoming, dashboardListSize)

	return v
}

// dealValues returns the total, won and open pipeline value of deals.
func dealValues(deals []models.Deal) (total, won, pipeline float64) {
	for _, d := range deals {
		total += d.Value
		switch {
		case d.Stage == models.StageClosedWon:
			won += d.Value
		case !d.IsClosed():
			pipeline += d.Value
		}
	}
	return total, won, pipeline
}

func stageSummaries(deals []models.Deal) []StageSummary {
	out := make([]StageSummary, 0, len(models.Stages))
	for _, stage := range models.Stages {
		s := StageSummary{Stage: stage, Name: models.StageName(stage)}
		for _, d := range deals {
			if d.Stage == stage {
				s.Count++
				s.Value += d.Value
			}
		}
		out = append(out, s)
	}
	return out
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
