// ABOUTME: Reports page controller
// ABOUTME: Conversion, completion and win rates, weekly counts and breakdowns
package pages

import (
	"context"
	"sort"
	"time"

	"github.com/harperreed/leadpipe/models"
	"golang.org/x/sync/errgroup"
)

const topLeadsSize = 5

type WeekSummary struct {
	Leads      int     `json:"leads"`
	Activities int     `json:"activities"`
	Deals      int     `json:"deals"`
	DealsValue float64 `json:"dealsValue"`
}

type LeadValue struct {
	Lead      models.Lead `json:"lead"`
	DealValue float64     `json:"dealValue"`
	DealCount int         `json:"dealCount"`
}

type ReportsView struct {
	TotalLeads             int            `json:"totalLeads"`
	QualifiedLeads         int            `json:"qualifiedLeads"`
	ConversionRate         int            `json:"conversionRate"`
	TotalActivities        int            `json:"totalActivities"`
	CompletedActivities    int            `json:"completedActivities"`
	ActivityCompletionRate int            `json:"activityCompletionRate"`
	TotalDealsValue        float64        `json:"totalDealsValue"`
	WonValue               float64        `json:"wonValue"`
	PipelineValue          float64        `json:"pipelineValue"`
	WinRate                int            `json:"winRate"`
	ThisWeek               WeekSummary    `json:"thisWeek"`
	LeadSources            map[string]int `json:"leadSources"`
	DealStages             map[string]int `json:"dealStages"`
	ActivityTypes          map[string]int `json:"activityTypes"`
	TopLeads               []LeadValue    `json:"topLeads"`
	Error                  string         `json:"error,omitempty"`
}

type Reports struct {
	store Store
	now   func() time.Time
}

func NewReports(store Store, now func() time.Time) *Reports {
	return &Reports{store: store, now: clockOrNow(now)}
}

func (r *Reports) Load(ctx context.Context) ReportsView {
	var (
		leads      []models.Lead
		deals      []models.Deal
		activities []models.Activity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { leads, err = r.store.ListLeads(gctx); return })
	g.Go(func() (err error) { deals, err = r.store.ListDeals(gctx); return })
	g.Go(func() (err error) { activities, err = r.store.ListActivities(gctx); return })
	if err := g.Wait(); err != nil {
		return ReportsView{Error: errMessage(err, "Failed to load reports data")}
	}
	return BuildReports(leads, deals, activities, r.now())
}

// BuildReports computes every report metric. The win rate here is won over
// closed deals; the week runs Sunday through Saturday in now's location.
func BuildReports(leads []models.Lead, deals []models.Deal, activities []models.Activity, now time.Time) ReportsView {
	v := ReportsView{
		TotalLeads:      len(leads),
		TotalActivities: len(activities),
		LeadSources:     map[string]int{},
		DealStages:      map[string]int{},
		ActivityTypes:   map[string]int{},
	}
	weekStart, weekEnd := weekBounds(now)
	inWeek := func(t time.Time) bool {
		return !t.Before(weekStart) && t.Before(weekEnd)
	}

	for _, l := range leads {
		if l.Status == models.LeadStatusQualified {
			v.QualifiedLeads++
		}
		v.LeadSources[l.Source]++
		if inWeek(l.CreatedAt) {
			v.ThisWeek.Leads++
		}
	}
	v.ConversionRate = percent(v.QualifiedLeads, v.TotalLeads)

	for _, a := range activities {
		if a.Completed {
			v.CompletedActivities++
		}
		v.ActivityTypes[a.Type]++
		if inWeek(a.CreatedAt) {
			v.ThisWeek.Activities++
		}
	}
	v.ActivityCompletionRate = percent(v.CompletedActivities, v.TotalActivities)

	won, closed := 0, 0
	for _, d := range deals {
		v.DealStages[d.Stage]++
		if d.IsClosed() {
			closed++
		}
		if d.Stage == models.StageClosedWon {
			won++
		}
		if inWeek(d.CreatedAt) {
			v.ThisWeek.Deals++
			v.ThisWeek.DealsValue += d.Value
		}
	}
	v.TotalDealsValue, v.WonValue, v.PipelineValue = dealValues(deals)
	v.WinRate = percent(won, closed)
	v.TopLeads = topLeadsByDealValue(leads, deals)

	return v
}

func weekBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -int(now.Weekday()))
	return start, start.AddDate(0, 0, 7)
}

func topLeadsByDealValue(leads []models.Lead, deals []models.Deal) []LeadValue {
	out := make([]LeadValue, 0, len(leads))
	for _, l := range leads {
		lv := LeadValue{Lead: l}
		for _, d := range deals {
			if models.RefEquals(d.LeadID, l.ID) {
				lv.DealValue += d.Value
				lv.DealCount++
			}
		}
		out = append(out, lv)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DealValue > out[j].DealValue })
	return firstN(out, topLeadsSize)
}
