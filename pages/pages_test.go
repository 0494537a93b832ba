// ABOUTME: Tests for the page controllers
// ABOUTME: Covers filters, sorting, metrics, toasts and follow-up handling
package pages

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toast struct {
	kind string
	msg  string
}

type recordingToaster struct {
	toasts []toast
}

func (r *recordingToaster) Success(msg string) { r.toasts = append(r.toasts, toast{"success", msg}) }
func (r *recordingToaster) Info(msg string)    { r.toasts = append(r.toasts, toast{"info", msg}) }
func (r *recordingToaster) Warning(msg string) { r.toasts = append(r.toasts, toast{"warning", msg}) }
func (r *recordingToaster) Error(msg string)   { r.toasts = append(r.toasts, toast{"error", msg}) }

var fixedNow = time.Date(2024, 2, 7, 12, 0, 0, 0, time.UTC) // a Wednesday

func day(offset int) time.Time {
	return fixedNow.AddDate(0, 0, offset)
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(store.Options{
		Latency: store.NoLatency,
		Now:     func() time.Time { return fixedNow },
		Fixtures: &store.Fixtures{
			Leads: []models.Lead{
				{ID: 1, FirstName: "Sarah", LastName: "Johnson", Email: "sarah@techcorp.com", Company: "TechCorp", ProductName: "Enterprise Suite", Status: models.LeadStatusQualified, Source: models.SourceWebsite, CreatedAt: day(-1)},
				{ID: 2, FirstName: "Michael", LastName: "Chen", Email: "m.chen@innovate.com", Company: "Innovate", ProductName: "Analytics", Status: models.LeadStatusContacted, Source: models.SourceReferral, CreatedAt: day(-30)},
				{ID: 3, FirstName: "Emily", LastName: "Rodriguez", Email: "emily@global.com", Company: "Global Ventures", Status: models.LeadStatusNew, Source: models.SourceEmail, CreatedAt: day(-2)},
				{ID: 4, FirstName: "David", LastName: "Kim", Email: "dkim@startup.io", Company: "StartupXYZ", Status: models.LeadStatusQualified, Source: models.SourceWebsite, CreatedAt: day(-20)},
			},
			Deals: []models.Deal{
				{ID: 1, LeadID: models.Ref(1), Title: "TechCorp License", Value: 75000, Stage: models.StageNegotiation, Probability: 75, AssigneeID: models.Ref(1), AssigneeName: "Alex", CreatedAt: day(-1)},
				{ID: 2, LeadID: models.Ref(2), Title: "Innovate Rollout", Value: 32000, Stage: models.StageProposal, Probability: 50, AssigneeID: models.Ref(2), AssigneeName: "Jordan", CreatedAt: day(-30)},
				{ID: 3, LeadID: models.Ref(4), Title: "Starter Package", Value: 8000, Stage: models.StageClosedWon, Probability: 100, AssigneeID: models.Ref(1), AssigneeName: "Alex", CreatedAt: day(-25)},
				{ID: 4, LeadID: models.Ref(1), Title: "TechCorp Add-on", Value: 5000, Stage: models.StageClosedLost, Probability: 0, CreatedAt: day(-3)},
			},
			Activities: []models.Activity{
				{ID: 1, LeadID: models.Ref(1), DealID: models.Ref(1), Type: models.ActivityCall, Subject: "Discovery call", Notes: "pricing questions", DueDate: day(-2), Completed: true, CreatedAt: day(-5)},
				{ID: 2, LeadID: models.Ref(2), Type: models.ActivityEmail, Subject: "Send proposal", DueDate: fixedNow.Add(2 * time.Hour), CreatedAt: day(-4)},
				{ID: 3, LeadID: models.Ref(3), Type: models.ActivityMeeting, Subject: "Demo", Notes: "bring slides", DueDate: day(-1), CreatedAt: day(-3)},
				{ID: 4, Type: models.ActivityTask, Subject: "Research", DueDate: day(3), CreatedAt: day(-1)},
				{ID: 5, LeadID: models.Ref(4), Type: models.ActivityCall, Subject: "Check in", DueDate: day(5), CreatedAt: day(0)},
			},
		},
	})
}

func TestDashboardMetrics(t *testing.T) {
	s := setupTestStore(t)
	v := NewDashboard(s, func() time.Time { return fixedNow }).Load(context.Background())

	require.Empty(t, v.Error)
	assert.Equal(t, 4, v.TotalLeads)
	assert.Equal(t, 2, v.QualifiedLeads)
	assert.Equal(t, 1, v.DueToday)
	assert.Equal(t, 1, v.Overdue)
	assert.Equal(t, 120000.0, v.TotalDealValue)
	assert.Equal(t, 8000.0, v.WonValue)
	assert.Equal(t, 107000.0, v.PipelineValue)

	require.Len(t, v.Recent, 5)
	assert.Equal(t, 5, v.Recent[0].ID)
	require.Len(t, v.Upcoming, 4)
	assert.Equal(t, 3, v.Upcoming[0].ID)
	assert.Equal(t, 5, v.Upcoming[3].ID)

	require.Len(t, v.Stages, 5)
	assert.Equal(t, models.StageProspecting, v.Stages[0].Stage)
	assert.Equal(t, 1, v.Stages[2].Count)
	assert.Equal(t, 75000.0, v.Stages[2].Value)
}

func TestDashboardLoadError(t *testing.T) {
	s := store.New(store.Options{Latency: store.Latency{store.OpList: {Min: time.Hour, Max: time.Hour}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := NewDashboard(s, nil).Load(ctx)
	assert.NotEmpty(t, v.Error)
	assert.Zero(t, v.TotalLeads)
}

func TestFilterLeads(t *testing.T) {
	s := setupTestStore(t)
	p := NewLeads(s, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter LeadFilter
		ids    []int
	}{
		{"no filter", LeadFilter{}, []int{1, 2, 3, 4}},
		{"all is no filter", LeadFilter{Status: FilterAll, Source: FilterAll}, []int{1, 2, 3, 4}},
		{"search name case-insensitive", LeadFilter{Search: "SARAH"}, []int{1}},
		{"search company", LeadFilter{Search: "venture"}, []int{3}},
		{"search product", LeadFilter{Search: "analytics"}, []int{2}},
		{"search email", LeadFilter{Search: "startup.io"}, []int{4}},
		{"status", LeadFilter{Status: models.LeadStatusQualified}, []int{1, 4}},
		{"status and source", LeadFilter{Status: models.LeadStatusQualified, Source: models.SourceWebsite, Search: "kim"}, []int{4}},
		{"nothing", LeadFilter{Source: models.SourceSocial}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := p.Load(ctx, tt.filter)
			ids := []int{}
			for _, l := range v.Leads {
				ids = append(ids, l.ID)
			}
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, 4, v.Total)
		})
	}
}

func TestLeadsSummaryAndToasts(t *testing.T) {
	s := setupTestStore(t)
	toaster := &recordingToaster{}
	p := NewLeads(s, toaster)
	ctx := context.Background()

	v := p.Load(ctx, LeadFilter{Status: models.LeadStatusNew})
	assert.Equal(t, "Showing 1 of 4 leads", v.Summary())

	_, err := p.Create(ctx, models.Lead{FirstName: "New"})
	require.NoError(t, err)
	_, err = p.UpdateStatus(ctx, 3, models.LeadStatusContacted)
	require.NoError(t, err)
	err = p.Delete(ctx, 99)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Equal(t, []toast{
		{"success", "Lead created successfully!"},
		{"success", "Lead status updated to contacted"},
		{"error", "Lead not found"},
	}, toaster.toasts)
}

func TestFilterActivitiesOrdering(t *testing.T) {
	s := setupTestStore(t)
	p := NewActivities(s, ActivitiesOptions{})
	ctx := context.Background()

	v := p.Load(ctx, ActivityFilter{})
	ids := []int{}
	for _, a := range v.Activities {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []int{3, 2, 4, 5, 1}, ids, "incomplete first, each by due date")

	v = p.Load(ctx, ActivityFilter{Status: StatusCompleted})
	require.Len(t, v.Activities, 1)
	assert.Equal(t, 1, v.Activities[0].ID)

	v = p.Load(ctx, ActivityFilter{Status: StatusPending, Type: models.ActivityCall})
	require.Len(t, v.Activities, 1)
	assert.Equal(t, 5, v.Activities[0].ID)

	v = p.Load(ctx, ActivityFilter{Search: "SLIDES"})
	require.Len(t, v.Activities, 1)
	assert.Equal(t, 3, v.Activities[0].ID)
	assert.Equal(t, "Showing 1 of 5 activities", v.Summary())
}

type stubFollowUp struct {
	got    []FollowUpRequest
	result FollowUpResult
	err    error
}

func (s *stubFollowUp) ProcessCallCompletion(_ context.Context, req FollowUpRequest) (FollowUpResult, error) {
	s.got = append(s.got, req)
	return s.result, s.err
}

func TestMarkCompleteWithFollowUp(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	toaster := &recordingToaster{}
	follow := &stubFollowUp{}
	follow.result.Success = true
	follow.result.Data.Message = "Follow-up task created"

	p := NewActivities(s, ActivitiesOptions{Toaster: toaster, FollowUp: follow, Now: func() time.Time { return fixedNow }})

	act, err := s.CreateActivity(ctx, models.Activity{Type: models.ActivityCall, Subject: "Call", Notes: "send quote", LeadID: models.Ref(3)})
	require.NoError(t, err)

	res, err := p.MarkComplete(ctx, act.ID)
	require.NoError(t, err)
	assert.True(t, res.Activity.Completed)

	require.Len(t, follow.got, 1)
	assert.Equal(t, FollowUpRequest{ActivityID: act.ID, Notes: "send quote", DealID: 1}, follow.got[0])
	assert.Equal(t, []toast{{"success", "Activity marked complete. Follow-up task created"}}, toaster.toasts)

	lead, err := s.GetLead(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, lead.LastContact)
	assert.True(t, lead.LastContact.Equal(fixedNow))
}

func TestMarkCompleteFollowUpFailure(t *testing.T) {
	for name, follow := range map[string]*stubFollowUp{
		"error":        {err: errors.New("connection refused")},
		"unsuccessful": {result: FollowUpResult{Success: false}},
	} {
		t.Run(name, func(t *testing.T) {
			s := setupTestStore(t)
			toaster := &recordingToaster{}
			p := NewActivities(s, ActivitiesOptions{Toaster: toaster, FollowUp: follow})

			_, err := p.MarkComplete(context.Background(), 1)
			require.NoError(t, err, "follow-up failure never fails completion")

			assert.Equal(t, []toast{
				{"success", "Activity marked as complete"},
				{"warning", "Follow-up creation failed - please create manually if needed"},
			}, toaster.toasts)
		})
	}
}

func TestMarkCompleteWithoutFollowUp(t *testing.T) {
	s := setupTestStore(t)
	toaster := &recordingToaster{}
	follow := &stubFollowUp{}
	p := NewActivities(s, ActivitiesOptions{Toaster: toaster, FollowUp: follow})

	_, err := p.MarkComplete(context.Background(), 4)
	require.NoError(t, err)
	assert.Empty(t, follow.got)
	assert.Equal(t, []toast{{"success", "Activity marked as complete"}}, toaster.toasts)

	_, err = p.MarkComplete(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, toast{"error", "Activity not found"}, toaster.toasts[1])
}

func TestHTTPFollowUp(t *testing.T) {
	var got FollowUpRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success": true, "data": {"message": "Created follow-up"}}`))
	}))
	defer srv.Close()

	out, err := NewHTTPFollowUp(srv.URL).ProcessCallCompletion(context.Background(), FollowUpRequest{ActivityID: 7, Notes: "n", DealID: 2})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "Created follow-up", out.Data.Message)
	assert.Equal(t, FollowUpRequest{ActivityID: 7, Notes: "n", DealID: 2}, got)
}

func TestHTTPFollowUpServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPFollowUp(srv.URL).ProcessCallCompletion(context.Background(), FollowUpRequest{})
	assert.Error(t, err)
}

func TestDealsView(t *testing.T) {
	s := setupTestStore(t)
	p := NewDeals(s, nil)

	v := p.Load(context.Background(), DealFilter{})
	require.Empty(t, v.Error)
	assert.Equal(t, 120000.0, v.TotalValue)
	assert.Equal(t, 107000.0, v.PipelineValue)
	assert.Equal(t, 25, v.WinRate, "won over all deals")
	assert.Equal(t, []Assignee{{ID: 1, Name: "Alex"}, {ID: 2, Name: "Jordan"}}, v.Assignees)

	require.Len(t, v.Columns, 5)
	assert.Equal(t, "Negotiation", v.Columns[2].Name)
	require.Len(t, v.Columns[2].Deals, 1)
	assert.Empty(t, v.Columns[0].Deals)

	v = p.Load(context.Background(), DealFilter{AssigneeID: 1})
	assert.Len(t, v.Deals, 2)
	assert.Equal(t, 83000.0, v.TotalValue)
	assert.Equal(t, "Showing 2 of 4 deals", v.Summary())

	v = p.Load(context.Background(), DealFilter{Search: "techcorp", Stage: models.StageClosedLost})
	require.Len(t, v.Deals, 1)
	assert.Equal(t, 4, v.Deals[0].ID)
}

func TestDealsMoveStageForwardOnly(t *testing.T) {
	s := setupTestStore(t)
	toaster := &recordingToaster{}
	p := NewDeals(s, toaster)
	ctx := context.Background()

	moved, err := p.MoveStage(ctx, 2, models.StageNegotiation)
	require.NoError(t, err)
	assert.Equal(t, 75, moved.Probability)
	assert.Equal(t, toast{"success", "Deal moved to Negotiation"}, toaster.toasts[0])

	_, err = p.MoveStage(ctx, 2, models.StageProspecting)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = p.MoveStage(ctx, 3, models.StageNegotiation)
	assert.ErrorIs(t, err, ErrIllegalTransition, "closed deals stay closed")

	_, err = p.MoveStage(ctx, 1, models.StageClosedLost)
	require.NoError(t, err)
	deal, err := s.GetDeal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, deal.Probability)

	_, err = p.MoveStage(ctx, 99, models.StageProposal)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReports(t *testing.T) {
	s := setupTestStore(t)
	v := NewReports(s, func() time.Time { return fixedNow }).Load(context.Background())

	require.Empty(t, v.Error)
	assert.Equal(t, 50, v.ConversionRate)
	assert.Equal(t, 20, v.ActivityCompletionRate)
	assert.Equal(t, 50, v.WinRate, "won over closed deals")
	assert.Equal(t, 120000.0, v.TotalDealsValue)
	assert.Equal(t, 8000.0, v.WonValue)
	assert.Equal(t, 107000.0, v.PipelineValue)

	// week of Sunday Feb 4 through Saturday Feb 10
	assert.Equal(t, WeekSummary{Leads: 2, Activities: 3, Deals: 2, DealsValue: 80000}, v.ThisWeek)

	assert.Equal(t, map[string]int{"website": 2, "referral": 1, "email": 1}, v.LeadSources)
	assert.Equal(t, 1, v.DealStages[models.StageClosedWon])
	assert.Equal(t, 2, v.ActivityTypes[models.ActivityCall])

	require.NotEmpty(t, v.TopLeads)
	assert.Equal(t, 1, v.TopLeads[0].Lead.ID)
	assert.Equal(t, 80000.0, v.TopLeads[0].DealValue)
	assert.Equal(t, 2, v.TopLeads[0].DealCount)
}

func TestPercentRounds(t *testing.T) {
	assert.Equal(t, 0, percent(1, 0))
	assert.Equal(t, 33, percent(1, 3))
	assert.Equal(t, 67, percent(2, 3))
	assert.Equal(t, 100, percent(4, 4))
}

// gatedStore holds every move until both callers have arrived, so the two
// moves race on the same stored stage.
type gatedStore struct {
	*store.Store
	arrived sync.WaitGroup
}

func (g *gatedStore) MoveStageChecked(ctx context.Context, id int, stage string, allow func(from, to string) error) (models.Deal, error) {
	g.arrived.Done()
	g.arrived.Wait()
	return g.Store.MoveStageChecked(ctx, id, stage, allow)
}

func TestDealsMoveStageConcurrentClose(t *testing.T) {
	s := &gatedStore{Store: setupTestStore(t)}
	s.arrived.Add(2)
	p := NewDeals(s, nil)
	ctx := context.Background()

	deal, err := s.GetDeal(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, models.StageProposal, deal.Stage)
	_, err = s.Store.MoveStage(ctx, 2, models.StageNegotiation)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, stage := range []string{models.StageClosedWon, models.StageClosedLost} {
		wg.Add(1)
		go func(i int, stage string) {
			defer wg.Done()
			_, errs[i] = p.MoveStage(ctx, 2, stage)
		}(i, stage)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrIllegalTransition)
	}
	assert.Equal(t, 1, succeeded, "exactly one close wins")

	final, err := s.GetDeal(ctx, 2)
	require.NoError(t, err)
	assert.True(t, models.IsTerminalStage(final.Stage))
}
