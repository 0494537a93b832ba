// ABOUTME: Tests for terminal rendering and graph generation
// ABOUTME: Uses the embedded fixtures as the data set
package viz

import (
	"strings"
	"testing"
	"time"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/pages"
	"github.com/harperreed/leadpipe/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 2, 7, 12, 0, 0, 0, time.UTC)

func fixtureData(t *testing.T) ([]models.Lead, []models.Deal, []models.Activity) {
	t.Helper()
	f, err := store.LoadFixtures("")
	require.NoError(t, err)
	return f.Leads, f.Deals, f.Activities
}

func TestRenderDashboard(t *testing.T) {
	leads, deals, acts := fixtureData(t)
	out := RenderDashboard(pages.BuildDashboard(leads, deals, acts, now))

	assert.Contains(t, out, "LEADPIPE DASHBOARD")
	assert.Contains(t, out, "PIPELINE OVERVIEW")
	for _, stage := range models.Stages {
		assert.Contains(t, out, models.StageName(stage))
	}
	assert.Contains(t, out, "8 leads")
}

func TestRenderDashboardError(t *testing.T) {
	out := RenderDashboard(pages.DashboardView{Error: "Failed to load dashboard data"})
	assert.Contains(t, out, "Failed to load dashboard data")
	assert.NotContains(t, out, "PIPELINE OVERVIEW")
}

func TestRenderReports(t *testing.T) {
	leads, deals, acts := fixtureData(t)
	out := RenderReports(pages.BuildReports(leads, deals, acts, now))

	assert.Contains(t, out, "Win rate")
	assert.Contains(t, out, "TOP LEADS BY DEAL VALUE")
	assert.Contains(t, out, "1. ")
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$950", Money(950))
	assert.Equal(t, "$75K", Money(75000))
}

func TestPipelineGraph(t *testing.T) {
	leads, deals, acts := fixtureData(t)
	dot, err := NewGraphGenerator(leads, deals, acts).GeneratePipelineGraph()
	require.NoError(t, err)

	assert.Contains(t, dot, "stage_prospecting")
	assert.Contains(t, dot, "deal_1")
	assert.True(t, strings.Count(dot, "->") >= len(deals))
}

func TestLeadGraph(t *testing.T) {
	leads, deals, acts := fixtureData(t)
	g := NewGraphGenerator(leads, deals, acts)

	dot, err := g.GenerateLeadGraph(models.Ref(1))
	require.NoError(t, err)
	assert.Contains(t, dot, "lead_1")
	assert.NotContains(t, dot, "lead_2")

	_, err = g.GenerateLeadGraph(models.Ref(999))
	assert.Error(t, err)
}

func TestWithFormat(t *testing.T) {
	g := NewGraphGenerator(nil, nil, nil)
	_, err := g.WithFormat("png")
	assert.Error(t, err)

	svg, err := g.WithFormat(FormatSVG)
	require.NoError(t, err)
	out, err := svg.GeneratePipelineGraph()
	require.NoError(t, err)
	assert.Contains(t, out, "<svg")
}
