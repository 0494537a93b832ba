package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedConversation(t *testing.T, s *store.Store, id string, texts ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := s.StartConversation(ctx, id)
	require.NoError(t, err)
	for i, text := range texts {
		user := "visitor"
		if i%2 == 1 {
			user = models.BotUserID
		}
		_, err := s.SaveMessage(ctx, models.Message{ConversationID: id, UserID: user, Message: text})
		require.NoError(t, err)
	}
}

func TestQueryCRM(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	h := NewQueryHandlers(s, func() time.Time { return testNow })

	_, out, err := h.QueryCRM(ctx, nil, QueryCRMInput{EntityType: "lead", Filters: map[string]string{"status": "qualified"}})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Count)

	_, out, err = h.QueryCRM(ctx, nil, QueryCRMInput{EntityType: "deal", Filters: map[string]string{"lead_id": "1"}})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "TechCorp Enterprise License", out.Results[0].(DealOutput).Title)

	_, out, err = h.QueryCRM(ctx, nil, QueryCRMInput{EntityType: "activity", Filters: map[string]string{"lead_id": "1"}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)

	_, _, err = h.QueryCRM(ctx, nil, QueryCRMInput{EntityType: "deal", Filters: map[string]string{"lead_id": "one"}})
	assert.Error(t, err)

	_, _, err = h.QueryCRM(ctx, nil, QueryCRMInput{EntityType: "company"})
	assert.ErrorContains(t, err, "invalid entity_type")
}

func TestQueryConversations(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	seedConversation(t, s, "conv-a", "hi", "hello")
	seedConversation(t, s, "conv-b", "pricing?")
	_, err := s.EndConversation(ctx, "conv-a")
	require.NoError(t, err)

	h := NewQueryHandlers(s, nil)
	_, out, err := h.QueryCRM(ctx, nil, QueryCRMInput{EntityType: "conversation"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	for _, r := range out.Results {
		c := r.(ConversationOutput)
		assert.Equal(t, c.ConversationID == "conv-a", c.EndTime != "", c.ConversationID)
	}

	_, out, err = h.QueryCRM(ctx, nil, QueryCRMInput{EntityType: "conversation", Filters: map[string]string{"status": models.ConversationActive}})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "conv-b", out.Results[0].(ConversationOutput).ConversationID)
}

func TestGetConversation(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	seedConversation(t, s, "conv-a", "hi", "hello, how can I help?", "I need a quote")

	h := NewQueryHandlers(s, nil)
	_, out, err := h.GetConversation(ctx, nil, GetConversationInput{ConversationID: "conv-a"})
	require.NoError(t, err)
	assert.Len(t, out.Messages, 3)
	assert.Equal(t, 2, out.UserMessages)
	assert.Equal(t, 1, out.BotMessages)
	assert.True(t, out.Messages[1].FromBot)

	_, _, err = h.GetConversation(ctx, nil, GetConversationInput{ConversationID: "missing"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, _, err = h.GetConversation(ctx, nil, GetConversationInput{})
	assert.Error(t, err)
}

func TestGetDashboardAndReports(t *testing.T) {
	ctx := context.Background()
	h := NewQueryHandlers(setupTestStore(t), func() time.Time { return testNow })

	_, dash, err := h.GetDashboard(ctx, nil, EmptyInput{})
	require.NoError(t, err)
	assert.Equal(t, 8, dash.TotalLeads)
	assert.Equal(t, 3, dash.QualifiedLeads)
	assert.Equal(t, 345500.0, dash.TotalDealValue)
	assert.Equal(t, 120000.0, dash.WonValue)
	assert.Len(t, dash.Stages, len(models.Stages))

	_, rep, err := h.GetReports(ctx, nil, EmptyInput{})
	require.NoError(t, err)
	assert.Equal(t, 38, rep.ConversionRate)
	assert.Equal(t, 50, rep.WinRate)
	require.NotEmpty(t, rep.TopLeads)
	assert.Equal(t, 120000.0, rep.TopLeads[0].DealValue)
}

func TestReadResource(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	seedConversation(t, s, "conv-a", "hi")
	h := NewResourceHandlers(s)

	read := func(uri string) (*mcp.ReadResourceResult, error) {
		return h.ReadResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
	}

	res, err := read("crm://leads")
	require.NoError(t, err)
	var leads []models.Lead
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &leads))
	assert.Len(t, leads, 8)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)

	res, err = read("crm://deals/5")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "FinanceFlow Platform Upgrade")

	res, err = read("crm://pipeline")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, `"columns"`)

	res, err = read("crm://conversations/conv-a")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, `"messages"`)

	_, err = read("crm://leads/abc")
	assert.Error(t, err)
	_, err = read("crm://widgets")
	assert.Error(t, err)
	_, err = read("http://leads")
	assert.Error(t, err)
}

func TestGetPrompt(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	seedConversation(t, s, "conv-a", "hi", "hello")
	h := NewPromptHandlers(s, func() time.Time { return testNow })

	get := func(name string, args map[string]string) (*mcp.GetPromptResult, error) {
		return h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: name, Arguments: args}})
	}
	text := func(res *mcp.GetPromptResult) string {
		return res.Messages[0].Content.(*mcp.TextContent).Text
	}

	res, err := get("lead-summary", map[string]string{"lead_id": "1"})
	require.NoError(t, err)
	assert.Contains(t, text(res), "TechCorp Enterprise License")
	assert.Contains(t, text(res), "Negotiation")

	_, err = get("lead-summary", nil)
	assert.Error(t, err)

	res, err = get("deal-analysis", nil)
	require.NoError(t, err)
	assert.Contains(t, text(res), "Total Deals: 7")

	res, err = get("follow-up-suggestions", map[string]string{"days": "14"})
	require.NoError(t, err)
	assert.Contains(t, text(res), "14 days")
	assert.NotContains(t, text(res), "Jessica")

	_, err = get("follow-up-suggestions", map[string]string{"days": "soon"})
	assert.Error(t, err)

	res, err = get("conversation-review", map[string]string{"conversation_id": "conv-a"})
	require.NoError(t, err)
	assert.Contains(t, text(res), "visitor: hi")
	assert.Contains(t, text(res), "bot: hello")

	_, err = get("relationship-map", nil)
	assert.Error(t, err)
}

func TestGenerateGraph(t *testing.T) {
	ctx := context.Background()
	h := NewVizHandlers(setupTestStore(t))

	_, out, err := h.GenerateGraph(ctx, nil, GenerateGraphInput{Type: "pipeline"})
	require.NoError(t, err)
	assert.Equal(t, "dot", out.Format)
	assert.True(t, strings.Contains(out.Source, "deal_1"))
	assert.Greater(t, out.EdgeCount, 0)
	assert.Greater(t, out.NodeCount, 0)

	_, out, err = h.GenerateGraph(ctx, nil, GenerateGraphInput{Type: "leads", LeadID: 1, Format: "svg"})
	require.NoError(t, err)
	assert.Contains(t, out.Source, "<svg")

	_, _, err = h.GenerateGraph(ctx, nil, GenerateGraphInput{Type: "leads", LeadID: 999})
	assert.Error(t, err)
	_, _, err = h.GenerateGraph(ctx, nil, GenerateGraphInput{Type: "contacts"})
	assert.Error(t, err)
	_, _, err = h.GenerateGraph(ctx, nil, GenerateGraphInput{})
	assert.Error(t, err)
}
