// ABOUTME: MCP server subcommand
// ABOUTME: Registers every CRM tool, resource and prompt and serves them on stdio
package cli

import (
	"github.com/harperreed/leadpipe/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverVersion = "0.2.0"

// NewMCPServer builds the MCP server over the app's store and bus.
func NewMCPServer(app *App) *mcp.Server {
	leadHandlers := handlers.NewLeadHandlers(app.Store, app.Toaster)
	dealHandlers := handlers.NewDealHandlers(app.Store, app.Toaster)
	activityHandlers := handlers.NewActivityHandlers(app.Activities)
	notificationHandlers := handlers.NewNotificationHandlers(app.Bus)
	queryHandlers := handlers.NewQueryHandlers(app.Store, app.Now)
	vizHandlers := handlers.NewVizHandlers(app.Store)
	resourceHandlers := handlers.NewResourceHandlers(app.Store)
	promptHandlers := handlers.NewPromptHandlers(app.Store, app.Now)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "leadpipe",
		Version: serverVersion,
	}, nil)

	// Leads
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_lead",
		Description: "Add a new lead to the CRM",
	}, leadHandlers.AddLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_leads",
		Description: "Search leads by name, email, company or product, with status and source filters",
	}, leadHandlers.FindLeads)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_lead",
		Description: "Update an existing lead; only the fields given change",
	}, leadHandlers.UpdateLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_lead",
		Description: "Delete a lead",
	}, leadHandlers.DeleteLead)

	// Deals
	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a new deal; probability follows the stage",
	}, dealHandlers.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_deals",
		Description: "Search deals and summarize the pipeline by stage",
	}, dealHandlers.FindDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_deal",
		Description: "Update a deal's title, value, lead, close date or assignee",
	}, dealHandlers.UpdateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_deal_stage",
		Description: "Move a deal forward one pipeline step (prospecting → proposal → negotiation → closed-won/closed-lost)",
	}, dealHandlers.MoveDealStage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_deal",
		Description: "Delete a deal",
	}, dealHandlers.DeleteDeal)

	// Activities
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_activity",
		Description: "Schedule a call, email, meeting, task or note",
	}, activityHandlers.AddActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_activities",
		Description: "List activities, pending first, with type and status filters",
	}, activityHandlers.FindActivities)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_activity",
		Description: "Mark an activity complete; completed calls with notes request a follow-up",
	}, activityHandlers.CompleteActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_activity",
		Description: "Delete an activity",
	}, activityHandlers.DeleteActivity)

	// Notifications
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_notifications",
		Description: "List notifications, newest first",
	}, notificationHandlers.ListNotifications)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "mark_notifications_read",
		Description: "Mark one notification or all notifications read",
	}, notificationHandlers.MarkNotificationsRead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dismiss_notifications",
		Description: "Dismiss a notification or clear every dismissed notification",
	}, notificationHandlers.DismissNotifications)

	// Queries and views
	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_crm",
		Description: "Universal query tool for flexible filtering across all CRM entity types (lead, deal, activity, conversation)",
	}, queryHandlers.QueryCRM)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_conversation",
		Description: "Fetch a chat assistant conversation with its transcript and message counts",
	}, queryHandlers.GetConversation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dashboard",
		Description: "Dashboard metrics: lead counts, due and overdue activities, deal values per stage",
	}, queryHandlers.GetDashboard)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_reports",
		Description: "Conversion, completion and win rates plus weekly and per-source breakdowns",
	}, queryHandlers.GetReports)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Render the deal pipeline or lead network as GraphViz dot or svg",
	}, vizHandlers.GenerateGraph)

	for _, r := range handlers.Resources() {
		server.AddResource(r, resourceHandlers.ReadResource)
	}
	for _, t := range handlers.ResourceTemplates() {
		server.AddResourceTemplate(t, resourceHandlers.ReadResource)
	}
	for _, p := range handlers.Prompts() {
		server.AddPrompt(p, promptHandlers.GetPrompt)
	}

	return server
}

// MCPCommand starts the MCP server on stdio
func MCPCommand(app *App) error {
	app.Logger.Info("Starting leadpipe MCP server")
	return NewMCPServer(app).Run(app.Ctx, &mcp.StdioTransport{})
}
