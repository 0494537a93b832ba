// ABOUTME: Entry point for the leadpipe CRM
// ABOUTME: Routes to the MCP server, web API, chat bridge, TUI or CLI commands based on arguments
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/leadpipe/cli"
	"github.com/harperreed/leadpipe/config"
	"github.com/harperreed/leadpipe/logging"
)

const version = "0.2.0"

type command func(app *cli.App, args []string) error

var crmCommands = map[string]command{
	"add-lead":          cli.AddLeadCommand,
	"list-leads":        cli.ListLeadsCommand,
	"update-lead":       cli.UpdateLeadCommand,
	"delete-lead":       cli.DeleteLeadCommand,
	"add-deal":          cli.AddDealCommand,
	"list-deals":        cli.ListDealsCommand,
	"move-deal":         cli.MoveDealCommand,
	"delete-deal":       cli.DeleteDealCommand,
	"add-activity":      cli.AddActivityCommand,
	"list-activities":   cli.ListActivitiesCommand,
	"complete-activity": cli.CompleteActivityCommand,
	"delete-activity":   cli.DeleteActivityCommand,
	"notifications":     cli.NotificationsCommand,
}

var vizCommands = map[string]command{
	"pipeline": cli.VizGraphPipelineCommand,
	"leads":    cli.VizGraphLeadsCommand,
}

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	fixturesDir := flag.String("fixtures", "", "Directory with leads.json, deals.json or activities.json overrides")
	noLatency := flag.Bool("no-latency", false, "Disable simulated service latency")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")

	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("leadpipe version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg := config.Load()
	if *fixturesDir != "" {
		cfg.FixturesDir = *fixturesDir
	}
	if *noLatency {
		cfg.Latency = "off"
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logger := logging.Init(cfg.LogLevel)

	cmd, cmdArgs, ok := route(args)
	if !ok {
		printUsage()
		os.Exit(1)
	}

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app.Ctx = ctx

	if err := cmd(app, cmdArgs); err != nil {
		stop()
		logger.Fatal("Error", "command", args[0], "err", err)
	}
}

// route resolves the command and its remaining arguments.
func route(args []string) (command, []string, bool) {
	name, rest := args[0], args[1:]

	switch name {
	case "mcp":
		return func(app *cli.App, _ []string) error { return cli.MCPCommand(app) }, rest, true
	case "web":
		return cli.WebCommand, rest, true
	case "chat":
		return cli.ChatCommand, rest, true
	case "tui":
		return cli.TUICommand, rest, true
	case "dashboard":
		return cli.DashboardCommand, rest, true
	case "reports":
		return cli.ReportsCommand, rest, true
	case "export":
		return cli.ExportCommand, rest, true
	case "crm":
		if len(rest) == 0 {
			fmt.Println("Error: crm requires a subcommand")
			return nil, nil, false
		}
		cmd, ok := crmCommands[rest[0]]
		if !ok {
			fmt.Printf("Unknown crm command: %s\n\n", rest[0])
		}
		return cmd, rest[1:], ok
	case "viz":
		if len(rest) == 0 {
			fmt.Println("Error: viz requires a graph type (pipeline or leads)")
			return nil, nil, false
		}
		cmd, ok := vizCommands[rest[0]]
		if !ok {
			fmt.Printf("Unknown graph type: %s\n\n", rest[0])
		}
		return cmd, rest[1:], ok
	}

	fmt.Printf("Unknown command: %s\n\n", name)
	return nil, nil, false
}

func printUsage() {
	fmt.Printf(`leadpipe v%s - Lead and deal pipeline CRM

USAGE:
  leadpipe [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --fixtures <dir>       Fixture override directory (default: $XDG_DATA_HOME/leadpipe/fixtures)
  --no-latency           Disable simulated service latency
  --log-level <level>    debug, info, warn or error

COMMANDS:
  mcp                    Start MCP server on stdio
  web                    Start the JSON API and /metrics
    --port <n>             Port (default: 8080)
  chat                   Run the chat assistant bridge
    --replay <file>        Replay a JSON-lines transcript instead of the live widget
    --delay <duration>     Delay between replayed events
  tui                    Full-screen terminal interface
  dashboard              Print dashboard metrics
  reports                Print conversion, completion and win rates
  export                 Write a SQLite snapshot
    --path <file>          Export file (default: $XDG_DATA_HOME/leadpipe/export.db)
  crm                    CRM management commands
  viz                    Graph commands

CRM COMMANDS:
  leadpipe crm add-lead          Add a new lead
    --first, --last, --email      Required
    --phone, --company, --product
    --status <status>             new, qualified, contacted, lost (default: new)
    --source <source>             website, email, phone, referral, social, chat-bot, manual

  leadpipe crm list-leads        List leads
    --query <text>                Search name, email, company or product
    --status, --source            Filters
    --limit <n>                   Max results (default: 50)

  leadpipe crm update-lead [flags] <id>   Only the flags given change
  leadpipe crm delete-lead [--yes] <id>

  leadpipe crm add-deal          Add a new deal
    --title <title>               Required
    --value <dollars>             Deal value
    --stage <stage>               prospecting, proposal, negotiation, closed-won, closed-lost
    --lead <id>                   Lead ID
    --close <YYYY-MM-DD>          Expected close date
    --assignee-id, --assignee     Sales rep

  leadpipe crm list-deals        List deals grouped by stage
    --query, --stage, --assignee-id

  leadpipe crm move-deal <id> <stage>    Move along the pipeline (one step forward)
  leadpipe crm delete-deal [--yes] <id>

  leadpipe crm add-activity      Schedule an activity
    --type <type>                 call, email, meeting, task, note (default: task)
    --subject <text>              Required
    --notes, --lead, --deal, --due

  leadpipe crm list-activities   Pending first
    --query, --type, --status (completed, pending)

  leadpipe crm complete-activity <id>
  leadpipe crm delete-activity [--yes] <id>
  leadpipe crm notifications     --unread, --read <id>, --read-all, --dismiss <id>

VIZ COMMANDS:
  leadpipe viz pipeline          Deal pipeline graph
  leadpipe viz leads [id]        Lead network, optionally one lead
    --format <dot|svg>            Output format (default: dot)
    --output <file>               Output file (default: stdout)

EXAMPLES:
  leadpipe crm add-lead --first Ada --last Lovelace --email ada@engines.io --company "Analytical Engines"
  leadpipe crm move-deal 3 proposal
  leadpipe viz pipeline --format svg --output pipeline.svg
  leadpipe chat --replay transcript.jsonl

`, version)
}
