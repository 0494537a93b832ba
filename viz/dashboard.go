// ABOUTME: Terminal dashboard and report rendering
// ABOUTME: Provides ASCII views of the pipeline, activity queues and weekly metrics
package viz

import (
	"fmt"
	"strings"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/pages"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"

func RenderDashboard(view pages.DashboardView) string {
	var out strings.Builder

	out.WriteString(rule)
	out.WriteString("  LEADPIPE DASHBOARD\n")
	out.WriteString(rule + "\n")

	if view.Error != "" {
		out.WriteString(fmt.Sprintf("  ⚠️  %s\n", view.Error))
		return out.String()
	}

	out.WriteString("PIPELINE OVERVIEW\n")
	renderPipeline(&out, view.Stages)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  👤 %d leads (%d qualified)  💼 %s total  🏆 %s won  📈 %s open\n\n",
		view.TotalLeads, view.QualifiedLeads,
		Money(view.TotalDealValue), Money(view.WonValue), Money(view.PipelineValue)))

	if view.DueToday > 0 || view.Overdue > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		if view.DueToday > 0 {
			out.WriteString(fmt.Sprintf("  📅 %d activities due today\n", view.DueToday))
		}
		if view.Overdue > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d activities overdue\n", view.Overdue))
		}
		out.WriteString("\n")
	}

	if len(view.Upcoming) > 0 {
		out.WriteString("UPCOMING\n")
		for _, a := range view.Upcoming {
			out.WriteString(fmt.Sprintf("  %s  %-8s %s\n", a.DueDate.Format("Jan 02"), a.Type, a.Subject))
		}
		out.WriteString("\n")
	}

	if len(view.Recent) > 0 {
		out.WriteString("RECENT ACTIVITY\n")
		for _, a := range view.Recent {
			mark := " "
			if a.Completed {
				mark = "✓"
			}
			out.WriteString(fmt.Sprintf("  %s %s  %s\n", mark, a.CreatedAt.Format("Jan 02"), a.Subject))
		}
	}

	return out.String()
}

func RenderReports(view pages.ReportsView) string {
	var out strings.Builder

	out.WriteString(rule)
	out.WriteString("  LEADPIPE REPORTS\n")
	out.WriteString(rule + "\n")

	if view.Error != "" {
		out.WriteString(fmt.Sprintf("  ⚠️  %s\n", view.Error))
		return out.String()
	}

	out.WriteString("CONVERSION\n")
	out.WriteString(fmt.Sprintf("  Lead conversion      %3d%%  (%d of %d qualified)\n", view.ConversionRate, view.QualifiedLeads, view.TotalLeads))
	out.WriteString(fmt.Sprintf("  Activity completion  %3d%%  (%d of %d)\n", view.ActivityCompletionRate, view.CompletedActivities, view.TotalActivities))
	out.WriteString(fmt.Sprintf("  Win rate             %3d%%\n\n", view.WinRate))

	out.WriteString("REVENUE\n")
	out.WriteString(fmt.Sprintf("  %s total  %s won  %s open\n\n", Money(view.TotalDealsValue), Money(view.WonValue), Money(view.PipelineValue)))

	out.WriteString("THIS WEEK\n")
	out.WriteString(fmt.Sprintf("  %d new leads  %d activities  %d deals worth %s\n\n",
		view.ThisWeek.Leads, view.ThisWeek.Activities, view.ThisWeek.Deals, Money(view.ThisWeek.DealsValue)))

	if len(view.LeadSources) > 0 {
		out.WriteString("LEAD SOURCES\n")
		for _, src := range models.LeadSources {
			if n := view.LeadSources[src]; n > 0 {
				out.WriteString(fmt.Sprintf("  %-10s %d\n", src, n))
			}
		}
		out.WriteString("\n")
	}

	if len(view.TopLeads) > 0 {
		out.WriteString("TOP LEADS BY DEAL VALUE\n")
		for i, lv := range view.TopLeads {
			out.WriteString(fmt.Sprintf("  %d. %-24s %s\n", i+1, lv.Lead.FullName(), Money(lv.DealValue)))
		}
	}

	return out.String()
}

func renderPipeline(out *strings.Builder, stages []pages.StageSummary) {
	maxCount := 0
	for _, s := range stages {
		if s.Count > maxCount {
			maxCount = s.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, s := range stages {
		barLength := (s.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-13s %s  %2d (%s)\n", models.StageName(s.Stage), bar, s.Count, Money(s.Value)))
	}
}

// Money formats a dollar amount, abbreviating thousands.
func Money(v float64) string {
	if v >= 1000 {
		return fmt.Sprintf("$%.0fK", v/1000)
	}
	return fmt.Sprintf("$%.0f", v)
}

