// ABOUTME: Lead CLI commands
// ABOUTME: Human-friendly commands for adding, listing, updating and deleting leads
package cli

import (
	"flag"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/pages"
)

// AddLeadCommand adds a new lead.
func AddLeadCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("add-lead", flag.ExitOnError)
	first := fs.String("first", "", "First name (required)")
	last := fs.String("last", "", "Last name (required)")
	email := fs.String("email", "", "Email address (required)")
	phone := fs.String("phone", "", "Phone number")
	company := fs.String("company", "", "Company name")
	product := fs.String("product", "", "Product of interest")
	status := fs.String("status", "", "Status (new, qualified, contacted, lost)")
	source := fs.String("source", "", "Source (website, email, phone, referral, social, chat-bot, manual)")
	_ = fs.Parse(args)

	if *first == "" || *last == "" {
		return fmt.Errorf("--first and --last are required")
	}
	if *email == "" {
		return fmt.Errorf("--email is required")
	}
	if *status != "" && !models.Contains(models.LeadStatuses, *status) {
		return fmt.Errorf("invalid status: %s", *status)
	}
	if *source != "" && !models.Contains(models.LeadSources, *source) {
		return fmt.Errorf("invalid source: %s", *source)
	}

	lead, err := pages.NewLeads(app.Store, app.Toaster).Create(app.Ctx, models.Lead{
		FirstName:   *first,
		LastName:    *last,
		Email:       *email,
		Phone:       *phone,
		Company:     *company,
		ProductName: *product,
		Status:      *status,
		Source:      *source,
	})
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	fmt.Fprintf(app.Out, "✓ Lead created: %s (ID: %d)\n", lead.FullName(), lead.ID)
	fmt.Fprintf(app.Out, "  Email: %s\n", lead.Email)
	if lead.Company != "" {
		fmt.Fprintf(app.Out, "  Company: %s\n", lead.Company)
	}
	fmt.Fprintf(app.Out, "  Status: %s, Source: %s\n", lead.Status, lead.Source)
	return nil
}

// ListLeadsCommand lists leads with optional filters.
func ListLeadsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("list-leads", flag.ExitOnError)
	query := fs.String("query", "", "Search by name, email, company or product")
	status := fs.String("status", pages.FilterAll, "Filter by status")
	source := fs.String("source", pages.FilterAll, "Filter by source")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	view := pages.NewLeads(app.Store, app.Toaster).Load(app.Ctx, pages.LeadFilter{Search: *query, Status: *status, Source: *source})
	if view.Error != "" {
		return fmt.Errorf("failed to list leads: %s", view.Error)
	}
	if len(view.Leads) == 0 {
		fmt.Fprintln(app.Out, "No leads found")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tCOMPANY\tSTATUS\tSOURCE")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t-------\t------\t------")
	for i, l := range view.Leads {
		if i >= *limit {
			break
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, l.FullName(), l.Email, dash(l.Company), l.Status, l.Source)
	}
	_ = w.Flush()

	fmt.Fprintf(app.Out, "\n%s\n", view.Summary())
	return nil
}

// UpdateLeadCommand updates an existing lead. Only flags that were passed change.
func UpdateLeadCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("update-lead", flag.ExitOnError)
	first := fs.String("first", "", "First name")
	last := fs.String("last", "", "Last name")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	company := fs.String("company", "", "Company name")
	product := fs.String("product", "", "Product of interest")
	status := fs.String("status", "", "Status")
	source := fs.String("source", "", "Source")
	_ = fs.Parse(args)

	id, err := positionalID(fs, "lead")
	if err != nil {
		return err
	}

	set := setFlags(fs)
	patch := models.LeadPatch{
		FirstName:   pick(set, "first", first),
		LastName:    pick(set, "last", last),
		Email:       pick(set, "email", email),
		Phone:       pick(set, "phone", phone),
		Company:     pick(set, "company", company),
		ProductName: pick(set, "product", product),
		Status:      pick(set, "status", status),
		Source:      pick(set, "source", source),
	}
	if patch.Status != nil && !models.Contains(models.LeadStatuses, *patch.Status) {
		return fmt.Errorf("invalid status: %s", *patch.Status)
	}
	if patch.Source != nil && !models.Contains(models.LeadSources, *patch.Source) {
		return fmt.Errorf("invalid source: %s", *patch.Source)
	}

	lead, err := pages.NewLeads(app.Store, app.Toaster).Update(app.Ctx, id, patch)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	fmt.Fprintf(app.Out, "✓ Lead updated: %s (ID: %d)\n", lead.FullName(), lead.ID)
	return nil
}

// DeleteLeadCommand deletes a lead after confirmation.
func DeleteLeadCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("delete-lead", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Skip confirmation")
	_ = fs.Parse(args)

	id, err := positionalID(fs, "lead")
	if err != nil {
		return err
	}
	lead, err := app.Store.GetLead(app.Ctx, id)
	if err != nil {
		return fmt.Errorf("lead not found: %w", err)
	}
	if !*yes && !app.confirm(fmt.Sprintf("Delete lead %s?", lead.FullName())) {
		fmt.Fprintln(app.Out, "Cancelled")
		return nil
	}

	if err := pages.NewLeads(app.Store, app.Toaster).Delete(app.Ctx, id); err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	fmt.Fprintf(app.Out, "✓ Lead deleted: %d\n", id)
	return nil
}

// positionalID parses the first positional argument as a record id.
func positionalID(fs *flag.FlagSet, entity string) (int, error) {
	if fs.NArg() < 1 {
		return 0, fmt.Errorf("%s ID is required", entity)
	}
	id, err := strconv.Atoi(fs.Arg(0))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", entity, fs.Arg(0))
	}
	return id, nil
}

func setFlags(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func pick[T any](set map[string]bool, name string, v *T) *T {
	if !set[name] {
		return nil
	}
	return v
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
