// ABOUTME: Activities page controller
// ABOUTME: Filters and orders activities and completes them with follow-up creation
package pages

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/leadpipe/models"
)

// Activity status filter values.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
)

const (
	msgMarkedComplete = "Activity marked as complete"
	msgFollowUpFailed = "Follow-up creation failed - please create manually if needed"
)

type ActivityFilter struct {
	Search string
	Type   string
	Status string
}

type ActivitiesView struct {
	Activities []models.Activity `json:"activities"`
	Total      int               `json:"total"`
	Error      string            `json:"error,omitempty"`
}

func (v ActivitiesView) Summary() string {
	return fmt.Sprintf("Showing %d of %d activities", len(v.Activities), v.Total)
}

type Activities struct {
	store    Store
	toast    Toaster
	followUp FollowUpProcessor
	logger   *log.Logger
	now      func() time.Time
}

type ActivitiesOptions struct {
	Toaster  Toaster
	FollowUp FollowUpProcessor
	Logger   *log.Logger
	Now      func() time.Time
}

func NewActivities(store Store, opts ActivitiesOptions) *Activities {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Activities{
		store:    store,
		toast:    toasterOrNop(opts.Toaster),
		followUp: opts.FollowUp,
		logger:   logger.WithPrefix("activities"),
		now:      clockOrNow(opts.Now),
	}
}

func (p *Activities) Load(ctx context.Context, f ActivityFilter) ActivitiesView {
	acts, err := p.store.ListActivities(ctx)
	if err != nil {
		return ActivitiesView{Error: errMessage(err, "Failed to load activities")}
	}
	return ActivitiesView{Activities: FilterActivities(acts, f), Total: len(acts)}
}

// FilterActivities searches subject and notes, applies the type and status
// filters and orders incomplete activities first, each group by due date.
func FilterActivities(acts []models.Activity, f ActivityFilter) []models.Activity {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Activity, 0, len(acts))
	for _, a := range acts {
		if term != "" && !containsFold(a.Subject, term) && !containsFold(a.Notes, term) {
			continue
		}
		if isFiltered(f.Type) && a.Type != f.Type {
			continue
		}
		switch f.Status {
		case StatusCompleted:
			if !a.Completed {
				continue
			}
		case StatusPending:
			if a.Completed {
				continue
			}
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Completed != out[j].Completed {
			return !out[i].Completed
		}
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out
}

func (p *Activities) Create(ctx context.Context, draft models.Activity) (models.Activity, error) {
	act, err := p.store.CreateActivity(ctx, draft)
	if err != nil {
		p.toast.Error(errMessage(err, "Failed to save activity"))
		return models.Activity{}, err
	}
	p.toast.Success("Activity created successfully!")
	return act, nil
}

func (p *Activities) Update(ctx context.Context, id int, patch models.ActivityPatch) (models.Activity, error) {
	act, err := p.store.UpdateActivity(ctx, id, patch)
	if err != nil {
		p.toast.Error(errMessage(err, "Failed to save activity"))
		return models.Activity{}, err
	}
	p.toast.Success("Activity updated successfully!")
	return act, nil
}

func (p *Activities) Delete(ctx context.Context, id int) error {
	if _, err := p.store.DeleteActivity(ctx, id); err != nil {
		p.toast.Error(errMessage(err, "Failed to delete activity"))
		return err
	}
	p.toast.Success("Activity deleted successfully!")
	return nil
}

// MarkComplete completes the activity and, for calls with notes, asks the
// follow-up processor to create the next step. Follow-up failures only
// produce a warning toast.
func (p *Activities) MarkComplete(ctx context.Context, id int) (models.CompletionResult, error) {
	res, err := p.store.MarkComplete(ctx, id)
	if err != nil {
		p.toast.Error(errMessage(err, "Failed to mark activity as complete"))
		return models.CompletionResult{}, err
	}

	p.touchLead(ctx, res.Activity)

	if !res.TriggerFollowUp || res.Notes == "" || res.DealID == 0 {
		p.toast.Success(msgMarkedComplete)
		return res, nil
	}
	if p.followUp == nil {
		p.logger.Warn("no follow-up processor configured", "activity", res.Activity.ID)
		p.toast.Success(msgMarkedComplete)
		p.toast.Warning(msgFollowUpFailed)
		return res, nil
	}

	out, err := p.followUp.ProcessCallCompletion(ctx, FollowUpRequest{
		ActivityID: res.Activity.ID,
		Notes:      res.Notes,
		DealID:     res.DealID,
	})
	if err != nil || !out.Success {
		p.logger.Info("follow-up creation failed", "activity", res.Activity.ID, "err", err, "response", out)
		p.toast.Success(msgMarkedComplete)
		p.toast.Warning(msgFollowUpFailed)
		return res, nil
	}
	p.toast.Success(fmt.Sprintf("Activity marked complete. %s", out.Data.Message))
	return res, nil
}

// touchLead records contact with the linked lead for conversational activities.
func (p *Activities) touchLead(ctx context.Context, a models.Activity) {
	if a.LeadID == nil {
		return
	}
	switch a.Type {
	case models.ActivityCall, models.ActivityEmail, models.ActivityMeeting:
	default:
		return
	}
	if _, err := p.store.TouchLead(ctx, *a.LeadID, p.now()); err != nil {
		p.logger.Debug("could not update last contact", "lead", *a.LeadID, "err", err)
	}
}
