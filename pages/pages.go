// ABOUTME: Shared plumbing for the page controllers
// ABOUTME: Declares the store and toast interfaces every page works against
package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/leadpipe/models"
)

// ErrIllegalTransition is returned when a deal move skips or reverses a pipeline edge.
var ErrIllegalTransition = errors.New("illegal stage transition")

// TransitionError names the refused edge and matches ErrIllegalTransition.
type TransitionError struct {
	From, To string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s to %s", ErrIllegalTransition, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

func forwardOnly(from, to string) error {
	if !models.CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// Toaster shows short user-facing messages.
type Toaster interface {
	Success(msg string)
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

type LeadStore interface {
	ListLeads(ctx context.Context) ([]models.Lead, error)
	CreateLead(ctx context.Context, draft models.Lead) (models.Lead, error)
	UpdateLead(ctx context.Context, id int, patch models.LeadPatch) (models.Lead, error)
	DeleteLead(ctx context.Context, id int) (models.Lead, error)
	TouchLead(ctx context.Context, id int, at time.Time) (models.Lead, error)
}

type DealStore interface {
	ListDeals(ctx context.Context) ([]models.Deal, error)
	GetDeal(ctx context.Context, id int) (models.Deal, error)
	CreateDeal(ctx context.Context, draft models.Deal) (models.Deal, error)
	UpdateDeal(ctx context.Context, id int, patch models.DealPatch) (models.Deal, error)
	DeleteDeal(ctx context.Context, id int) (models.Deal, error)
	MoveStageChecked(ctx context.Context, id int, stage string, allow func(from, to string) error) (models.Deal, error)
}

type ActivityStore interface {
	ListActivities(ctx context.Context) ([]models.Activity, error)
	CreateActivity(ctx context.Context, draft models.Activity) (models.Activity, error)
	UpdateActivity(ctx context.Context, id int, patch models.ActivityPatch) (models.Activity, error)
	DeleteActivity(ctx context.Context, id int) (models.Activity, error)
	MarkComplete(ctx context.Context, id int) (models.CompletionResult, error)
}

// Store is everything the pages need from the entity store.
type Store interface {
	LeadStore
	DealStore
	ActivityStore
}

// FilterAll disables a select filter.
const FilterAll = "all"

// nopToaster drops every message.
type nopToaster struct{}

func (nopToaster) Success(string) {}
func (nopToaster) Info(string)    {}
func (nopToaster) Warning(string) {}
func (nopToaster) Error(string)   {}

func toasterOrNop(t Toaster) Toaster {
	if t == nil {
		return nopToaster{}
	}
	return t
}

func clockOrNow(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

// errMessage returns err's text, or fallback when it has none.
func errMessage(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func isFiltered(v string) bool {
	return v != "" && v != FilterAll
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(float64(part)/float64(whole)*100 + 0.5)
}
