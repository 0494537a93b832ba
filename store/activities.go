// ABOUTME: Activity collection operations
// ABOUTME: Handles activity CRUD and completion with follow-up detection
package store

import (
	"context"
	"strings"

	"github.com/harperreed/leadpipe/models"
)

// defaultFollowUpDeal is used when a completed call carries no deal.
const defaultFollowUpDeal = 1

func (s *Store) ListActivities(ctx context.Context) ([]models.Activity, error) {
	s.actsMu.RLock()
	out := make([]models.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		out = append(out, a.Clone())
	}
	s.actsMu.RUnlock()

	if err := s.wait(ctx, OpList); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetActivity(ctx context.Context, id int) (models.Activity, error) {
	s.actsMu.RLock()
	i := s.activityIndex(id)
	var act models.Activity
	if i >= 0 {
		act = s.activities[i].Clone()
	}
	s.actsMu.RUnlock()

	if i < 0 {
		return models.Activity{}, notFound("Activity", id)
	}
	if err := s.wait(ctx, OpGet); err != nil {
		return models.Activity{}, err
	}
	return act, nil
}

// CreateActivity stores a new, incomplete activity.
func (s *Store) CreateActivity(ctx context.Context, draft models.Activity) (models.Activity, error) {
	act := draft.Clone()
	act.LeadID = models.NormalizeRef(act.LeadID)
	act.DealID = models.NormalizeRef(act.DealID)
	act.Completed = false
	act.CreatedAt = s.now()

	s.actsMu.Lock()
	maxID := 0
	for _, a := range s.activities {
		maxID = max(maxID, a.ID)
	}
	act.ID = nextID(&s.actsHigh, maxID)
	s.activities = append(s.activities, act)
	out := act.Clone()
	s.actsMu.Unlock()

	s.logger.Debug("activity created", "id", out.ID, "type", out.Type)
	if err := s.wait(ctx, OpCreate); err != nil {
		return models.Activity{}, err
	}
	return out, nil
}

func (s *Store) UpdateActivity(ctx context.Context, id int, patch models.ActivityPatch) (models.Activity, error) {
	s.actsMu.Lock()
	i := s.activityIndex(id)
	if i < 0 {
		s.actsMu.Unlock()
		return models.Activity{}, notFound("Activity", id)
	}
	patch.Apply(&s.activities[i])
	out := s.activities[i].Clone()
	s.actsMu.Unlock()

	if err := s.wait(ctx, OpUpdate); err != nil {
		return models.Activity{}, err
	}
	return out, nil
}

// MarkComplete flags an activity as done. Calls with notes request a
// follow-up, defaulting the deal to 1 when the call is not tied to one.
func (s *Store) MarkComplete(ctx context.Context, id int) (models.CompletionResult, error) {
	s.actsMu.Lock()
	i := s.activityIndex(id)
	if i < 0 {
		s.actsMu.Unlock()
		return models.CompletionResult{}, notFound("Activity", id)
	}
	s.activities[i].Completed = true
	act := s.activities[i].Clone()
	s.actsMu.Unlock()

	result := models.CompletionResult{Activity: act}
	if notes := act.CallNotes(); act.Type == models.ActivityCall && strings.TrimSpace(notes) != "" {
		result.TriggerFollowUp = true
		result.Notes = notes
		result.DealID = defaultFollowUpDeal
		if act.DealID != nil {
			result.DealID = *act.DealID
		}
	}

	if err := s.wait(ctx, OpComplete); err != nil {
		return models.CompletionResult{}, err
	}
	return result, nil
}

func (s *Store) DeleteActivity(ctx context.Context, id int) (models.Activity, error) {
	s.actsMu.Lock()
	i := s.activityIndex(id)
	if i < 0 {
		s.actsMu.Unlock()
		return models.Activity{}, notFound("Activity", id)
	}
	removed := s.activities[i]
	s.activities = append(s.activities[:i], s.activities[i+1:]...)
	s.actsMu.Unlock()

	if err := s.wait(ctx, OpDelete); err != nil {
		return models.Activity{}, err
	}
	return removed, nil
}

// caller holds actsMu
func (s *Store) activityIndex(id int) int {
	for i := range s.activities {
		if s.activities[i].ID == id {
			return i
		}
	}
	return -1
}
