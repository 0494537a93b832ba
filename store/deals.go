// ABOUTME: Deal collection operations
// ABOUTME: Handles deal CRUD and pipeline stage moves
package store

import (
	"context"

	"github.com/harperreed/leadpipe/models"
)

func (s *Store) ListDeals(ctx context.Context) ([]models.Deal, error) {
	s.dealsMu.RLock()
	out := make([]models.Deal, 0, len(s.deals))
	for _, d := range s.deals {
		out = append(out, d.Clone())
	}
	s.dealsMu.RUnlock()

	if err := s.wait(ctx, OpList); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetDeal(ctx context.Context, id int) (models.Deal, error) {
	s.dealsMu.RLock()
	i := s.dealIndex(id)
	var deal models.Deal
	if i >= 0 {
		deal = s.deals[i].Clone()
	}
	s.dealsMu.RUnlock()

	if i < 0 {
		return models.Deal{}, notFound("Deal", id)
	}
	if err := s.wait(ctx, OpGet); err != nil {
		return models.Deal{}, err
	}
	return deal, nil
}

// CreateDeal stores a new deal. Stage defaults to prospecting; probability is
// taken from the draft as given.
func (s *Store) CreateDeal(ctx context.Context, draft models.Deal) (models.Deal, error) {
	deal := draft.Clone()
	deal.LeadID = models.NormalizeRef(deal.LeadID)
	deal.AssigneeID = models.NormalizeRef(deal.AssigneeID)
	if deal.Stage == "" {
		deal.Stage = models.StageProspecting
	}
	deal.CreatedAt = s.now()

	s.dealsMu.Lock()
	maxID := 0
	for _, d := range s.deals {
		maxID = max(maxID, d.ID)
	}
	deal.ID = nextID(&s.dealsHigh, maxID)
	s.deals = append(s.deals, deal)
	out := deal.Clone()
	s.dealsMu.Unlock()

	s.logger.Debug("deal created", "id", out.ID, "stage", out.Stage)
	if err := s.wait(ctx, OpCreate); err != nil {
		return models.Deal{}, err
	}
	return out, nil
}

func (s *Store) UpdateDeal(ctx context.Context, id int, patch models.DealPatch) (models.Deal, error) {
	s.dealsMu.Lock()
	i := s.dealIndex(id)
	if i < 0 {
		s.dealsMu.Unlock()
		return models.Deal{}, notFound("Deal", id)
	}
	patch.Apply(&s.deals[i])
	out := s.deals[i].Clone()
	s.dealsMu.Unlock()

	if err := s.wait(ctx, OpUpdate); err != nil {
		return models.Deal{}, err
	}
	return out, nil
}

// MoveStage sets the stage of a deal and overwrites its probability from the
// stage table. Any stage is accepted here; unknown stages keep the current
// probability. Pipeline edges are enforced by the callers.
func (s *Store) MoveStage(ctx context.Context, id int, stage string) (models.Deal, error) {
	return s.moveStage(ctx, id, stage, nil)
}

// MoveStageChecked is MoveStage with a guard evaluated under the deals lock
// against the deal's current stage. A non-nil error from allow is returned
// as is and the deal is left untouched. allow must not call back into the store.
func (s *Store) MoveStageChecked(ctx context.Context, id int, stage string, allow func(from, to string) error) (models.Deal, error) {
	return s.moveStage(ctx, id, stage, allow)
}

func (s *Store) moveStage(ctx context.Context, id int, stage string, allow func(from, to string) error) (models.Deal, error) {
	s.dealsMu.Lock()
	i := s.dealIndex(id)
	if i < 0 {
		s.dealsMu.Unlock()
		return models.Deal{}, notFound("Deal", id)
	}
	from := s.deals[i].Stage
	if allow != nil {
		if err := allow(from, stage); err != nil {
			s.dealsMu.Unlock()
			return models.Deal{}, err
		}
	}
	s.deals[i].Stage = stage
	if p, ok := models.StageProbability(stage); ok {
		s.deals[i].Probability = p
	}
	out := s.deals[i].Clone()
	s.dealsMu.Unlock()

	s.logger.Debug("deal moved", "id", id, "from", from, "to", stage)
	if err := s.wait(ctx, OpMove); err != nil {
		return models.Deal{}, err
	}
	return out, nil
}

func (s *Store) DeleteDeal(ctx context.Context, id int) (models.Deal, error) {
	s.dealsMu.Lock()
	i := s.dealIndex(id)
	if i < 0 {
		s.dealsMu.Unlock()
		return models.Deal{}, notFound("Deal", id)
	}
	removed := s.deals[i]
	s.deals = append(s.deals[:i], s.deals[i+1:]...)
	s.dealsMu.Unlock()

	if err := s.wait(ctx, OpDelete); err != nil {
		return models.Deal{}, err
	}
	return removed, nil
}

// caller holds dealsMu
func (s *Store) dealIndex(id int) int {
	for i := range s.deals {
		if s.deals[i].ID == id {
			return i
		}
	}
	return -1
}
