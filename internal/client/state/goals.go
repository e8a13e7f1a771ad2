package state

import (
	"context"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

func goalID(g models.Goal) int64                 { return g.ID }
func contributionID(c models.Contribution) int64 { return c.ID }

// AddGoal appends a goal with no progress and returns its ID.
func (s *Store) AddGoal(ctx context.Context, g models.Goal) (int64, error) {
	var id int64
	err := s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		id = models.NextID(doc.Goals, goalID, s.now())
		g.ID = id
		g.Current = 0
		g.Contributions = []models.Contribution{}
		goals := appendItem(doc.Goals, g)
		return models.Patch{Goals: &goals}, nil
	})
	return id, err
}

// UpdateGoal edits a goal's descriptive fields. Progress is only changed
// through UpdateGoalProgress so it stays within [0, target].
func (s *Store) UpdateGoal(ctx context.Context, id int64, edit func(*models.Goal)) error {
	return s.editGoals(ctx, id, func(g *models.Goal) bool {
		edit(g)
		g.ID = id
		g.Current = models.ClampProgress(g.Current, g.Target)
		return true
	})
}

// UpdateGoalProgress adds a signed amount to a goal, clamping the result,
// and records it as a contribution.
func (s *Store) UpdateGoalProgress(ctx context.Context, id int64, amount float64, note string) error {
	return s.editGoals(ctx, id, func(g *models.Goal) bool {
		*g = g.WithProgress(models.Contribution{
			ID:     models.NextID(g.Contributions, contributionID, s.now()),
			Amount: amount,
			Date:   s.today(),
			Note:   note,
		})
		return true
	})
}

// DeleteGoalContribution removes a contribution and takes its amount back
// off the goal.
func (s *Store) DeleteGoalContribution(ctx context.Context, goalID, contributionID int64) error {
	return s.editGoals(ctx, goalID, func(g *models.Goal) bool {
		out, ok := g.WithoutContribution(contributionID)
		*g = out
		return ok
	})
}

// DeleteGoal removes a goal.
func (s *Store) DeleteGoal(ctx context.Context, id int64) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		goals, ok := deleteByID(doc.Goals, id, goalID)
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{Goals: &goals}, nil
	})
}

func (s *Store) editGoals(ctx context.Context, id int64, fn func(*models.Goal) bool) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		found := true
		goals, ok := updateByID(doc.Goals, id, goalID, func(g *models.Goal) { found = fn(g) })
		if !ok || !found {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{Goals: &goals}, nil
	})
}
