package state

import (
	"context"
	"fmt"
	"time"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

func habitID(h models.Habit) int64       { return h.ID }
func dateIdeaID(d models.DateIdea) int64 { return d.ID }

// AddHabit appends a habit without completions and returns its ID.
func (s *Store) AddHabit(ctx context.Context, h models.Habit) (int64, error) {
	var id int64
	err := s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		id = models.NextID(doc.Habits, habitID, s.now())
		h.ID = id
		h.Completions = map[string]bool{}
		h.Streak = 0
		habits := appendItem(doc.Habits, h)
		return models.Patch{Habits: &habits}, nil
	})
	return id, err
}

// ToggleHabitCompletion flips the completion of date (YYYY-MM-DD) and
// recomputes the streak.
func (s *Store) ToggleHabitCompletion(ctx context.Context, id int64, date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		today := s.now()
		habits, ok := updateByID(doc.Habits, id, habitID, func(h *models.Habit) {
			*h = h.ToggleCompletion(date, today)
		})
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{Habits: &habits}, nil
	})
}

// DeleteHabit removes a habit.
func (s *Store) DeleteHabit(ctx context.Context, id int64) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		habits, ok := deleteByID(doc.Habits, id, habitID)
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{Habits: &habits}, nil
	})
}

// AddDateIdea appends an unrated idea and returns its ID.
func (s *Store) AddDateIdea(ctx context.Context, d models.DateIdea) (int64, error) {
	var id int64
	err := s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		id = models.NextID(doc.DateIdeas, dateIdeaID, s.now())
		d.ID = id
		d.Done = false
		d.Rating = nil
		ideas := appendItem(doc.DateIdeas, d)
		return models.Patch{DateIdeas: &ideas}, nil
	})
	return id, err
}

// UpdateDateIdea edits an idea.
func (s *Store) UpdateDateIdea(ctx context.Context, id int64, edit func(*models.DateIdea)) error {
	return s.editDateIdeas(ctx, id, func(d *models.DateIdea) {
		edit(d)
		d.ID = id
	})
}

// ToggleDateIdeaDone flips an idea's done flag.
func (s *Store) ToggleDateIdeaDone(ctx context.Context, id int64) error {
	return s.editDateIdeas(ctx, id, func(d *models.DateIdea) { d.Done = !d.Done })
}

// RateDateIdea rates an idea and marks it done.
func (s *Store) RateDateIdea(ctx context.Context, id int64, rating int) error {
	return s.editDateIdeas(ctx, id, func(d *models.DateIdea) {
		d.Rating = &rating
		d.Done = true
	})
}

// DeleteDateIdea removes an idea.
func (s *Store) DeleteDateIdea(ctx context.Context, id int64) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		ideas, ok := deleteByID(doc.DateIdeas, id, dateIdeaID)
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{DateIdeas: &ideas}, nil
	})
}

func (s *Store) editDateIdeas(ctx context.Context, id int64, fn func(*models.DateIdea)) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		ideas, ok := updateByID(doc.DateIdeas, id, dateIdeaID, fn)
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{DateIdeas: &ideas}, nil
	})
}
