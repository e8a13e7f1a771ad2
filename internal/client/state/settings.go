package state

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

// UpdateSettings edits the couple settings. It is allowed on demo couples.
// The PIN cannot be changed here; use SetPIN and RemovePIN.
func (s *Store) UpdateSettings(ctx context.Context, edit func(*models.Settings)) error {
	var before, after models.Settings
	err := s.mutate(ctx, true, func(doc *models.CoupleDocument) (models.Patch, error) {
		before = doc.Settings
		after = before
		edit(&after)
		after.CopyPIN(before)
		return models.Patch{Settings: &after}, nil
	})
	if err != nil {
		return err
	}

	if after.Theme != before.Theme {
		s.applyTheme(after.Theme)
		if s.prefs != nil {
			if err := s.prefs.SetDarkMode(ctx, after.Theme == models.ThemeDark); err != nil {
				s.log.Warn("failed to store dark mode preference", zap.Error(err))
			}
		}
	}
	if after.Language != before.Language && s.prefs != nil {
		if err := s.prefs.SetLanguage(ctx, after.Language); err != nil {
			s.log.Warn("failed to store language preference", zap.Error(err))
		}
	}
	return nil
}

// SetMeal sets the meal plan entry for day.
func (s *Store) SetMeal(ctx context.Context, day string, value any) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		plan := make(map[string]any, len(doc.MealPlan)+1)
		for k, v := range doc.MealPlan {
			plan[k] = v
		}
		plan[day] = value
		return models.Patch{MealPlan: &plan}, nil
	})
}

// ClearMeal removes the meal plan entry for day.
func (s *Store) ClearMeal(ctx context.Context, day string) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		if _, ok := doc.MealPlan[day]; !ok {
			return models.Patch{}, ErrItemNotFound
		}
		plan := make(map[string]any, len(doc.MealPlan))
		for k, v := range doc.MealPlan {
			if k != day {
				plan[k] = v
			}
		}
		return models.Patch{MealPlan: &plan}, nil
	})
}

// SetPIN protects the couple with pin. current must match an existing PIN.
func (s *Store) SetPIN(ctx context.Context, current, pin string) error {
	return s.changePIN(ctx, func(pm PINManager) error { return pm.SetPIN(ctx, current, pin) })
}

// RemovePIN removes the PIN after checking current.
func (s *Store) RemovePIN(ctx context.Context, current string) error {
	return s.changePIN(ctx, func(pm PINManager) error { return pm.RemovePIN(ctx, current) })
}

func (s *Store) changePIN(ctx context.Context, fn func(PINManager) error) error {
	pm, ok := s.persister.(PINManager)
	if !ok {
		return errors.New("pin management is not supported")
	}

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if err := fn(pm); err != nil {
		s.mu.Unlock()
		return err
	}
	if doc, ok := pm.Document(); ok {
		doc.Normalize()
		s.doc = doc
	}
	doc := s.doc.Clone()
	s.mu.Unlock()

	s.notify(doc)
	return nil
}
