package state

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/models"
	"github.com/atinyakov/CoupleHQ/internal/seed"
)

// exportFile is the backup format. It carries no couple ID so a backup can
// be restored into any couple.
type exportFile struct {
	Couple         *models.Couple        `json:"couple"`
	Tasks          []models.Task         `json:"tasks"`
	TaskCategories []models.TaskCategory `json:"taskCategories"`
	Budget         *models.Budget        `json:"budget"`
	Notes          []models.Note         `json:"notes"`
	Goals          []models.Goal         `json:"goals"`
	Events         []models.Event        `json:"events"`
	Wishlist       []models.WishlistItem `json:"wishlist"`
	Memories       []models.Memory       `json:"memories"`
	ShoppingLists  []models.ShoppingList `json:"shoppingLists"`
	LoveNotes      []models.LoveNote     `json:"loveNotes"`
	Habits         []models.Habit        `json:"habits"`
	DateIdeas      []models.DateIdea     `json:"dateIdeas"`
	MealPlan       map[string]any        `json:"mealPlan"`
	Settings       *models.Settings      `json:"settings"`
	ExportDate     string                `json:"exportDate,omitempty"`
}

// Export serializes the current document as indented JSON.
func (s *Store) Export() ([]byte, error) {
	doc := s.Document()
	settings := doc.Settings.WithoutPINSecrets()
	out := exportFile{
		Couple:         &doc.Couple,
		Tasks:          doc.Tasks,
		TaskCategories: doc.TaskCategories,
		Budget:         &doc.Budget,
		Notes:          doc.Notes,
		Goals:          doc.Goals,
		Events:         doc.Events,
		Wishlist:       doc.Wishlist,
		Memories:       doc.Memories,
		ShoppingLists:  doc.ShoppingLists,
		LoveNotes:      doc.LoveNotes,
		Habits:         doc.Habits,
		DateIdeas:      doc.DateIdeas,
		MealPlan:       doc.MealPlan,
		Settings:       &settings,
		ExportDate:     s.now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

// Import replaces every collection with the ones in data and persists the
// result. Missing collections become empty; a missing couple profile,
// task category list, budget or settings keeps the current one. The PIN is
// never taken from a backup. It reports false and changes nothing when data
// is not a JSON object or cannot be persisted.
func (s *Store) Import(ctx context.Context, data []byte) bool {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		s.log.Info("import rejected", zap.String("reason", "backup is not a JSON object"))
		return false
	}
	var in exportFile
	if err := json.Unmarshal(data, &in); err != nil {
		s.log.Info("import rejected", zap.Error(err))
		return false
	}

	err := s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		next := models.CoupleDocument{
			Couple:         doc.Couple,
			Tasks:          in.Tasks,
			TaskCategories: doc.TaskCategories,
			Budget:         doc.Budget,
			Notes:          in.Notes,
			Goals:          in.Goals,
			Events:         in.Events,
			Wishlist:       in.Wishlist,
			Memories:       in.Memories,
			ShoppingLists:  in.ShoppingLists,
			LoveNotes:      in.LoveNotes,
			Habits:         in.Habits,
			DateIdeas:      in.DateIdeas,
			MealPlan:       in.MealPlan,
			Settings:       doc.Settings,
		}
		if in.Couple != nil {
			next.Couple = *in.Couple
		}
		if in.TaskCategories != nil {
			next.TaskCategories = in.TaskCategories
		}
		if in.Budget != nil {
			next.Budget = *in.Budget
		}
		if in.Settings != nil {
			next.Settings = *in.Settings
			next.Settings.CopyPIN(doc.Settings)
		}
		next.Normalize()
		return models.PatchFrom(next), nil
	})
	if err != nil {
		s.log.Warn("import failed", zap.Error(err))
		return false
	}
	return true
}

// ResetAll clears every collection and the budget. The couple profile, task
// categories and settings are kept.
func (s *Store) ResetAll(ctx context.Context) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		next := models.CoupleDocument{
			Couple:         doc.Couple,
			TaskCategories: doc.TaskCategories,
			Budget:         seed.EmptyBudget(doc.Settings.Currency),
			Settings:       doc.Settings,
		}
		next.Normalize()
		return models.PatchFrom(next), nil
	})
}
