// Package seed builds the documents a couple starts with: the empty default
// document and the canned demo document.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

//go:embed demo.json
var demoJSON []byte

// Demo returns a fresh copy of the canned demo document stamped with now.
func Demo(now time.Time) (models.CoupleDocument, error) {
	var doc models.CoupleDocument
	if err := json.Unmarshal(demoJSON, &doc); err != nil {
		return models.CoupleDocument{}, fmt.Errorf("decode demo document: %w", err)
	}
	doc.Normalize()
	doc.CreatedAt = models.NewTimestamp(now)
	doc.UpdatedAt = doc.CreatedAt
	return doc, nil
}

// Default returns the document of a newly created couple. Empty partner
// names fall back to placeholders; task categories follow settings.Language.
func Default(partner1, partner2 string, settings models.Settings, now time.Time) models.CoupleDocument {
	if partner1 == "" {
		partner1 = "Partner 1"
	}
	if partner2 == "" {
		partner2 = "Partner 2"
	}

	doc := models.CoupleDocument{
		Couple: models.Couple{
			Partner1: models.Partner{Name: partner1, Avatar: "User", Color: "#ec4899"},
			Partner2: models.Partner{Name: partner2, Avatar: "UserCircle", Color: "#8b5cf6"},
		},
		TaskCategories: TaskCategories(settings.Language),
		Budget:         models.Budget{Currency: settings.Currency},
		Settings:       settings,
		CreatedAt:      models.NewTimestamp(now),
	}
	doc.UpdatedAt = doc.CreatedAt
	doc.Normalize()
	return doc
}

// TaskCategories returns the built-in task categories in the given language.
func TaskCategories(language string) []models.TaskCategory {
	names := map[string]string{
		"wedding":  "Wedding",
		"home":     "Home",
		"travel":   "Travel",
		"shopping": "Shopping",
		"health":   "Health",
		"other":    "Other",
	}
	if language == models.LanguageTurkish {
		names = map[string]string{
			"wedding":  "Düğün",
			"home":     "Ev",
			"travel":   "Seyahat",
			"shopping": "Alışveriş",
			"health":   "Sağlık",
			"other":    "Diğer",
		}
	}

	return []models.TaskCategory{
		{ID: "wedding", Name: names["wedding"], Color: "#ec4899", Icon: "Heart"},
		{ID: "home", Name: names["home"], Color: "#10b981", Icon: "Home"},
		{ID: "travel", Name: names["travel"], Color: "#06b6d4", Icon: "Plane"},
		{ID: "shopping", Name: names["shopping"], Color: "#f59e0b", Icon: "ShoppingBag"},
		{ID: "health", Name: names["health"], Color: "#ef4444", Icon: "Activity"},
		{ID: "other", Name: names["other"], Color: "#6b7280", Icon: "Circle"},
	}
}

// EmptyBudget returns a budget with no categories, expenses or income.
func EmptyBudget(currency string) models.Budget {
	b := models.Budget{
		Currency:   currency,
		Categories: []models.BudgetCategory{},
		Expenses:   []models.Expense{},
		Income:     []models.Income{},
	}
	return b
}
