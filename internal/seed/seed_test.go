package seed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

func TestDemo(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	doc, err := Demo(now)
	require.NoError(t, err)

	assert.Equal(t, "Mary", doc.Couple.Partner1.Name)
	assert.Equal(t, "John", doc.Couple.Partner2.Name)
	assert.NotEmpty(t, doc.Tasks)
	assert.Empty(t, doc.Budget.OrphanedExpenses())
	assert.True(t, doc.UpdatedAt.Time.Equal(now))
	assert.False(t, doc.Settings.PINSet())

	again, err := Demo(now)
	require.NoError(t, err)
	again.Tasks[0].Title = "changed"
	assert.NotEqual(t, again.Tasks[0].Title, doc.Tasks[0].Title, "each call must return an independent document")
}

func TestDefault(t *testing.T) {
	now := time.Now()
	settings := models.DefaultSettings()
	settings.Language = models.LanguageTurkish

	doc := Default("", "Ali", settings, now)

	assert.Equal(t, "Partner 1", doc.Couple.Partner1.Name)
	assert.Equal(t, "Ali", doc.Couple.Partner2.Name)
	require.Len(t, doc.TaskCategories, 6)
	assert.Equal(t, "Düğün", doc.TaskCategories[0].Name)
	assert.NotNil(t, doc.Tasks)
	assert.NotNil(t, doc.MealPlan)
	assert.NotNil(t, doc.Budget.Expenses)
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)
}
