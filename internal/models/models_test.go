package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestGoalWithProgress_Clamps(t *testing.T) {
	deltas := []float64{50, 80, -300, 20, 1000, -5, -5, 0, -1e9, 99.5}
	g := Goal{ID: 1, Title: "Fund", Target: 100}

	for i, d := range deltas {
		before := len(g.Contributions)
		g = g.WithProgress(Contribution{ID: int64(i + 1), Amount: d})

		if g.Current < 0 || g.Current > g.Target {
			t.Fatalf("step %d: current %v outside [0, %v]", i, g.Current, g.Target)
		}
		if len(g.Contributions) != before+1 {
			t.Fatalf("step %d: contributions = %d; want %d", i, len(g.Contributions), before+1)
		}
		if got := g.Contributions[len(g.Contributions)-1].Amount; got != d {
			t.Errorf("step %d: contribution amount = %v; want %v", i, got, d)
		}
	}
}

func TestGoalWithoutContribution(t *testing.T) {
	g := Goal{Target: 100, Current: 30, Contributions: []Contribution{{ID: 1, Amount: 50}, {ID: 2, Amount: 10}}}

	out, ok := g.WithoutContribution(1)
	if !ok {
		t.Fatal("expected contribution to be found")
	}
	if out.Current != 0 {
		t.Errorf("current = %v; want 0", out.Current)
	}
	if len(out.Contributions) != 1 || out.Contributions[0].ID != 2 {
		t.Errorf("unexpected contributions: %+v", out.Contributions)
	}
	if len(g.Contributions) != 2 {
		t.Error("original goal must not be modified")
	}

	if _, ok := g.WithoutContribution(42); ok {
		t.Error("expected missing contribution to report false")
	}
}

func TestStreak(t *testing.T) {
	today := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	day := func(offset int) string { return DateKey(today.AddDate(0, 0, -offset)) }

	tests := []struct {
		name        string
		completions map[string]bool
		want        int
	}{
		{"three consecutive days ending today", map[string]bool{day(0): true, day(1): true, day(2): true}, 3},
		{"gap before the run", map[string]bool{day(0): true, day(1): true, day(3): true, day(4): true}, 2},
		{"today not completed", map[string]bool{day(1): true, day(2): true}, 0},
		{"only today", map[string]bool{day(0): true}, 1},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Streak(tt.completions, today); got != tt.want {
				t.Errorf("Streak = %d; want %d", got, tt.want)
			}
		})
	}
}

func TestStreak_Window(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	completions := map[string]bool{}
	for i := 0; i < 500; i++ {
		completions[DateKey(today.AddDate(0, 0, -i))] = true
	}
	if got := Streak(completions, today); got != streakWindow {
		t.Errorf("Streak = %d; want %d", got, streakWindow)
	}
}

func TestHabitToggleCompletion(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	h := Habit{ID: 1, Title: "Walk"}

	h = h.ToggleCompletion(DateKey(today), today)
	if h.Streak != 1 || !h.Completions[DateKey(today)] {
		t.Fatalf("after first toggle: %+v", h)
	}
	h = h.ToggleCompletion(DateKey(today), today)
	if h.Streak != 0 || h.Completions[DateKey(today)] {
		t.Fatalf("after second toggle: %+v", h)
	}
}

func TestBudgetWithoutCategory_Cascades(t *testing.T) {
	b := Budget{
		Categories: []BudgetCategory{{ID: 1, Name: "Wedding"}, {ID: 2, Name: "Home"}},
		Expenses: []Expense{
			{ID: 10, CategoryID: 1, Amount: 5},
			{ID: 11, CategoryID: 2, Amount: 7},
			{ID: 12, CategoryID: 1, Amount: 9},
		},
	}

	out := b.WithoutCategory(1)

	if len(out.Categories) != 1 || out.Categories[0].ID != 2 {
		t.Fatalf("categories = %+v", out.Categories)
	}
	if len(out.Expenses) != 1 || out.Expenses[0].ID != 11 {
		t.Fatalf("expenses = %+v", out.Expenses)
	}
	if orphans := out.OrphanedExpenses(); len(orphans) != 0 {
		t.Errorf("orphaned expenses: %+v", orphans)
	}
	if len(b.Expenses) != 3 {
		t.Error("original budget must not be modified")
	}
}

func TestBudgetExpenseSpent(t *testing.T) {
	b := Budget{Categories: []BudgetCategory{{ID: 1, Spent: 0}}}

	b = b.WithExpense(Expense{ID: 5, CategoryID: 1, Amount: 40})
	if b.Categories[0].Spent != 40 {
		t.Fatalf("spent = %v; want 40", b.Categories[0].Spent)
	}

	b.Categories[0].Spent = 10
	b, ok := b.WithoutExpense(5)
	if !ok {
		t.Fatal("expected expense to be removed")
	}
	if b.Categories[0].Spent != 0 {
		t.Errorf("spent = %v; want 0", b.Categories[0].Spent)
	}
	if _, ok := b.WithoutExpense(5); ok {
		t.Error("expected second removal to report false")
	}
}

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	want := time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC)
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"epoch millis", "1736929800000", want},
		{"rfc3339", `"2025-01-15T08:30:00Z"`, want},
		{"rfc3339 offset", `"2025-01-15T11:30:00+03:00"`, want},
		{"null", "null", time.Time{}},
		{"empty string", `""`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tt.input), &ts); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !ts.Time.Equal(tt.want) {
				t.Errorf("got %v; want %v", ts.Time, tt.want)
			}
		})
	}

	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Error("expected error for malformed timestamp")
	}
}

func TestApply_ShallowMerge(t *testing.T) {
	doc := CoupleDocument{
		ID:    "abc",
		Tasks: []Task{{ID: 1, Title: "a"}},
		Notes: []Note{{ID: 2, Title: "n"}},
	}
	tasks := []Task{{ID: 3, Title: "b"}}

	out := doc.Apply(Patch{Tasks: &tasks})

	if len(out.Tasks) != 1 || out.Tasks[0].ID != 3 {
		t.Errorf("tasks = %+v", out.Tasks)
	}
	if len(out.Notes) != 1 || out.Notes[0].ID != 2 {
		t.Errorf("notes should be untouched: %+v", out.Notes)
	}
	if out.ID != "abc" {
		t.Errorf("id = %q", out.ID)
	}
}

func TestSettings_PIN(t *testing.T) {
	s := Settings{PIN: "1234"}
	if !s.PINSet() {
		t.Fatal("legacy pin should count as set")
	}
	changed, err := s.MigrateLegacyPIN()
	if err != nil || !changed {
		t.Fatalf("MigrateLegacyPIN = %v, %v", changed, err)
	}
	if s.PIN != "" || s.PINHash == "" {
		t.Fatalf("unexpected settings after migration: %+v", s)
	}
	if !s.CheckPIN("1234") {
		t.Error("expected pin to verify")
	}
	if s.CheckPIN("0000") {
		t.Error("expected wrong pin to fail")
	}

	stripped := s.WithoutPINSecrets()
	if stripped.PINHash != "" || stripped.PINSet() {
		t.Errorf("unexpected settings after stripping: %+v", stripped)
	}
	if !(Settings{PINProtected: true}).PINSet() {
		t.Error("server-side pin should count as set")
	}

	var copied Settings
	copied.CopyPIN(Settings{PINHash: s.PINHash, PINProtected: true, Theme: ThemeDark})
	if copied.PINHash != s.PINHash || !copied.PINProtected || copied.Theme != "" {
		t.Errorf("CopyPIN copied %+v", copied)
	}
}

func TestNextID(t *testing.T) {
	now := time.UnixMilli(1000)
	tasks := []Task{{ID: 999}, {ID: 1000}}
	if got := NextID(tasks, func(t Task) int64 { return t.ID }, now); got != 1001 {
		t.Errorf("NextID = %d; want 1001", got)
	}
	if got := NextID(nil, func(t Task) int64 { return t.ID }, now); got != 1000 {
		t.Errorf("NextID = %d; want 1000", got)
	}
}

func TestClone_Independent(t *testing.T) {
	doc := CoupleDocument{
		Habits:   []Habit{{ID: 1, Completions: map[string]bool{"2026-01-01": true}}},
		Tasks:    []Task{{ID: 1, Subtasks: []Subtask{{ID: 1}}}},
		MealPlan: map[string]any{"monday": "pasta"},
	}
	c := doc.Clone()
	c.Habits[0].Completions["2026-01-02"] = true
	c.Tasks[0].Subtasks[0].Completed = true
	c.MealPlan["tuesday"] = "soup"

	if len(doc.Habits[0].Completions) != 1 || doc.Tasks[0].Subtasks[0].Completed || len(doc.MealPlan) != 1 {
		t.Error("clone shares state with the original")
	}
}
