package models

// Patch is a partial document update. Nil fields are left untouched when the
// patch is applied.
type Patch struct {
	Couple         *Couple
	Tasks          *[]Task
	TaskCategories *[]TaskCategory
	Budget         *Budget
	Notes          *[]Note
	Goals          *[]Goal
	Events         *[]Event
	Wishlist       *[]WishlistItem
	Memories       *[]Memory
	ShoppingLists  *[]ShoppingList
	LoveNotes      *[]LoveNote
	Habits         *[]Habit
	DateIdeas      *[]DateIdea
	MealPlan       *map[string]any
	Settings       *Settings
}

// PatchFrom builds a patch that replaces every collection of d.
func PatchFrom(d CoupleDocument) Patch {
	return Patch{
		Couple:         &d.Couple,
		Tasks:          &d.Tasks,
		TaskCategories: &d.TaskCategories,
		Budget:         &d.Budget,
		Notes:          &d.Notes,
		Goals:          &d.Goals,
		Events:         &d.Events,
		Wishlist:       &d.Wishlist,
		Memories:       &d.Memories,
		ShoppingLists:  &d.ShoppingLists,
		LoveNotes:      &d.LoveNotes,
		Habits:         &d.Habits,
		DateIdeas:      &d.DateIdeas,
		MealPlan:       &d.MealPlan,
		Settings:       &d.Settings,
	}
}

// TouchesCouple reports whether the patch replaces the couple profile.
func (p Patch) TouchesCouple() bool {
	return p.Couple != nil
}

// Apply returns the shallow merge of d and p. Identity and timestamps are
// not touched; stamping UpdatedAt is the caller's job.
func (d CoupleDocument) Apply(p Patch) CoupleDocument {
	if p.Couple != nil {
		d.Couple = *p.Couple
	}
	if p.Tasks != nil {
		d.Tasks = *p.Tasks
	}
	if p.TaskCategories != nil {
		d.TaskCategories = *p.TaskCategories
	}
	if p.Budget != nil {
		d.Budget = *p.Budget
	}
	if p.Notes != nil {
		d.Notes = *p.Notes
	}
	if p.Goals != nil {
		d.Goals = *p.Goals
	}
	if p.Events != nil {
		d.Events = *p.Events
	}
	if p.Wishlist != nil {
		d.Wishlist = *p.Wishlist
	}
	if p.Memories != nil {
		d.Memories = *p.Memories
	}
	if p.ShoppingLists != nil {
		d.ShoppingLists = *p.ShoppingLists
	}
	if p.LoveNotes != nil {
		d.LoveNotes = *p.LoveNotes
	}
	if p.Habits != nil {
		d.Habits = *p.Habits
	}
	if p.DateIdeas != nil {
		d.DateIdeas = *p.DateIdeas
	}
	if p.MealPlan != nil {
		d.MealPlan = *p.MealPlan
	}
	if p.Settings != nil {
		d.Settings = *p.Settings
	}
	return d
}
