package state

import (
	"context"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

func taskID(t models.Task) int64       { return t.ID }
func subtaskID(t models.Subtask) int64 { return t.ID }

// UpdateCouple edits the couple profile.
func (s *Store) UpdateCouple(ctx context.Context, edit func(*models.Couple)) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		couple := doc.Couple
		edit(&couple)
		return models.Patch{Couple: &couple}, nil
	})
}

// UpdatePartner edits one partner's profile.
func (s *Store) UpdatePartner(ctx context.Context, key models.PartnerKey, edit func(*models.Partner)) error {
	if !key.Valid() {
		return ErrItemNotFound
	}
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		p := doc.Couple.Partner(key)
		edit(&p)
		couple := doc.Couple.WithPartner(key, p)
		return models.Patch{Couple: &couple}, nil
	})
}

// AddTask appends an open task and returns its ID.
func (s *Store) AddTask(ctx context.Context, t models.Task) (int64, error) {
	var id int64
	err := s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		id = models.NextID(doc.Tasks, taskID, s.now())
		t.ID = id
		t.Completed = false
		if t.Subtasks == nil {
			t.Subtasks = []models.Subtask{}
		}
		tasks := appendItem(doc.Tasks, t)
		return models.Patch{Tasks: &tasks}, nil
	})
	return id, err
}

// UpdateTask edits a task in place.
func (s *Store) UpdateTask(ctx context.Context, id int64, edit func(*models.Task)) error {
	return s.editTasks(ctx, id, func(t *models.Task) {
		edit(t)
		t.ID = id
	})
}

// ToggleTask flips a task's completion.
func (s *Store) ToggleTask(ctx context.Context, id int64) error {
	return s.editTasks(ctx, id, func(t *models.Task) { t.Completed = !t.Completed })
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		tasks, ok := deleteByID(doc.Tasks, id, taskID)
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{Tasks: &tasks}, nil
	})
}

// AddSubtask appends an open subtask to a task and returns its ID.
func (s *Store) AddSubtask(ctx context.Context, taskID int64, title string) (int64, error) {
	var id int64
	err := s.editTasks(ctx, taskID, func(t *models.Task) {
		id = models.NextID(t.Subtasks, subtaskID, s.now())
		t.Subtasks = appendItem(t.Subtasks, models.Subtask{ID: id, Title: title})
	})
	return id, err
}

// ToggleSubtask flips a subtask's completion.
func (s *Store) ToggleSubtask(ctx context.Context, taskID, id int64) error {
	var found bool
	return s.editTasksIf(ctx, taskID, func(t *models.Task) bool {
		t.Subtasks, found = updateByID(t.Subtasks, id, subtaskID, func(st *models.Subtask) { st.Completed = !st.Completed })
		return found
	})
}

// DeleteSubtask removes a subtask.
func (s *Store) DeleteSubtask(ctx context.Context, taskID, id int64) error {
	var found bool
	return s.editTasksIf(ctx, taskID, func(t *models.Task) bool {
		t.Subtasks, found = deleteByID(t.Subtasks, id, subtaskID)
		return found
	})
}

func (s *Store) editTasks(ctx context.Context, id int64, fn func(*models.Task)) error {
	return s.editTasksIf(ctx, id, func(t *models.Task) bool {
		fn(t)
		return true
	})
}

// editTasksIf applies fn to the task with the given ID; fn reports whether
// its target existed.
func (s *Store) editTasksIf(ctx context.Context, id int64, fn func(*models.Task) bool) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		found := true
		tasks, ok := updateByID(doc.Tasks, id, taskID, func(t *models.Task) { found = fn(t) })
		if !ok || !found {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{Tasks: &tasks}, nil
	})
}
