package state

import (
	"context"
	"slices"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

func listID(l models.ShoppingList) int64 { return l.ID }
func itemID(i models.ShoppingItem) int64 { return i.ID }

// AddShoppingList appends an empty list and returns its ID.
func (s *Store) AddShoppingList(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		id = models.NextID(doc.ShoppingLists, listID, s.now())
		lists := appendItem(doc.ShoppingLists, models.ShoppingList{ID: id, Name: name, Items: []models.ShoppingItem{}})
		return models.Patch{ShoppingLists: &lists}, nil
	})
	return id, err
}

// DeleteShoppingList removes a list.
func (s *Store) DeleteShoppingList(ctx context.Context, id int64) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		lists, ok := deleteByID(doc.ShoppingLists, id, listID)
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{ShoppingLists: &lists}, nil
	})
}

// AddShoppingItem appends an unchecked item to a list and returns its ID.
func (s *Store) AddShoppingItem(ctx context.Context, list int64, item models.ShoppingItem) (int64, error) {
	var id int64
	err := s.editList(ctx, list, func(l *models.ShoppingList) bool {
		id = models.NextID(l.Items, itemID, s.now())
		item.ID = id
		item.Checked = false
		l.Items = appendItem(l.Items, item)
		return true
	})
	return id, err
}

// ToggleShoppingItem flips an item's checked flag.
func (s *Store) ToggleShoppingItem(ctx context.Context, list, id int64) error {
	return s.editList(ctx, list, func(l *models.ShoppingList) bool {
		var ok bool
		l.Items, ok = updateByID(l.Items, id, itemID, func(i *models.ShoppingItem) { i.Checked = !i.Checked })
		return ok
	})
}

// DeleteShoppingItem removes an item from a list.
func (s *Store) DeleteShoppingItem(ctx context.Context, list, id int64) error {
	return s.editList(ctx, list, func(l *models.ShoppingList) bool {
		var ok bool
		l.Items, ok = deleteByID(l.Items, id, itemID)
		return ok
	})
}

// ClearCheckedItems removes every checked item from a list.
func (s *Store) ClearCheckedItems(ctx context.Context, list int64) error {
	return s.editList(ctx, list, func(l *models.ShoppingList) bool {
		l.Items = slices.DeleteFunc(slices.Clone(l.Items), func(i models.ShoppingItem) bool { return i.Checked })
		return true
	})
}

func (s *Store) editList(ctx context.Context, id int64, fn func(*models.ShoppingList) bool) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		found := true
		lists, ok := updateByID(doc.ShoppingLists, id, listID, func(l *models.ShoppingList) { found = fn(l) })
		if !ok || !found {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{ShoppingLists: &lists}, nil
	})
}
