package state

import (
	"context"
	"time"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

func noteID(n models.Note) int64         { return n.ID }
func eventID(e models.Event) int64       { return e.ID }
func wishID(w models.WishlistItem) int64 { return w.ID }
func memoryID(m models.Memory) int64     { return m.ID }
func loveNoteID(n models.LoveNote) int64 { return n.ID }

// AddNote appends an unpinned note dated today and returns its ID.
func (s *Store) AddNote(ctx context.Context, n models.Note) (int64, error) {
	var id int64
	err := s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		id = models.NextID(doc.Notes, noteID, s.now())
		n.ID = id
		n.Date = s.today()
		n.Pinned = false
		if n.Tags == nil {
			n.Tags = []string{}
		}
		notes := appendItem(doc.Notes, n)
		return models.Patch{Notes: &notes}, nil
	})
	return id, err
}

// UpdateNote edits a note.
func (s *Store) UpdateNote(ctx context.Context, id int64, edit func(*models.Note)) error {
	return s.editNotes(ctx, id, func(n *models.Note) {
		edit(n)
		n.ID = id
	})
}

// TogglePinNote flips a note's pinned flag.
func (s *Store) TogglePinNote(ctx context.Context, id int64) error {
	return s.editNotes(ctx, id, func(n *models.Note) { n.Pinned = !n.Pinned })
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(ctx context.Context, id int64) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		notes, ok := deleteByID(doc.Notes, id, noteID)
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{Notes: &notes}, nil
	})
}

func (s *Store) editNotes(ctx context.Context, id int64, fn func(*models.Note)) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		notes, ok := updateByID(doc.Notes, id, noteID, fn)
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{Notes: &notes}, nil
	})
}

// AddEvent appends a calendar event and returns its ID.
func (s *Store) AddEvent(ctx context.Context, e models.Event) (int64, error) {
	var id int64
	err := s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		id = models.NextID(doc.Events, eventID, s.now())
		e.ID = id
		events := appendItem(doc.Events, e)
		return models.Patch{Events: &events}, nil
	})
	return id, err
}

// UpdateEvent edits an event.
func (s *Store) UpdateEvent(ctx context.Context, id int64, edit func(*models.Event)) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		events, ok := updateByID(doc.Events, id, eventID, func(e *models.Event) {
			edit(e)
			e.ID = id
		})
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{Events: &events}, nil
	})
}

// DeleteEvent removes an event.
func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		events, ok := deleteByID(doc.Events, id, eventID)
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{Events: &events}, nil
	})
}

// AddWishlistItem appends an unpurchased wish and returns its ID.
func (s *Store) AddWishlistItem(ctx context.Context, w models.WishlistItem) (int64, error) {
	var id int64
	err := s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		id = models.NextID(doc.Wishlist, wishID, s.now())
		w.ID = id
		w.Purchased = false
		wishlist := appendItem(doc.Wishlist, w)
		return models.Patch{Wishlist: &wishlist}, nil
	})
	return id, err
}

// UpdateWishlistItem edits a wish.
func (s *Store) UpdateWishlistItem(ctx context.Context, id int64, edit func(*models.WishlistItem)) error {
	return s.editWishlist(ctx, id, func(w *models.WishlistItem) {
		edit(w)
		w.ID = id
	})
}

// ToggleWishlistPurchased flips a wish's purchased flag.
func (s *Store) ToggleWishlistPurchased(ctx context.Context, id int64) error {
	return s.editWishlist(ctx, id, func(w *models.WishlistItem) { w.Purchased = !w.Purchased })
}

// DeleteWishlistItem removes a wish.
func (s *Store) DeleteWishlistItem(ctx context.Context, id int64) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		wishlist, ok := deleteByID(doc.Wishlist, id, wishID)
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{Wishlist: &wishlist}, nil
	})
}

func (s *Store) editWishlist(ctx context.Context, id int64, fn func(*models.WishlistItem)) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		wishlist, ok := updateByID(doc.Wishlist, id, wishID, fn)
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{Wishlist: &wishlist}, nil
	})
}

// Memories are editable on demo couples too.

// AddMemory appends a memory and returns its ID.
func (s *Store) AddMemory(ctx context.Context, m models.Memory) (int64, error) {
	var id int64
	err := s.mutate(ctx, true, func(doc *models.CoupleDocument) (models.Patch, error) {
		id = models.NextID(doc.Memories, memoryID, s.now())
		m.ID = id
		if m.Photos == nil {
			m.Photos = []string{}
		}
		if m.Tags == nil {
			m.Tags = []string{}
		}
		memories := appendItem(doc.Memories, m)
		return models.Patch{Memories: &memories}, nil
	})
	return id, err
}

// UpdateMemory edits a memory.
func (s *Store) UpdateMemory(ctx context.Context, id int64, edit func(*models.Memory)) error {
	return s.mutate(ctx, true, func(doc *models.CoupleDocument) (models.Patch, error) {
		memories, ok := updateByID(doc.Memories, id, memoryID, func(m *models.Memory) {
			edit(m)
			m.ID = id
		})
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{Memories: &memories}, nil
	})
}

// DeleteMemory removes a memory.
func (s *Store) DeleteMemory(ctx context.Context, id int64) error {
	return s.mutate(ctx, true, func(doc *models.CoupleDocument) (models.Patch, error) {
		memories, ok := deleteByID(doc.Memories, id, memoryID)
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{Memories: &memories}, nil
	})
}

// AddLoveNote appends an unread love note stamped with the current time and
// returns its ID.
func (s *Store) AddLoveNote(ctx context.Context, n models.LoveNote) (int64, error) {
	var id int64
	err := s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		now := s.now()
		id = models.NextID(doc.LoveNotes, loveNoteID, now)
		n.ID = id
		n.Date = now.UTC().Format(time.RFC3339)
		n.Read = false
		notes := appendItem(doc.LoveNotes, n)
		return models.Patch{LoveNotes: &notes}, nil
	})
	return id, err
}

// MarkLoveNoteRead marks a love note as read.
func (s *Store) MarkLoveNoteRead(ctx context.Context, id int64) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		notes, ok := updateByID(doc.LoveNotes, id, loveNoteID, func(n *models.LoveNote) { n.Read = true })
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{LoveNotes: &notes}, nil
	})
}

// DeleteLoveNote removes a love note.
func (s *Store) DeleteLoveNote(ctx context.Context, id int64) error {
	return s.mutate(ctx, false, func(doc *models.CoupleDocument) (models.Patch, error) {
		notes, ok := deleteByID(doc.LoveNotes, id, loveNoteID)
		if !ok {
			return models.Patch{}, ErrItemNotFound
		}
		return models.Patch{LoveNotes: &notes}, nil
	})
}
