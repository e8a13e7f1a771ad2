package state

import "slices"

// updateByID returns a copy of items with fn applied to the element whose ID
// is id.
func updateByID[T any](items []T, id int64, idOf func(T) int64, fn func(*T)) ([]T, bool) {
	idx := slices.IndexFunc(items, func(v T) bool { return idOf(v) == id })
	if idx < 0 {
		return items, false
	}
	out := slices.Clone(items)
	fn(&out[idx])
	return out, true
}

// deleteByID returns a copy of items without the element whose ID is id.
func deleteByID[T any](items []T, id int64, idOf func(T) int64) ([]T, bool) {
	idx := slices.IndexFunc(items, func(v T) bool { return idOf(v) == id })
	if idx < 0 {
		return items, false
	}
	return slices.Delete(slices.Clone(items), idx, idx+1), true
}

// appendItem returns a copy of items with v appended.
func appendItem[T any](items []T, v T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items...)
	return append(out, v)
}
