package models

import "time"

// NextID returns a timestamp-based identifier that is unique within items:
// the current time in milliseconds, bumped past the largest existing ID.
func NextID[T any](items []T, idOf func(T) int64, now time.Time) int64 {
	id := now.UnixMilli()
	for _, it := range items {
		if v := idOf(it); v >= id {
			id = v + 1
		}
	}
	return id
}
