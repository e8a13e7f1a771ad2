package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_GetPut(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	doc := models.CoupleDocument{
		Couple:    models.Couple{Partner1: models.Partner{Name: "Ada"}},
		Tasks:     []models.Task{{ID: 1, Title: "Book venue"}},
		UpdatedAt: models.NewTimestamp(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)),
	}
	require.NoError(t, c.Put(ctx, "c1", doc))

	got, err := c.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, "Ada", got.Couple.Partner1.Name)
	assert.Equal(t, "Book venue", got.Tasks[0].Title)
	assert.True(t, got.UpdatedAt.Equal(doc.UpdatedAt.Time))
	assert.NotNil(t, got.Notes, "collections are normalized on read")

	doc.Tasks = nil
	require.NoError(t, c.Put(ctx, "c1", doc))
	got, err = c.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, got.Tasks, "put overwrites the whole document")
}

func TestCache_Metadata(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	_, err := c.GetMetadata(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.SetMetadata(ctx, "k", "v1"))
	require.NoError(t, c.SetMetadata(ctx, "k", "v2"))
	v, err := c.GetMetadata(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, c.DeleteMetadata(ctx, "k"))
	require.NoError(t, c.DeleteMetadata(ctx, "k"))
	_, err = c.GetMetadata(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCache_Queue(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := c.Add(ctx, QueueItem{CoupleID: "c1", Doc: models.CoupleDocument{Tasks: []models.Task{{ID: 1}}}, Timestamp: base})
	require.NoError(t, err)
	second, err := c.Add(ctx, QueueItem{CoupleID: "c1", Doc: models.CoupleDocument{Tasks: []models.Task{{ID: 2}}}, Timestamp: base.Add(time.Second)})
	require.NoError(t, err)
	_, err = c.Add(ctx, QueueItem{CoupleID: "other"})
	require.NoError(t, err)

	items, err := c.GetPendingByCoupleID(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first, items[0].ID)
	assert.Equal(t, second, items[1].ID)
	assert.Equal(t, ActionUpdate, items[0].Action)
	assert.Equal(t, int64(2), items[1].Doc.Tasks[0].ID)

	require.NoError(t, c.ClearByIDs(ctx, []int64{first, second}))
	items, err = c.GetPendingByCoupleID(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = c.GetPendingByCoupleID(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	assert.NoError(t, c.ClearByIDs(ctx, nil))
}
