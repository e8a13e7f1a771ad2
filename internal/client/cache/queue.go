package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

// ActionUpdate marks a queued full-document update.
const ActionUpdate = "update"

// QueueItem is a pending remote write recorded while offline.
type QueueItem struct {
	ID        int64
	CoupleID  string
	Action    string
	Doc       models.CoupleDocument
	Timestamp time.Time
}

// Add appends item to the sync queue and returns its ID. A zero Timestamp
// is replaced with the current time.
func (c *Cache) Add(ctx context.Context, item QueueItem) (int64, error) {
	if item.Timestamp.IsZero() {
		item.Timestamp = c.now()
	}
	if item.Action == "" {
		item.Action = ActionUpdate
	}
	data, err := json.Marshal(item.Doc)
	if err != nil {
		return 0, fmt.Errorf("encode queue item: %w", err)
	}

	res, err := c.db.ExecContext(ctx, `
		INSERT INTO sync_queue (couple_id, action, data, timestamp) VALUES (?, ?, ?, ?)
	`, item.CoupleID, item.Action, string(data), item.Timestamp.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", item.CoupleID, err)
	}
	return res.LastInsertId()
}

// GetPendingByCoupleID returns the queued items for coupleID, oldest first.
func (c *Cache) GetPendingByCoupleID(ctx context.Context, coupleID string) ([]QueueItem, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, couple_id, action, data, timestamp
		  FROM sync_queue
		 WHERE couple_id = ?
		 ORDER BY timestamp, id
	`, coupleID)
	if err != nil {
		return nil, fmt.Errorf("query queue: %w", err)
	}
	defer rows.Close()

	var items []QueueItem
	for rows.Next() {
		var (
			it   QueueItem
			data string
			ts   int64
		)
		if err := rows.Scan(&it.ID, &it.CoupleID, &it.Action, &data, &ts); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &it.Doc); err != nil {
			return nil, fmt.Errorf("decode queue item %d: %w", it.ID, err)
		}
		it.Timestamp = time.UnixMilli(ts)
		items = append(items, it)
	}
	return items, rows.Err()
}

// ClearByIDs removes the given queue entries.
func (c *Cache) ClearByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}
