package coordinator

import (
	"context"

	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

// Merge applies a document received from another device. It replaces the
// current document only when updatedAt is strictly newer and reports
// whether it did. Observers are notified after the lock is released.
func (c *Coordinator) Merge(ctx context.Context, doc models.CoupleDocument, updatedAt models.Timestamp) bool {
	c.mu.Lock()
	if c.doc == nil || (doc.ID != "" && doc.ID != c.session.CoupleID) {
		c.mu.Unlock()
		return false
	}
	if !updatedAt.After(c.doc.UpdatedAt) {
		c.mu.Unlock()
		return false
	}

	id := c.session.CoupleID
	next := doc.Clone()
	next.ID = id
	next.UpdatedAt = updatedAt
	next.Normalize()
	c.migratePIN(&next)
	if err := c.local.Put(ctx, id, next); err != nil {
		c.log.Warn("failed to cache merged document", zap.String("couple_id", id), zap.Error(err))
	}
	c.doc = &next
	c.mu.Unlock()

	c.log.Debug("merged remote change", zap.String("couple_id", id), zap.Time("updated_at", updatedAt.Time))
	c.notify(next)
	return true
}

// StartRealtime subscribes to changes of the loaded couple. It does nothing
// unless the session is ready and PIN-verified, and keeps a single
// subscription per couple ID, replacing it when the ID changed.
func (c *Coordinator) StartRealtime(ctx context.Context) error {
	if !c.remote.IsConfigured() {
		return nil
	}

	c.mu.Lock()
	id := c.session.CoupleID
	ready := c.doc != nil && (c.state == StateReady || c.state == StateSyncing) && c.pinVerified
	c.mu.Unlock()
	if !ready {
		return nil
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.unsubscribe != nil {
		if c.subID == id {
			return nil
		}
		c.unsubscribe()
		c.unsubscribe = nil
	}

	unsubscribe, err := c.remote.Subscribe(ctx, id, func(s models.Snapshot) {
		s.Data.ID = id
		c.Merge(ctx, s.Data, s.UpdatedAt)
	})
	if err != nil {
		return err
	}
	c.subID = id
	c.unsubscribe = unsubscribe
	c.log.Info("realtime subscribed", zap.String("couple_id", id))
	return nil
}

// StopRealtime tears down the active subscription, if any.
func (c *Coordinator) StopRealtime() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
		c.subID = ""
	}
}
