package coordinator

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/client/cache"
	"github.com/atinyakov/CoupleHQ/internal/models"
)

// Update merges patch into the current document, stamps UpdatedAt and writes
// the result to the local cache before returning it. The remote write happens
// in the background, in issue order. Demo couples reject non-exempt updates
// with ErrReadOnly. When the local write fails nothing is applied.
func (c *Coordinator) Update(ctx context.Context, patch models.Patch, exempt bool) (models.CoupleDocument, error) {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return models.CoupleDocument{}, ErrNotLoaded
	}
	id := c.session.CoupleID
	demo := c.IsDemo(id)
	if demo && !exempt {
		c.mu.Unlock()
		c.onReadOnly()
		return models.CoupleDocument{}, ErrReadOnly
	}

	next := c.doc.Apply(patch)
	next.ID = id
	next.UpdatedAt = c.stamp(c.doc.UpdatedAt)
	if err := c.local.Put(ctx, id, next); err != nil {
		c.mu.Unlock()
		return models.CoupleDocument{}, fmt.Errorf("save couple %s: %w", id, err)
	}
	c.doc = &next
	c.seq++
	c.pushAsync(context.WithoutCancel(ctx), pushJob{id: id, doc: next.Clone(), seq: c.seq})
	c.mu.Unlock()

	if patch.TouchesCouple() && !demo {
		p1, p2 := next.Couple.Names()
		if err := c.prefs.RenameCouple(ctx, id, p1, p2); err != nil {
			c.log.Warn("failed to update recent couple", zap.Error(err))
		}
	}
	return next.Clone(), nil
}

type pushJob struct {
	ctx context.Context
	id  string
	doc models.CoupleDocument
	seq uint64
}

// pushAsync queues job for the push worker, starting it when idle. Callers
// hold mu so the queue order is the revision order.
func (c *Coordinator) pushAsync(ctx context.Context, job pushJob) {
	if !c.remote.IsConfigured() {
		return
	}
	job.ctx = ctx

	c.pushQMu.Lock()
	defer c.pushQMu.Unlock()
	c.pushQ = append(c.pushQ, job)
	if c.pushing {
		return
	}
	c.pushing = true
	c.wg.Add(1)
	go c.runPushes()
}

// runPushes sends queued revisions one at a time. A revision with a newer
// one for the same couple behind it in the queue is skipped.
func (c *Coordinator) runPushes() {
	defer c.wg.Done()
	for {
		c.pushQMu.Lock()
		if len(c.pushQ) == 0 {
			c.pushing = false
			c.pushQMu.Unlock()
			return
		}
		job := c.pushQ[0]
		c.pushQ = c.pushQ[1:]
		superseded := slices.ContainsFunc(c.pushQ, func(j pushJob) bool { return j.id == job.id })
		c.pushQMu.Unlock()

		if superseded {
			continue
		}
		_ = c.push(job.ctx, job.id, job.doc, job.seq)
	}
}

// push writes doc remotely unless a newer revision was already sent. On
// failure the document is queued for a later drain; on success older queue
// entries are superseded and cleared.
func (c *Coordinator) push(ctx context.Context, id string, doc models.CoupleDocument, seq uint64) error {
	c.pushMu.Lock()
	defer c.pushMu.Unlock()
	if seq < c.pushedSeq {
		return nil
	}
	c.pushedSeq = seq

	c.beginSync()
	snap, err := c.remote.Update(ctx, id, doc)
	if err != nil {
		c.log.Warn("remote sync failed", zap.String("couple_id", id), zap.Error(err))
		c.setStatus(false, false)
		c.enqueue(ctx, id, doc)
		return err
	}
	c.setStatus(true, true)

	if snap != nil {
		c.adoptStamp(ctx, id, doc.UpdatedAt, snap.UpdatedAt)
	}
	c.clearQueue(ctx, id)
	return nil
}

// revision returns a copy of the current document and its revision number.
func (c *Coordinator) revision() (models.CoupleDocument, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return models.CoupleDocument{}, 0, false
	}
	return c.doc.Clone(), c.seq, true
}

// adoptStamp replaces the local UpdatedAt with the server's stamp when no
// newer local change happened meanwhile, so the realtime echo of this write
// is recognized as not newer.
func (c *Coordinator) adoptStamp(ctx context.Context, id string, pushedAt, serverAt models.Timestamp) {
	if serverAt.IsZero() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil || c.session.CoupleID != id || !c.doc.UpdatedAt.Equal(pushedAt.Time) {
		return
	}
	if !serverAt.After(c.doc.UpdatedAt) {
		return
	}
	next := *c.doc
	next.UpdatedAt = serverAt
	if err := c.local.Put(ctx, id, next); err != nil {
		c.log.Warn("failed to store server timestamp", zap.Error(err))
		return
	}
	c.doc = &next
}

func (c *Coordinator) enqueue(ctx context.Context, id string, doc models.CoupleDocument) {
	if _, err := c.local.Add(ctx, cache.QueueItem{CoupleID: id, Action: cache.ActionUpdate, Doc: doc}); err != nil {
		c.log.Error("failed to queue document", zap.String("couple_id", id), zap.Error(err))
	}
}

func (c *Coordinator) clearQueue(ctx context.Context, id string) {
	items, err := c.local.GetPendingByCoupleID(ctx, id)
	if err != nil {
		c.log.Warn("failed to read sync queue", zap.Error(err))
		return
	}
	if len(items) == 0 {
		return
	}
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	if err := c.local.ClearByIDs(ctx, ids); err != nil {
		c.log.Warn("failed to clear sync queue", zap.Error(err))
		return
	}
	c.log.Debug("sync queue cleared", zap.String("couple_id", id), zap.Int("entries", len(ids)))
}

// ForceSync pushes the current document to the Remote Store synchronously.
func (c *Coordinator) ForceSync(ctx context.Context) error {
	doc, seq, ok := c.revision()
	if !ok {
		return ErrNotLoaded
	}
	if !c.remote.IsConfigured() {
		return nil
	}
	return c.push(ctx, doc.ID, doc, seq)
}

// DrainQueue pushes the newest queued document of the active couple. Every
// entry is a full document, so older ones are superseded and cleared along
// with it. When the in-memory document is newer than the queue, it is pushed
// instead.
func (c *Coordinator) DrainQueue(ctx context.Context) error {
	if !c.remote.IsConfigured() {
		return nil
	}
	c.pushMu.Lock()
	defer c.pushMu.Unlock()

	cur, seq, ok := c.revision()
	if !ok {
		return nil
	}
	id := cur.ID

	items, err := c.local.GetPendingByCoupleID(ctx, id)
	if err != nil {
		return fmt.Errorf("read sync queue: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	doc := items[len(items)-1].Doc
	doc.ID = id
	fromQueue := doc.UpdatedAt.After(cur.UpdatedAt)
	if !fromQueue {
		doc = cur
	}

	c.pushedSeq = seq
	c.beginSync()
	snap, err := c.remote.Update(ctx, id, doc)
	if err != nil {
		c.setStatus(false, false)
		return fmt.Errorf("drain sync queue: %w", err)
	}
	c.setStatus(true, true)

	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	if err := c.local.ClearByIDs(ctx, ids); err != nil {
		return err
	}
	c.log.Info("sync queue drained", zap.String("couple_id", id), zap.Int("entries", len(ids)))

	if snap == nil {
		return nil
	}
	if fromQueue {
		c.Merge(ctx, snap.Data, snap.UpdatedAt)
	} else {
		c.adoptStamp(ctx, id, doc.UpdatedAt, snap.UpdatedAt)
	}
	return nil
}

// StartQueueDrainer calls DrainQueue every interval until ctx is done.
func (c *Coordinator) StartQueueDrainer(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.DrainQueue(ctx); err != nil {
					c.log.Debug("queue drain failed", zap.Error(err))
				}
			}
		}
	}()
}
