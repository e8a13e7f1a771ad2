package coordinator

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/client/cache"
	"github.com/atinyakov/CoupleHQ/internal/client/device"
	"github.com/atinyakov/CoupleHQ/internal/models"
	"github.com/atinyakov/CoupleHQ/internal/seed"
)

const loadErrorMessage = "failed to load couple data"

const coupleIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewCoupleID returns a random 12 character lowercase alphanumeric ID.
func NewCoupleID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate couple id: %w", err)
	}
	for i, b := range buf {
		buf[i] = coupleIDAlphabet[int(b)%len(coupleIDAlphabet)]
	}
	return string(buf), nil
}

// Load selects s.CoupleID and brings the session to Ready. The remote copy
// wins when it can be fetched; otherwise the cached copy is used; otherwise a
// demo or default document is created and cached.
func (c *Coordinator) Load(ctx context.Context, s Session) (models.CoupleDocument, error) {
	if s.CoupleID == "" {
		return models.CoupleDocument{}, errors.New("couple id is required")
	}

	c.mu.Lock()
	if c.session.CoupleID != s.CoupleID {
		c.doc = nil
	}
	c.session = s
	c.state = StateLoading
	c.lastErr = ""
	c.mu.Unlock()

	doc, err := c.loadDocument(ctx, s)
	if err != nil {
		c.log.Error("load failed", zap.String("couple_id", s.CoupleID), zap.Error(err))
		c.mu.Lock()
		c.state = StateError
		c.lastErr = loadErrorMessage
		c.mu.Unlock()
		return models.CoupleDocument{}, err
	}

	demo := c.IsDemo(s.CoupleID)
	verified, err := c.prefs.PINVerified(ctx, s.CoupleID)
	if err != nil {
		c.log.Warn("failed to read pin flag", zap.Error(err))
	}
	pinRequired := doc.Settings.PINSet() && !verified && !demo

	c.mu.Lock()
	c.doc = &doc
	c.state = StateReady
	c.status = SyncStatus{Online: c.remote.IsConfigured(), Synced: true}
	c.pinRequired = pinRequired
	c.pinVerified = !pinRequired
	c.mu.Unlock()

	c.applyTheme(doc.Settings.Theme)

	p1, p2 := doc.Couple.Names()
	if !demo && p1 != "" && p2 != "" {
		if err := c.prefs.TouchCouple(ctx, s.CoupleID, p1, p2); err != nil {
			c.log.Warn("failed to record recent couple", zap.Error(err))
		}
	}

	return doc.Clone(), nil
}

func (c *Coordinator) loadDocument(ctx context.Context, s Session) (models.CoupleDocument, error) {
	id := s.CoupleID

	if c.remote.IsConfigured() {
		snap, err := c.remote.Fetch(ctx, id)
		switch {
		case err != nil:
			c.log.Info("remote fetch failed, trying local", zap.String("couple_id", id), zap.Error(err))
		case snap != nil:
			doc := snap.Data
			doc.ID = id
			if doc.UpdatedAt.IsZero() {
				doc.UpdatedAt = snap.UpdatedAt
			}
			c.migratePIN(&doc)
			if err := c.local.Put(ctx, id, doc); err != nil {
				return models.CoupleDocument{}, fmt.Errorf("cache remote document: %w", err)
			}
			return doc, nil
		}
	}

	cached, err := c.local.Get(ctx, id)
	switch {
	case err == nil:
		if c.migratePIN(cached) {
			if err := c.local.Put(ctx, id, *cached); err != nil {
				return models.CoupleDocument{}, fmt.Errorf("write migrated document: %w", err)
			}
		}
		return *cached, nil
	case !errors.Is(err, cache.ErrNotFound):
		return models.CoupleDocument{}, fmt.Errorf("read cached couple: %w", err)
	}

	doc, err := c.newDocument(ctx, s)
	if err != nil {
		return models.CoupleDocument{}, err
	}
	if err := c.local.Put(ctx, id, doc); err != nil {
		return models.CoupleDocument{}, fmt.Errorf("save new document: %w", err)
	}
	return doc, nil
}

func (c *Coordinator) newDocument(ctx context.Context, s Session) (models.CoupleDocument, error) {
	now := c.now()
	if len(c.demoIDs) > 0 && s.CoupleID == c.demoIDs[0] {
		doc, err := seed.Demo(now)
		if err != nil {
			return models.CoupleDocument{}, err
		}
		doc.ID = s.CoupleID
		return doc, nil
	}

	lang, err := c.prefs.Language(ctx)
	if err != nil {
		c.log.Warn("failed to read language preference", zap.Error(err))
	}
	dark, _, err := c.prefs.DarkMode(ctx)
	if err != nil {
		c.log.Warn("failed to read dark mode preference", zap.Error(err))
	}

	doc := seed.Default(s.Partner1, s.Partner2, device.ResolveSettings(lang, s.Locale, dark), now)
	doc.ID = s.CoupleID
	return doc, nil
}

// Create registers a new couple and returns its ID; an empty s.CoupleID is
// generated. The document is cached first, then created remotely; a remote
// failure is logged and the couple stays local until the next push.
func (c *Coordinator) Create(ctx context.Context, s Session) (string, error) {
	if s.CoupleID == "" {
		id, err := NewCoupleID()
		if err != nil {
			return "", err
		}
		s.CoupleID = id
	}
	if c.IsDemo(s.CoupleID) {
		return "", ErrReadOnly
	}

	if _, err := c.local.Get(ctx, s.CoupleID); err == nil {
		return "", ErrExists
	}
	if exists, err := c.remote.Exists(ctx, s.CoupleID); err == nil && exists {
		return "", ErrExists
	}

	doc, err := c.newDocument(ctx, s)
	if err != nil {
		return "", err
	}
	if err := c.local.Put(ctx, s.CoupleID, doc); err != nil {
		return "", fmt.Errorf("save new document: %w", err)
	}

	if c.remote.IsConfigured() {
		if _, err := c.remote.Create(ctx, s.CoupleID, doc, ""); err != nil {
			c.log.Warn("remote create failed, continuing locally", zap.String("couple_id", s.CoupleID), zap.Error(err))
			c.enqueue(ctx, s.CoupleID, doc)
		}
	}

	p1, p2 := doc.Couple.Names()
	if err := c.prefs.TouchCouple(ctx, s.CoupleID, p1, p2); err != nil {
		c.log.Warn("failed to record recent couple", zap.Error(err))
	}
	return s.CoupleID, nil
}
