package coordinator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

// VerifyPIN checks pin. With a Remote Store the server compares it against
// its own hash and the document carries none; without one the local hash is
// used. On success the verification is remembered on this device and the
// session is unlocked.
func (c *Coordinator) VerifyPIN(ctx context.Context, pin string) (bool, error) {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return false, ErrNotLoaded
	}
	id := c.session.CoupleID
	settings := c.doc.Settings
	c.mu.Unlock()

	valid, err := c.checkPIN(ctx, id, settings, pin)
	if err != nil || !valid {
		return false, err
	}

	if err := c.prefs.SetPINVerified(ctx, id, true); err != nil {
		c.log.Warn("failed to store pin flag", zap.Error(err))
	}
	c.mu.Lock()
	c.pinVerified = true
	c.pinRequired = false
	c.mu.Unlock()
	return true, nil
}

func (c *Coordinator) checkPIN(ctx context.Context, id string, settings models.Settings, pin string) (bool, error) {
	if c.remote.IsConfigured() {
		valid, err := c.remote.VerifyPIN(ctx, id, pin)
		if err != nil {
			return false, fmt.Errorf("verify pin: %w", err)
		}
		return valid, nil
	}
	if settings.PINHash == "" {
		return true, nil
	}
	return settings.CheckPIN(pin), nil
}

// SetPIN protects the couple with pin. When a PIN is already set, current
// must match it or ErrWrongPIN is returned.
func (c *Coordinator) SetPIN(ctx context.Context, current, pin string) error {
	if pin == "" {
		return errors.New("pin must not be empty")
	}
	return c.changePIN(ctx, current, pin)
}

// RemovePIN clears the PIN after checking current and forgets the device
// verification flag.
func (c *Coordinator) RemovePIN(ctx context.Context, current string) error {
	return c.changePIN(ctx, current, "")
}

// changePIN replaces the PIN; an empty pin removes it. With a Remote Store
// the server checks current and keeps the hash, and the document only
// records that a PIN exists.
func (c *Coordinator) changePIN(ctx context.Context, current, pin string) error {
	doc, ok := c.Document()
	if !ok {
		return ErrNotLoaded
	}
	id := c.CoupleID()
	settings := doc.Settings.WithoutPINSecrets()

	if c.remote.IsConfigured() {
		if err := c.remote.SetPIN(ctx, id, current, pin); err != nil {
			return fmt.Errorf("update pin: %w", err)
		}
		settings.PINProtected = pin != ""
	} else {
		if doc.Settings.PINHash != "" && !doc.Settings.CheckPIN(current) {
			return ErrWrongPIN
		}
		settings.PINProtected = false
		if pin != "" {
			hash, err := models.HashPIN(pin)
			if err != nil {
				return err
			}
			settings.PINHash = hash
		}
	}

	if _, err := c.Update(ctx, models.Patch{Settings: &settings}, false); err != nil {
		return err
	}

	if err := c.prefs.SetPINVerified(ctx, id, pin != ""); err != nil {
		c.log.Warn("failed to store pin flag", zap.Error(err))
	}
	c.mu.Lock()
	c.pinRequired = false
	c.pinVerified = true
	c.mu.Unlock()
	return nil
}
