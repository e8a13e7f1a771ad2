// Package device keeps per-device UI state that is not part of the couple
// document: PIN verification, the welcome flag, recently opened couples and
// global presentation preferences.
package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atinyakov/CoupleHQ/internal/client/cache"
	"github.com/atinyakov/CoupleHQ/internal/models"
)

const (
	keyRecentCouples = "recent_couples"
	keyDarkMode      = "dark_mode"
	keyLanguage      = "language"
	keyCurrentUser   = "current_user"
)

// MetadataStore is the key/value part of the local cache.
type MetadataStore interface {
	GetMetadata(ctx context.Context, key string) (string, error)
	SetMetadata(ctx context.Context, key, value string) error
	DeleteMetadata(ctx context.Context, key string) error
}

// RecentCouple is an entry of the recently accessed couples list.
type RecentCouple struct {
	ID           string    `json:"id"`
	Partner1     string    `json:"partner1"`
	Partner2     string    `json:"partner2"`
	LastAccessed time.Time `json:"lastAccessed"`
}

// Prefs reads and writes device-local flags.
type Prefs struct {
	store MetadataStore
	now   func() time.Time
}

// NewPrefs returns preferences backed by store.
func NewPrefs(store MetadataStore) *Prefs {
	return &Prefs{store: store, now: time.Now}
}

func pinVerifiedKey(coupleID string) string  { return "pin_verified:" + coupleID }
func welcomeShownKey(coupleID string) string { return "welcome_shown:" + coupleID }

// PINVerified reports whether the PIN was verified on this device.
func (p *Prefs) PINVerified(ctx context.Context, coupleID string) (bool, error) {
	return p.flag(ctx, pinVerifiedKey(coupleID))
}

// SetPINVerified records or clears the PIN verification flag.
func (p *Prefs) SetPINVerified(ctx context.Context, coupleID string, verified bool) error {
	return p.setFlag(ctx, pinVerifiedKey(coupleID), verified)
}

// WelcomeShown reports whether the welcome dialog was dismissed.
func (p *Prefs) WelcomeShown(ctx context.Context, coupleID string) (bool, error) {
	return p.flag(ctx, welcomeShownKey(coupleID))
}

// SetWelcomeShown marks the welcome dialog as shown.
func (p *Prefs) SetWelcomeShown(ctx context.Context, coupleID string) error {
	return p.setFlag(ctx, welcomeShownKey(coupleID), true)
}

// DarkMode returns the stored dark-mode preference; ok is false when none
// was ever chosen.
func (p *Prefs) DarkMode(ctx context.Context) (dark, ok bool, err error) {
	v, err := p.store.GetMetadata(ctx, keyDarkMode)
	if errors.Is(err, cache.ErrNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return v == "true", true, nil
}

// SetDarkMode stores the dark-mode preference.
func (p *Prefs) SetDarkMode(ctx context.Context, dark bool) error {
	return p.store.SetMetadata(ctx, keyDarkMode, fmt.Sprint(dark))
}

// Language returns the stored language preference or "".
func (p *Prefs) Language(ctx context.Context) (string, error) {
	return p.optional(ctx, keyLanguage)
}

// SetLanguage stores the language preference.
func (p *Prefs) SetLanguage(ctx context.Context, lang string) error {
	return p.store.SetMetadata(ctx, keyLanguage, lang)
}

// CurrentUser returns which partner is speaking on this device, partner1
// by default.
func (p *Prefs) CurrentUser(ctx context.Context) (models.PartnerKey, error) {
	v, err := p.optional(ctx, keyCurrentUser)
	if err != nil {
		return models.Partner1Key, err
	}
	key := models.PartnerKey(v)
	if !key.Valid() {
		return models.Partner1Key, nil
	}
	return key, nil
}

// SetCurrentUser records which partner is speaking on this device.
func (p *Prefs) SetCurrentUser(ctx context.Context, key models.PartnerKey) error {
	if !key.Valid() {
		return fmt.Errorf("unknown partner %q", key)
	}
	return p.store.SetMetadata(ctx, keyCurrentUser, string(key))
}

// RecentCouples returns the recently accessed couples, most recent first.
func (p *Prefs) RecentCouples(ctx context.Context) ([]RecentCouple, error) {
	v, err := p.optional(ctx, keyRecentCouples)
	if err != nil || v == "" {
		return nil, err
	}
	var list []RecentCouple
	if err := json.Unmarshal([]byte(v), &list); err != nil {
		// A corrupt list is treated as empty, it only serves convenience.
		return nil, nil
	}
	slices.SortStableFunc(list, func(a, b RecentCouple) int {
		return b.LastAccessed.Compare(a.LastAccessed)
	})
	return list, nil
}

// TouchCouple adds coupleID to the recent list or refreshes its access
// time. Names are only used for new entries.
func (p *Prefs) TouchCouple(ctx context.Context, coupleID, partner1, partner2 string) error {
	list, err := p.RecentCouples(ctx)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(list, func(c RecentCouple) bool { return c.ID == coupleID })
	if idx < 0 {
		list = append(list, RecentCouple{ID: coupleID, Partner1: partner1, Partner2: partner2, LastAccessed: p.now()})
	} else {
		list[idx].LastAccessed = p.now()
	}
	return p.saveRecent(ctx, list)
}

// RenameCouple updates the partner names of a known recent couple.
func (p *Prefs) RenameCouple(ctx context.Context, coupleID, partner1, partner2 string) error {
	list, err := p.RecentCouples(ctx)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(list, func(c RecentCouple) bool { return c.ID == coupleID })
	if idx < 0 {
		return nil
	}
	list[idx].Partner1 = partner1
	list[idx].Partner2 = partner2
	return p.saveRecent(ctx, list)
}

// ForgetCouple removes coupleID from the recent list.
func (p *Prefs) ForgetCouple(ctx context.Context, coupleID string) error {
	list, err := p.RecentCouples(ctx)
	if err != nil {
		return err
	}
	list = slices.DeleteFunc(list, func(c RecentCouple) bool { return c.ID == coupleID })
	return p.saveRecent(ctx, list)
}

func (p *Prefs) saveRecent(ctx context.Context, list []RecentCouple) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode recent couples: %w", err)
	}
	return p.store.SetMetadata(ctx, keyRecentCouples, string(data))
}

func (p *Prefs) flag(ctx context.Context, key string) (bool, error) {
	v, err := p.optional(ctx, key)
	return v == "true", err
}

func (p *Prefs) setFlag(ctx context.Context, key string, on bool) error {
	if !on {
		return p.store.DeleteMetadata(ctx, key)
	}
	return p.store.SetMetadata(ctx, key, "true")
}

func (p *Prefs) optional(ctx context.Context, key string) (string, error) {
	v, err := p.store.GetMetadata(ctx, key)
	if errors.Is(err, cache.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// ResolveSettings returns the settings of a freshly created couple on this
// device. storedLanguage wins over the locale; a locale starting with "tr"
// selects Turkish and anything else English. Dark mode is only enabled
// when it was explicitly chosen before.
func ResolveSettings(storedLanguage, locale string, storedDarkMode bool) models.Settings {
	s := models.DefaultSettings()

	switch {
	case storedLanguage == models.LanguageEnglish || storedLanguage == models.LanguageTurkish:
		s.Language = storedLanguage
	case strings.HasPrefix(strings.ToLower(locale), "tr"):
		s.Language = models.LanguageTurkish
	default:
		s.Language = models.LanguageEnglish
	}

	if storedDarkMode {
		s.Theme = models.ThemeDark
	}
	return s
}
