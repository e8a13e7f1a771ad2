package models

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// ThemeLight is the default presentation theme.
	ThemeLight = "light"
	// ThemeDark selects the dark presentation theme.
	ThemeDark = "dark"

	// LanguageEnglish and LanguageTurkish are the supported UI languages.
	LanguageEnglish = "en"
	LanguageTurkish = "tr"
)

// ErrWrongPIN is returned when a PIN change is attempted without the
// current PIN.
var ErrWrongPIN = errors.New("wrong pin")

// Settings holds per-couple preferences.
type Settings struct {
	Theme         string `json:"theme"`
	Language      string `json:"language"`
	Notifications bool   `json:"notifications"`
	WeekStartsOn  string `json:"weekStartsOn"`
	DateFormat    string `json:"dateFormat"`
	Currency      string `json:"currency"`
	// PINHash is a bcrypt hash of the access PIN, empty when no PIN is set.
	PINHash string `json:"pinHash,omitempty"`
	// PIN is a plaintext PIN found in documents written by older clients.
	// It is hashed into PINHash by MigrateLegacyPIN and never written back.
	PIN string `json:"pin,omitempty"`
	// PINProtected is set by the Remote Store when it holds a PIN hash for
	// the couple. The hash itself stays on the server.
	PINProtected bool   `json:"pinProtected,omitempty"`
	Email        string `json:"email,omitempty"`
}

// DefaultSettings returns the settings of a freshly created couple.
func DefaultSettings() Settings {
	return Settings{
		Theme:         ThemeLight,
		Language:      LanguageEnglish,
		Notifications: true,
		WeekStartsOn:  "monday",
		DateFormat:    "DD/MM/YYYY",
		Currency:      "TRY",
	}
}

// HashPIN hashes a PIN with bcrypt.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

// PINSet reports whether access to the couple is gated by a PIN.
func (s Settings) PINSet() bool {
	return s.PINHash != "" || s.PIN != "" || s.PINProtected
}

// CopyPIN replaces the PIN state of s with the one of src.
func (s *Settings) CopyPIN(src Settings) {
	s.PINHash = src.PINHash
	s.PIN = src.PIN
	s.PINProtected = src.PINProtected
}

// WithoutPINSecrets returns s without the PIN hash or a plaintext PIN.
func (s Settings) WithoutPINSecrets() Settings {
	s.PINHash = ""
	s.PIN = ""
	return s
}

// CheckPIN verifies pin against the stored hash.
func (s Settings) CheckPIN(pin string) bool {
	if s.PINHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.PINHash), []byte(pin)) == nil
}

// MigrateLegacyPIN replaces a plaintext PIN with its hash. It reports
// whether the settings changed.
func (s *Settings) MigrateLegacyPIN() (bool, error) {
	if s.PIN == "" {
		return false, nil
	}
	hash, err := HashPIN(s.PIN)
	if err != nil {
		return false, err
	}
	s.PINHash = hash
	s.PIN = ""
	return true, nil
}
