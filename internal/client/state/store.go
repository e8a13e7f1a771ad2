// Package state holds the in-memory couple document and exposes one mutator
// per user action. Every mutation is persisted through the sync coordinator
// before it becomes visible.
package state

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

var (
	// ErrNotLoaded is returned by mutators before Hydrate.
	ErrNotLoaded = errors.New("store is not loaded")
	// ErrItemNotFound is returned when a mutator addresses an unknown item.
	ErrItemNotFound = errors.New("item not found")
)

// Persister stores a document change. Update must apply the local write
// before returning the stored document; the remote write may still be in
// flight.
type Persister interface {
	Update(ctx context.Context, patch models.Patch, exempt bool) (models.CoupleDocument, error)
}

// PINManager is implemented by persisters that manage the access PIN.
// Changing or removing an existing PIN requires the current one.
type PINManager interface {
	SetPIN(ctx context.Context, current, pin string) error
	RemovePIN(ctx context.Context, current string) error
	Document() (models.CoupleDocument, bool)
}

// DevicePrefs records device-wide presentation preferences.
type DevicePrefs interface {
	SetDarkMode(ctx context.Context, dark bool) error
	SetLanguage(ctx context.Context, lang string) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for IDs and dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDevicePrefs records theme and language changes on the device.
func WithDevicePrefs(p DevicePrefs) Option {
	return func(s *Store) { s.prefs = p }
}

// WithThemeApplier registers the callback run when the theme changes.
func WithThemeApplier(fn func(theme string)) Option {
	return func(s *Store) { s.applyTheme = fn }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Store is the reactive state container of one couple.
type Store struct {
	persister  Persister
	prefs      DevicePrefs
	applyTheme func(string)
	now        func() time.Time
	log        *zap.Logger

	mu       sync.Mutex
	coupleID string
	doc      models.CoupleDocument
	loaded   bool

	obsMu     sync.Mutex
	observers []func(models.CoupleDocument)
}

// New returns an empty store persisting through p.
func New(p Persister, opts ...Option) *Store {
	s := &Store{
		persister:  p,
		applyTheme: func(string) {},
		now:        time.Now,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads doc as the current state.
func (s *Store) Hydrate(coupleID string, doc models.CoupleDocument) {
	doc = doc.Clone()
	doc.Normalize()

	s.mu.Lock()
	s.coupleID = coupleID
	s.doc = doc
	s.loaded = true
	s.mu.Unlock()

	s.notify(doc)
}

// Replace swaps in a document merged from another device. Documents not
// newer than the current state are ignored.
func (s *Store) Replace(doc models.CoupleDocument) {
	s.mu.Lock()
	if !s.loaded || (doc.ID != "" && doc.ID != s.coupleID) || !doc.UpdatedAt.After(s.doc.UpdatedAt) {
		s.mu.Unlock()
		return
	}
	doc = doc.Clone()
	doc.Normalize()
	s.doc = doc
	s.mu.Unlock()

	s.notify(doc)
}

// Loaded reports whether a document was hydrated.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// CoupleID returns the hydrated couple ID.
func (s *Store) CoupleID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coupleID
}

// Document returns a copy of the current state.
func (s *Store) Document() models.CoupleDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Subscribe registers fn to receive a copy of the document after every
// change.
func (s *Store) Subscribe(fn func(models.CoupleDocument)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) notify(doc models.CoupleDocument) {
	s.obsMu.Lock()
	observers := slices.Clone(s.observers)
	s.obsMu.Unlock()
	for _, fn := range observers {
		fn(doc.Clone())
	}
}

// mutate builds a patch from the current document, persists it and adopts
// the persisted document. build must not modify the document it is given.
func (s *Store) mutate(ctx context.Context, exempt bool, build func(doc *models.CoupleDocument) (models.Patch, error)) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}

	patch, err := build(&s.doc)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	stored, err := s.persister.Update(ctx, patch, exempt)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	stored.Normalize()
	s.doc = stored
	doc := stored.Clone()
	s.mu.Unlock()

	s.notify(doc)
	return nil
}

func (s *Store) today() string {
	return models.DateKey(s.now())
}
