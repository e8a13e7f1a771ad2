// Package coordinator loads a couple document, persists every change to the
// local cache and the Remote Store, and merges realtime changes from other
// devices by last-writer-wins on UpdatedAt.
package coordinator

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/client/cache"
	"github.com/atinyakov/CoupleHQ/internal/models"
)

var (
	// ErrReadOnly is returned for non-exempt updates of a demo couple.
	ErrReadOnly = errors.New("demo couple is read-only")
	// ErrNotLoaded is returned when no couple is loaded.
	ErrNotLoaded = errors.New("no couple loaded")
	// ErrExists is returned when creating a couple whose ID is taken.
	ErrExists = errors.New("couple already exists")
	// ErrWrongPIN is returned when the current PIN does not match.
	ErrWrongPIN = models.ErrWrongPIN
)

// LocalCache is the subset of the local cache the coordinator uses.
type LocalCache interface {
	Get(ctx context.Context, id string) (*models.CoupleDocument, error)
	Put(ctx context.Context, id string, doc models.CoupleDocument) error
	Add(ctx context.Context, item cache.QueueItem) (int64, error)
	GetPendingByCoupleID(ctx context.Context, coupleID string) ([]cache.QueueItem, error)
	ClearByIDs(ctx context.Context, ids []int64) error
}

// RemoteStore is the Remote Store contract. When IsConfigured is false every
// other method is a no-op returning neutral values.
type RemoteStore interface {
	IsConfigured() bool
	Fetch(ctx context.Context, id string) (*models.Snapshot, error)
	Create(ctx context.Context, id string, doc models.CoupleDocument, pin string) (string, error)
	Update(ctx context.Context, id string, doc models.CoupleDocument) (*models.Snapshot, error)
	Exists(ctx context.Context, id string) (bool, error)
	VerifyPIN(ctx context.Context, id, pin string) (bool, error)
	SetPIN(ctx context.Context, id, current, pin string) error
	Subscribe(ctx context.Context, id string, onChange func(models.Snapshot)) (func(), error)
}

// Prefs is the device-local state the coordinator reads and writes.
type Prefs interface {
	PINVerified(ctx context.Context, coupleID string) (bool, error)
	SetPINVerified(ctx context.Context, coupleID string, verified bool) error
	DarkMode(ctx context.Context) (dark, ok bool, err error)
	Language(ctx context.Context) (string, error)
	TouchCouple(ctx context.Context, coupleID, partner1, partner2 string) error
	RenameCouple(ctx context.Context, coupleID, partner1, partner2 string) error
}

// State is the lifecycle state of a couple session.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateSyncing
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSyncing:
		return "syncing"
	case StateError:
		return "error"
	default:
		return "unloaded"
	}
}

// SyncStatus reports the outcome of the latest remote write.
type SyncStatus struct {
	Online bool
	Synced bool
}

// Session selects the couple to load. Partner names and Locale are only
// used when a new default document has to be created.
type Session struct {
	CoupleID string
	Partner1 string
	Partner2 string
	Locale   string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDemoIDs sets the read-only couple IDs. The first one is seeded with
// the demo document when nothing is stored for it.
func WithDemoIDs(ids ...string) Option {
	return func(c *Coordinator) { c.demoIDs = ids }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithThemeApplier registers the callback that applies the loaded theme.
func WithThemeApplier(fn func(theme string)) Option {
	return func(c *Coordinator) { c.applyTheme = fn }
}

// WithReadOnlyHandler registers the callback raised when a demo couple
// rejects an update.
func WithReadOnlyHandler(fn func()) Option {
	return func(c *Coordinator) { c.onReadOnly = fn }
}

// Coordinator owns the authoritative in-memory document of one session.
// Lock order: callers may hold their own locks while calling Update; the
// coordinator never calls out to observers while holding mu, and takes
// pushQMu only after mu.
type Coordinator struct {
	local  LocalCache
	remote RemoteStore
	prefs  Prefs
	log    *zap.Logger

	demoIDs    []string
	now        func() time.Time
	applyTheme func(string)
	onReadOnly func()

	mu          sync.Mutex
	session     Session
	doc         *models.CoupleDocument
	state       State
	status      SyncStatus
	lastErr     string
	pinRequired bool
	pinVerified bool
	// seq numbers local revisions in issue order.
	seq uint64

	// pushMu serializes remote writes. pushedSeq is the newest revision
	// handed to the Remote Store; older revisions are never sent after it.
	pushMu    sync.Mutex
	pushedSeq uint64

	// pushQ is drained FIFO by a single worker while pushing is set.
	pushQMu sync.Mutex
	pushQ   []pushJob
	pushing bool
	wg      sync.WaitGroup

	subMu       sync.Mutex
	subID       string
	unsubscribe func()

	obsMu     sync.Mutex
	observers []func(models.CoupleDocument)
}

// New returns a coordinator over the given stores.
func New(local LocalCache, remote RemoteStore, prefs Prefs, log *zap.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		local:      local,
		remote:     remote,
		prefs:      prefs,
		log:        log,
		demoIDs:    []string{"maryjohn", "demo"},
		now:        time.Now,
		applyTheme: func(string) {},
		onReadOnly: func() {},
		status:     SyncStatus{Online: remote.IsConfigured(), Synced: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsDemo reports whether id is a read-only demo couple.
func (c *Coordinator) IsDemo(id string) bool {
	return slices.Contains(c.demoIDs, id)
}

// OnChange registers fn to receive documents merged from other devices.
func (c *Coordinator) OnChange(fn func(models.CoupleDocument)) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Coordinator) notify(doc models.CoupleDocument) {
	c.obsMu.Lock()
	observers := slices.Clone(c.observers)
	c.obsMu.Unlock()
	for _, fn := range observers {
		fn(doc.Clone())
	}
}

// State returns the session state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the sync status.
func (c *Coordinator) Status() SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err returns the user-facing message of the Error state.
func (c *Coordinator) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// CoupleID returns the ID of the active session.
func (c *Coordinator) CoupleID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.CoupleID
}

// Document returns a copy of the current document.
func (c *Coordinator) Document() (models.CoupleDocument, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return models.CoupleDocument{}, false
	}
	return c.doc.Clone(), true
}

// PINRequired reports whether the loaded couple waits for PIN entry.
func (c *Coordinator) PINRequired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pinRequired
}

// PINVerified reports whether data may be exposed for this session.
func (c *Coordinator) PINVerified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pinVerified
}

// Wait blocks until every in-flight remote push has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close stops the realtime feed and waits for pending pushes.
func (c *Coordinator) Close() {
	c.StopRealtime()
	c.Wait()
}

func (c *Coordinator) setStatus(online, synced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = SyncStatus{Online: online, Synced: synced}
	if c.state == StateSyncing {
		c.state = StateReady
	}
}

func (c *Coordinator) beginSync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateReady {
		c.state = StateSyncing
	}
}

// stamp returns a modification time that never goes backwards.
func (c *Coordinator) stamp(prev models.Timestamp) models.Timestamp {
	now := models.NewTimestamp(c.now())
	if prev.After(now) {
		return prev
	}
	return now
}

// migratePIN hashes a plaintext PIN left by older clients.
func (c *Coordinator) migratePIN(doc *models.CoupleDocument) bool {
	changed, err := doc.Settings.MigrateLegacyPIN()
	if err != nil {
		c.log.Warn("failed to migrate legacy pin", zap.Error(err))
		return false
	}
	return changed
}
