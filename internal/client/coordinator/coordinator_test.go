package coordinator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/client/cache"
	"github.com/atinyakov/CoupleHQ/internal/client/device"
	"github.com/atinyakov/CoupleHQ/internal/models"
)

type fakeRemote struct {
	mu         sync.Mutex
	configured bool
	fetch      *models.Snapshot
	fetchErr   error
	updateErr  error
	updates    []models.CoupleDocument
	created    []string
	block      chan struct{}
	serverTime time.Time
	onChange   func(models.Snapshot)
	pinHash    string
	pinErr     error
}

func (f *fakeRemote) IsConfigured() bool { return f.configured }

func (f *fakeRemote) Fetch(context.Context, string) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetch, f.fetchErr
}

func (f *fakeRemote) Create(_ context.Context, id string, _ models.CoupleDocument, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, id)
	return id, nil
}

func (f *fakeRemote) Update(_ context.Context, _ string, doc models.CoupleDocument) (*models.Snapshot, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, doc)
	stamp := doc.UpdatedAt
	if !f.serverTime.IsZero() {
		stamp = models.NewTimestamp(f.serverTime)
	}
	return &models.Snapshot{Data: doc, UpdatedAt: stamp}, nil
}

func (f *fakeRemote) Exists(context.Context, string) (bool, error) { return false, nil }

func (f *fakeRemote) VerifyPIN(_ context.Context, _ string, pin string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pinErr != nil {
		return false, f.pinErr
	}
	if f.pinHash == "" {
		return true, nil
	}
	return models.Settings{PINHash: f.pinHash}.CheckPIN(pin), nil
}

func (f *fakeRemote) SetPIN(_ context.Context, _ string, current, pin string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pinHash != "" && !(models.Settings{PINHash: f.pinHash}).CheckPIN(current) {
		return fmt.Errorf("server error: %w", models.ErrWrongPIN)
	}
	f.pinHash = ""
	if pin == "" {
		return nil
	}
	hash, err := models.HashPIN(pin)
	if err != nil {
		return err
	}
	f.pinHash = hash
	return nil
}

func (f *fakeRemote) Subscribe(_ context.Context, _ string, onChange func(models.Snapshot)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = onChange
	return func() {}, nil
}

func (f *fakeRemote) setUpdateErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateErr = err
}

func (f *fakeRemote) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

type failingCache struct {
	*cache.Cache
	putErr error
	getErr error
}

func (f *failingCache) Get(ctx context.Context, id string) (*models.CoupleDocument, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Cache.Get(ctx, id)
}

func (f *failingCache) Put(ctx context.Context, id string, doc models.CoupleDocument) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.Cache.Put(ctx, id, doc)
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func newTestCoordinator(t *testing.T, local LocalCache, remote *fakeRemote, opts ...Option) *Coordinator {
	t.Helper()
	var prefs *device.Prefs
	if c, ok := local.(*cache.Cache); ok {
		prefs = device.NewPrefs(c)
	} else {
		prefs = device.NewPrefs(local.(*failingCache).Cache)
	}
	c := New(local, remote, prefs, zap.NewNop(), opts...)
	t.Cleanup(c.Close)
	return c
}

func docAt(ts time.Time, title string) models.CoupleDocument {
	doc := models.CoupleDocument{
		Couple:    models.Couple{Partner1: models.Partner{Name: "Ada"}, Partner2: models.Partner{Name: "Bo"}},
		Tasks:     []models.Task{{ID: 1, Title: title}},
		Settings:  models.DefaultSettings(),
		UpdatedAt: models.NewTimestamp(ts),
	}
	doc.Normalize()
	return doc
}

func TestLoad_LocalFirstWhenRemoteFails(t *testing.T) {
	ctx := context.Background()
	for _, remote := range []*fakeRemote{
		{configured: false},
		{configured: true, fetchErr: errors.New("unreachable")},
	} {
		local := newTestCache(t)
		require.NoError(t, local.Put(ctx, "c1", docAt(time.Now(), "cached")))

		c := newTestCoordinator(t, local, remote)
		doc, err := c.Load(ctx, Session{CoupleID: "c1"})
		require.NoError(t, err)
		assert.Equal(t, StateReady, c.State())
		assert.Equal(t, "cached", doc.Tasks[0].Title)
		assert.True(t, c.PINVerified())
	}
}

func TestLoad_RemoteWinsAndIsCached(t *testing.T) {
	ctx := context.Background()
	local := newTestCache(t)
	require.NoError(t, local.Put(ctx, "c1", docAt(time.Now(), "stale")))
	remoteDoc := docAt(time.Now(), "fresh")
	remote := &fakeRemote{configured: true, fetch: &models.Snapshot{Data: remoteDoc, UpdatedAt: remoteDoc.UpdatedAt}}

	c := newTestCoordinator(t, local, remote)
	doc, err := c.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", doc.Tasks[0].Title)

	cached, err := local.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", cached.Tasks[0].Title)

	recent, err := device.NewPrefs(local).RecentCouples(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Ada", recent[0].Partner1)
}

func TestLoad_CreatesDefaultAndDemo(t *testing.T) {
	ctx := context.Background()
	local := newTestCache(t)
	var theme string
	c := newTestCoordinator(t, local, &fakeRemote{}, WithThemeApplier(func(th string) { theme = th }))

	doc, err := c.Load(ctx, Session{CoupleID: "new", Partner1: "Ece", Partner2: "Can", Locale: "tr_TR.UTF-8"})
	require.NoError(t, err)
	assert.Equal(t, "Ece", doc.Couple.Partner1.Name)
	assert.Equal(t, models.LanguageTurkish, doc.Settings.Language)
	assert.Equal(t, models.ThemeLight, theme)

	_, err = local.Get(ctx, "new")
	require.NoError(t, err, "a new document is cached immediately")

	demo, err := c.Load(ctx, Session{CoupleID: "maryjohn"})
	require.NoError(t, err)
	assert.Equal(t, "Mary", demo.Couple.Partner1.Name)
	assert.True(t, c.IsDemo("maryjohn"))

	recent, _ := device.NewPrefs(local).RecentCouples(ctx)
	for _, r := range recent {
		assert.NotEqual(t, "maryjohn", r.ID, "demo couple is not recorded")
	}
}

func TestLoad_ErrorState(t *testing.T) {
	local := &failingCache{Cache: newTestCache(t), putErr: errors.New("disk full")}
	c := newTestCoordinator(t, local, &fakeRemote{})

	_, err := c.Load(context.Background(), Session{CoupleID: "c1"})
	require.Error(t, err)
	assert.Equal(t, StateError, c.State())
	assert.Equal(t, loadErrorMessage, c.Err())
}

func TestLoad_CacheReadErrorKeepsCache(t *testing.T) {
	ctx := context.Background()
	base := newTestCache(t)
	require.NoError(t, base.Put(ctx, "c1", docAt(time.Now(), "precious")))
	local := &failingCache{Cache: base, getErr: errors.New("database is locked")}

	c := newTestCoordinator(t, local, &fakeRemote{})
	_, err := c.Load(ctx, Session{CoupleID: "c1", Partner1: "X", Partner2: "Y"})
	require.Error(t, err)
	assert.Equal(t, StateError, c.State())
	_, ok := c.Document()
	assert.False(t, ok)

	cached, err := base.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "precious", cached.Tasks[0].Title, "cached document must not be replaced")
}

func TestUpdate_OptimisticWhileRemotePending(t *testing.T) {
	ctx := context.Background()
	local := newTestCache(t)
	remote := &fakeRemote{configured: true, block: make(chan struct{})}
	c := newTestCoordinator(t, local, remote)
	_, err := c.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)

	tasks := []models.Task{{ID: 9, Title: "pending"}}
	got, err := c.Update(ctx, models.Patch{Tasks: &tasks}, false)
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Tasks[0].Title)

	doc, _ := c.Document()
	assert.Equal(t, "pending", doc.Tasks[0].Title)
	cached, err := local.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "pending", cached.Tasks[0].Title)
	assert.Equal(t, 0, remote.updateCount(), "remote write has not resolved yet")

	close(remote.block)
	c.Wait()
	assert.Equal(t, 1, remote.updateCount())
	assert.Equal(t, SyncStatus{Online: true, Synced: true}, c.Status())
}

func TestUpdate_TimestampNeverDecreases(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCoordinator(t, newTestCache(t), &fakeRemote{}, WithClock(func() time.Time { return clock }))
	_, err := c.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)

	first, err := c.Update(ctx, models.Patch{}, false)
	require.NoError(t, err)

	clock = clock.Add(-time.Hour)
	second, err := c.Update(ctx, models.Patch{}, false)
	require.NoError(t, err)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt.Time))
}

func TestUpdate_DemoGate(t *testing.T) {
	ctx := context.Background()
	local := newTestCache(t)
	remote := &fakeRemote{configured: true}
	readOnly := 0
	c := newTestCoordinator(t, local, remote, WithReadOnlyHandler(func() { readOnly++ }))
	_, err := c.Load(ctx, Session{CoupleID: "maryjohn"})
	require.NoError(t, err)
	before, _ := local.Get(ctx, "maryjohn")

	tasks := []models.Task{}
	_, err = c.Update(ctx, models.Patch{Tasks: &tasks}, false)
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.Equal(t, 1, readOnly)
	after, _ := local.Get(ctx, "maryjohn")
	assert.Equal(t, len(before.Tasks), len(after.Tasks))
	c.Wait()
	assert.Equal(t, 0, remote.updateCount())

	settings := before.Settings
	settings.Theme = models.ThemeDark
	_, err = c.Update(ctx, models.Patch{Settings: &settings}, true)
	require.NoError(t, err)
	c.Wait()
	after, _ = local.Get(ctx, "maryjohn")
	assert.Equal(t, models.ThemeDark, after.Settings.Theme)
	assert.Equal(t, 1, remote.updateCount())
}

func TestUpdate_LocalFailureNotApplied(t *testing.T) {
	ctx := context.Background()
	local := &failingCache{Cache: newTestCache(t)}
	c := newTestCoordinator(t, local, &fakeRemote{})
	_, err := c.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)

	local.putErr = errors.New("quota exceeded")
	tasks := []models.Task{{ID: 1, Title: "lost"}}
	_, err = c.Update(ctx, models.Patch{Tasks: &tasks}, false)
	require.Error(t, err)

	doc, _ := c.Document()
	assert.Empty(t, doc.Tasks)
}

func TestMerge_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	local := newTestCache(t)
	require.NoError(t, local.Put(ctx, "c1", docAt(base, "local")))
	c := newTestCoordinator(t, local, &fakeRemote{})
	_, err := c.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)

	var notified []string
	c.OnChange(func(d models.CoupleDocument) { notified = append(notified, d.Tasks[0].Title) })

	tests := []struct {
		name    string
		at      time.Time
		title   string
		applied bool
	}{
		{"equal timestamp is discarded", base, "equal", false},
		{"older timestamp is discarded", base.Add(-time.Minute), "older", false},
		{"newer timestamp replaces", base.Add(time.Minute), "newer", true},
		{"stale after newer is discarded", base.Add(30 * time.Second), "late", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Merge(ctx, docAt(tt.at, tt.title), models.NewTimestamp(tt.at))
			assert.Equal(t, tt.applied, got)
		})
	}

	doc, _ := c.Document()
	assert.Equal(t, "newer", doc.Tasks[0].Title)
	assert.Equal(t, []string{"newer"}, notified)
	cached, _ := local.Get(ctx, "c1")
	assert.Equal(t, "newer", cached.Tasks[0].Title)
}

func TestRealtime_SubscribesWhenVerified(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	local := newTestCache(t)
	require.NoError(t, local.Put(ctx, "c1", docAt(base, "local")))
	remote := &fakeRemote{configured: true, fetchErr: errors.New("offline")}
	c := newTestCoordinator(t, local, remote)
	_, err := c.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)

	require.NoError(t, c.StartRealtime(ctx))
	require.NotNil(t, remote.onChange)

	remote.onChange(models.Snapshot{Data: docAt(base, "remote"), UpdatedAt: models.NewTimestamp(base.Add(time.Second))})
	doc, _ := c.Document()
	assert.Equal(t, "remote", doc.Tasks[0].Title)
}

func TestPush_LandsInIssueOrder(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{configured: true, fetchErr: errors.New("offline"), block: make(chan struct{})}
	c := newTestCoordinator(t, newTestCache(t), remote)
	_, err := c.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)

	const n = 20
	for i := 0; i < n; i++ {
		tasks := []models.Task{{ID: 1, Title: strconv.Itoa(i)}}
		_, err := c.Update(ctx, models.Patch{Tasks: &tasks}, false)
		require.NoError(t, err)
	}
	close(remote.block)
	c.Wait()

	remote.mu.Lock()
	landed := slices.Clone(remote.updates)
	remote.mu.Unlock()
	require.NotEmpty(t, landed)
	prev := -1
	for _, doc := range landed {
		i, err := strconv.Atoi(doc.Tasks[0].Title)
		require.NoError(t, err)
		assert.Greater(t, i, prev, "revision %d landed after revision %d", i, prev)
		prev = i
	}
	assert.Equal(t, strconv.Itoa(n-1), landed[len(landed)-1].Tasks[0].Title)
}

func TestForceSync_NotOvertakenByQueuedPush(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{configured: true, fetchErr: errors.New("offline"), block: make(chan struct{})}
	c := newTestCoordinator(t, newTestCache(t), remote)
	_, err := c.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)

	for _, title := range []string{"old", "new"} {
		tasks := []models.Task{{ID: 1, Title: title}}
		_, err := c.Update(ctx, models.Patch{Tasks: &tasks}, false)
		require.NoError(t, err)
	}
	close(remote.block)
	require.NoError(t, c.ForceSync(ctx))
	c.Wait()

	remote.mu.Lock()
	defer remote.mu.Unlock()
	require.NotEmpty(t, remote.updates)
	assert.Equal(t, "new", remote.updates[len(remote.updates)-1].Tasks[0].Title)
}

func TestPush_FailureQueuesAndDrainClears(t *testing.T) {
	ctx := context.Background()
	local := newTestCache(t)
	remote := &fakeRemote{configured: true, fetchErr: errors.New("offline")}
	c := newTestCoordinator(t, local, remote)
	_, err := c.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)

	remote.setUpdateErr(errors.New("offline"))
	notes := []models.Note{{ID: 5, Title: "queued"}}
	_, err = c.Update(ctx, models.Patch{Notes: &notes}, false)
	require.NoError(t, err)
	c.Wait()

	assert.Equal(t, SyncStatus{Online: false, Synced: false}, c.Status())
	items, err := local.GetPendingByCoupleID(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	doc, _ := c.Document()
	assert.Equal(t, doc.Notes, items[0].Doc.Notes)
	assert.True(t, doc.UpdatedAt.Equal(items[0].Doc.UpdatedAt.Time))

	remote.setUpdateErr(nil)
	require.NoError(t, c.DrainQueue(ctx))
	items, err = local.GetPendingByCoupleID(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, remote.updateCount())
	assert.Equal(t, SyncStatus{Online: true, Synced: true}, c.Status())
}

func TestForceSync(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{configured: true, fetchErr: errors.New("offline")}
	c := newTestCoordinator(t, newTestCache(t), remote)

	assert.ErrorIs(t, c.ForceSync(ctx), ErrNotLoaded)

	_, err := c.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)
	require.NoError(t, c.ForceSync(ctx))
	assert.Equal(t, 1, remote.updateCount())
}

func TestPIN_Gate(t *testing.T) {
	ctx := context.Background()
	local := newTestCache(t)
	c := newTestCoordinator(t, local, &fakeRemote{})
	_, err := c.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)
	require.NoError(t, c.SetPIN(ctx, "", "2468"))

	doc, _ := c.Document()
	assert.NotEmpty(t, doc.Settings.PINHash)
	assert.NotContains(t, doc.Settings.PINHash, "2468")

	// Another device: same cache content, no verification flag.
	require.NoError(t, device.NewPrefs(local).SetPINVerified(ctx, "c1", false))
	other := newTestCoordinator(t, local, &fakeRemote{})
	_, err = other.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)
	assert.True(t, other.PINRequired())
	assert.False(t, other.PINVerified())

	ok, err := other.VerifyPIN(ctx, "0000")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = other.VerifyPIN(ctx, "2468")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, other.PINVerified())

	assert.ErrorIs(t, other.SetPIN(ctx, "0000", "1111"), ErrWrongPIN)
	assert.ErrorIs(t, other.RemovePIN(ctx, ""), ErrWrongPIN)
	require.NoError(t, other.RemovePIN(ctx, "2468"))
	doc, _ = other.Document()
	assert.False(t, doc.Settings.PINSet())
}

func TestPIN_VerifiedByServer(t *testing.T) {
	ctx := context.Background()
	local := newTestCache(t)
	remote := &fakeRemote{configured: true, fetchErr: errors.New("offline")}
	c := newTestCoordinator(t, local, remote)
	_, err := c.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)

	require.NoError(t, c.SetPIN(ctx, "", "2468"))
	c.Wait()
	doc, _ := c.Document()
	assert.Empty(t, doc.Settings.PINHash, "the hash stays on the server")
	assert.True(t, doc.Settings.PINProtected)
	assert.NotEmpty(t, remote.pinHash)
	for _, pushed := range remote.updates {
		assert.Empty(t, pushed.Settings.PINHash)
		assert.Empty(t, pushed.Settings.PIN)
	}

	// A hash planted in the cached copy is not what unlocks the couple.
	planted, err := models.HashPIN("0000")
	require.NoError(t, err)
	cached, err := local.Get(ctx, "c1")
	require.NoError(t, err)
	cached.Settings.PINHash = planted
	require.NoError(t, local.Put(ctx, "c1", *cached))
	require.NoError(t, device.NewPrefs(local).SetPINVerified(ctx, "c1", false))

	other := newTestCoordinator(t, local, remote)
	_, err = other.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)
	require.True(t, other.PINRequired())

	ok, err := other.VerifyPIN(ctx, "0000")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = other.VerifyPIN(ctx, "2468")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, other.RemovePIN(ctx, "0000"), ErrWrongPIN)
	assert.NotEmpty(t, remote.pinHash)
	require.NoError(t, other.RemovePIN(ctx, "2468"))
	assert.Empty(t, remote.pinHash)
	doc, _ = other.Document()
	assert.False(t, doc.Settings.PINSet())

	remote.pinErr = errors.New("offline")
	_, err = other.VerifyPIN(ctx, "2468")
	assert.Error(t, err)
}

func TestLoad_MigratesLegacyPIN(t *testing.T) {
	ctx := context.Background()
	local := newTestCache(t)
	legacy := docAt(time.Now(), "x")
	legacy.Settings.PIN = "1357"
	require.NoError(t, local.Put(ctx, "c1", legacy))

	c := newTestCoordinator(t, local, &fakeRemote{})
	doc, err := c.Load(ctx, Session{CoupleID: "c1"})
	require.NoError(t, err)
	assert.Empty(t, doc.Settings.PIN)
	assert.True(t, c.PINRequired())

	cached, _ := local.Get(ctx, "c1")
	assert.Empty(t, cached.Settings.PIN, "plaintext pin is not kept on disk")
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	local := newTestCache(t)
	remote := &fakeRemote{configured: true}
	c := newTestCoordinator(t, local, remote)

	id, err := c.Create(ctx, Session{Partner1: "Ada", Partner2: "Bo"})
	require.NoError(t, err)
	assert.Len(t, id, 12)
	assert.Equal(t, []string{id}, remote.created)

	_, err = c.Create(ctx, Session{CoupleID: id})
	assert.ErrorIs(t, err, ErrExists)
	_, err = c.Create(ctx, Session{CoupleID: "demo"})
	assert.ErrorIs(t, err, ErrReadOnly)

	doc, err := c.Load(ctx, Session{CoupleID: id})
	require.NoError(t, err)
	assert.Equal(t, "Ada", doc.Couple.Partner1.Name)
}
