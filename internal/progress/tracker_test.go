package progress

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companywise/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingObserver struct {
	mu          sync.Mutex
	changes     []State
	persistErrs []error
}

func (o *recordingObserver) StateChanged(_ context.Context, _ string, s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, s)
}

func (o *recordingObserver) PersistFailed(_ context.Context, _ string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.persistErrs = append(o.persistErrs, err)
}

type failingStore struct {
	storage.Store
	getErr, putErr error
}

func (s *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Store.Get(ctx, key)
}

func (s *failingStore) Put(ctx context.Context, key string, value []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	return s.Store.Put(ctx, key, value)
}

func newTestTracker(t *testing.T, store storage.Store, clock *fakeClock, opts ...Option) *Tracker {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	opts = append([]Option{
		WithClock(clock.Now),
		WithLocation(time.UTC),
		WithLogger(logger),
	}, opts...)
	return NewTracker(store, opts...)
}

func mustOpen(t *testing.T, tracker *Tracker, identity string) State {
	t.Helper()
	s, err := tracker.Open(context.Background(), identity)
	require.NoError(t, err)
	return s
}

func storedState(t *testing.T, store storage.Store, identity string) State {
	t.Helper()
	data, err := store.Get(context.Background(), Key(identity))
	require.NoError(t, err)
	s, err := Decode(data)
	require.NoError(t, err)
	return s
}

func TestKey(t *testing.T) {
	assert.Equal(t, "leetcode-progress", Key(""))
	assert.Equal(t, "leetcode-progress:demo@example.com", Key("demo@example.com"))
}

func TestTracker_OpenEvaluatesStreakAndPersists(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	tracker := newTestTracker(t, store, clock)

	s := mustOpen(t, tracker, "")
	assert.Equal(t, 1, s.StreakCount)
	assert.Equal(t, "2026-10-19", *s.LastVisitDate)
	assert.Equal(t, s, storedState(t, store, ""))

	again := mustOpen(t, tracker, "")
	assert.Equal(t, s, again, "reopening on the same day is a no-op")

	clock.Advance(24 * time.Hour)
	next := mustOpen(t, tracker, "")
	assert.Equal(t, 2, next.StreakCount)

	clock.Advance(72 * time.Hour)
	reset := tracker.EvaluateStreak(ctx)
	assert.Equal(t, 1, reset.StreakCount)
	assert.Equal(t, "2026-10-23", *reset.LastVisitDate)
}

func TestTracker_ToggleCompletion(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC)}
	observer := &recordingObserver{}
	tracker := newTestTracker(t, store, clock, WithObserver(observer))
	mustOpen(t, tracker, "")

	completed, s, err := tracker.ToggleCompletion(ctx, "Two Sum")
	require.NoError(t, err)
	assert.True(t, completed)
	assert.True(t, tracker.IsCompleted("Two Sum"))
	assert.Equal(t, []string{"2026-10-19"}, s.PracticeDates)
	assert.Equal(t, s, storedState(t, store, ""))

	completed, s, err = tracker.ToggleCompletion(ctx, "Two Sum")
	require.NoError(t, err)
	assert.False(t, completed)
	assert.False(t, tracker.IsCompleted("Two Sum"))
	assert.Equal(t, []string{"2026-10-19"}, s.PracticeDates)
	assert.Empty(t, storedState(t, store, "").CompletedTitles)

	_, _, err = tracker.ToggleCompletion(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyTitle)

	// open + two toggles
	assert.Len(t, observer.changes, 3)
}

func TestTracker_UsesConfiguredTimezone(t *testing.T) {
	ctx := context.Background()
	tokyo := time.FixedZone("JST", 9*60*60)
	clock := &fakeClock{now: time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)}
	tracker := newTestTracker(t, storage.NewMemoryStore(), clock, WithLocation(tokyo))

	s := mustOpen(t, tracker, "")
	assert.Equal(t, "2026-10-20", *s.LastVisitDate)
}

func TestTracker_IdentitySwitchDoesNotMerge(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	tracker := newTestTracker(t, store, clock)

	mustOpen(t, tracker, "")
	_, _, err := tracker.ToggleCompletion(ctx, "Anonymous Problem")
	require.NoError(t, err)

	s := mustOpen(t, tracker, "demo@example.com")
	assert.Equal(t, "demo@example.com", tracker.Identity())
	assert.Empty(t, s.CompletedTitles)
	assert.False(t, tracker.IsCompleted("Anonymous Problem"))

	s = mustOpen(t, tracker, "")
	assert.Equal(t, []string{"Anonymous Problem"}, s.CompletedTitles)
}

func TestTracker_MigrateFrom(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	tracker := newTestTracker(t, store, clock)

	mustOpen(t, tracker, "")
	_, _, err := tracker.ToggleCompletion(ctx, "A")
	require.NoError(t, err)

	mustOpen(t, tracker, "demo@example.com")
	_, _, err = tracker.ToggleCompletion(ctx, "B")
	require.NoError(t, err)

	s, migrated, err := tracker.MigrateFrom(ctx, "")
	require.NoError(t, err)
	assert.True(t, migrated)
	assert.Equal(t, []string{"B", "A"}, s.CompletedTitles)
	assert.Equal(t, s, storedState(t, store, "demo@example.com"))

	_, err = store.Get(ctx, Key(""))
	assert.ErrorIs(t, err, storage.ErrNotFound, "source blob is removed after migration")

	_, migrated, err = tracker.MigrateFrom(ctx, "")
	require.NoError(t, err)
	assert.False(t, migrated, "second migration finds nothing")

	_, migrated, err = tracker.MigrateFrom(ctx, "demo@example.com")
	require.NoError(t, err)
	assert.False(t, migrated, "self migration is a no-op")
}

func TestTracker_CorruptBlobLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Put(ctx, Key(""), []byte("not json")))
	clock := &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}

	s := mustOpen(t, newTestTracker(t, store, clock), "")
	assert.Empty(t, s.CompletedTitles)
	assert.Equal(t, 1, s.StreakCount)
}

func TestTracker_WriteFailuresAreAbsorbed(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	store := &failingStore{Store: storage.NewMemoryStore(), putErr: boom}
	clock := &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	observer := &recordingObserver{}
	tracker := newTestTracker(t, store, clock, WithObserver(observer))

	s := mustOpen(t, tracker, "")
	assert.Equal(t, 1, s.StreakCount)

	completed, _, err := tracker.ToggleCompletion(ctx, "A")
	require.NoError(t, err)
	assert.True(t, completed)
	assert.True(t, tracker.IsCompleted("A"))
	assert.Len(t, observer.persistErrs, 2)
}

func TestTracker_ReadFailureNeverOverwritesStoredState(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	last := "2026-10-18"
	saved := State{
		CompletedTitles: []string{"Two Sum", "LRU Cache", "Word Ladder"},
		StreakCount:     7,
		LastVisitDate:   &last,
		PracticeDates:   []string{"2026-10-17", "2026-10-18"},
	}
	data, err := Encode(saved)
	require.NoError(t, err)
	require.NoError(t, mem.Put(ctx, Key(""), data))

	store := &failingStore{Store: mem, getErr: context.Canceled}
	clock := &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	observer := &recordingObserver{}
	tracker := newTestTracker(t, store, clock, WithObserver(observer))

	_, err = tracker.Open(ctx, "")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, tracker.Loaded())

	_, _, err = tracker.ToggleCompletion(ctx, "Valid Parentheses")
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, _, err = tracker.MigrateFrom(ctx, "someone@example.com")
	assert.ErrorIs(t, err, ErrNotLoaded)
	tracker.EvaluateStreak(ctx)
	assert.Empty(t, observer.changes)
	assert.Equal(t, saved, storedState(t, mem, ""), "stored blob is untouched")

	// The read recovers on the next Open.
	store.getErr = nil
	s := mustOpen(t, tracker, "")
	assert.Equal(t, 8, s.StreakCount)
	assert.Len(t, s.CompletedTitles, 3)

	_, s, err = tracker.ToggleCompletion(ctx, "Valid Parentheses")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-10-17", "2026-10-18", "2026-10-19"}, s.PracticeDates)
	assert.Len(t, storedState(t, mem, "").CompletedTitles, 4)
}

func TestTracker_ConcurrentTogglesSerialize(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	tracker := newTestTracker(t, store, clock)
	mustOpen(t, tracker, "")

	titles := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	var wg sync.WaitGroup
	for _, title := range titles {
		wg.Add(1)
		go func(title string) {
			defer wg.Done()
			_, _, _ = tracker.ToggleCompletion(ctx, title)
		}(title)
	}
	wg.Wait()

	stored := storedState(t, store, "")
	assert.ElementsMatch(t, titles, stored.CompletedTitles)
	assert.Equal(t, tracker.Snapshot(), stored)
}
