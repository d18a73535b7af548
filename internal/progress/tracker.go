package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"companywise/internal/storage"
)

// AnonymousKey is the store key used when no identity is signed in.
const AnonymousKey = "leetcode-progress"

var (
	// ErrEmptyTitle is returned when toggling a blank title.
	ErrEmptyTitle = errors.New("progress: title is required")

	// ErrNotLoaded is returned by mutations on a tracker whose state was
	// never read back from the store.
	ErrNotLoaded = errors.New("progress: state not loaded")
)

// Key returns the store key for identity.
func Key(identity string) string {
	if identity == "" {
		return AnonymousKey
	}
	return AnonymousKey + ":" + identity
}

// Observer is notified after state transitions. Callbacks run with the
// tracker lock held and must not call back into the tracker.
type Observer interface {
	StateChanged(ctx context.Context, identity string, s State)
	PersistFailed(ctx context.Context, identity string, err error)
}

// Tracker owns the progress state of one identity at a time. All reads
// and writes of the state, including persistence, happen under one mutex.
type Tracker struct {
	mu       sync.Mutex
	store    storage.Store
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
	observer Observer

	identity string
	state    State
	// loaded is set once state reflects the store. Nothing is persisted
	// before that.
	loaded bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the timezone that decides calendar days.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func WithObserver(o Observer) Option {
	return func(t *Tracker) { t.observer = o }
}

// NewTracker returns a tracker holding the empty anonymous state. Call Open
// to rehydrate.
func NewTracker(store storage.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
		loc:    time.Local,
		state:  NewState(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(slog.String("component", "progress.tracker"))
	return t
}

// Today is the current calendar date in the tracker's timezone.
func (t *Tracker) Today() string {
	return Day(t.now().In(t.loc))
}

// Now is the current time in the tracker's timezone.
func (t *Tracker) Now() time.Time {
	return t.now().In(t.loc)
}

// Open starts a session for identity: the state is re-read from the store
// under the identity's key and the streak is evaluated for today. Any
// state held for a previous identity is dropped, not merged.
//
// A missing or undecodable blob opens as the empty state. Any other read
// failure leaves the tracker unloaded and is returned; call Open again to
// retry.
func (t *Tracker) Open(ctx context.Context, identity string) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.identity = identity
	state, err := t.load(ctx, identity)
	if err != nil {
		t.state, t.loaded = NewState(), false
		return State{}, err
	}
	t.state, t.loaded = state, true
	t.evaluateLocked(ctx)
	return t.state.Clone(), nil
}

// Loaded reports whether the last Open read the store successfully.
func (t *Tracker) Loaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

// Identity returns the identity the tracker is bound to.
func (t *Tracker) Identity() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.identity
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}

// IsCompleted reports whether title is completed.
func (t *Tracker) IsCompleted(title string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.IsCompleted(title)
}

// EvaluateStreak runs the daily streak transition. It is a no-op when the
// streak was already evaluated today.
func (t *Tracker) EvaluateStreak(ctx context.Context) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.evaluateLocked(ctx)
	return t.state.Clone()
}

func (t *Tracker) evaluateLocked(ctx context.Context) {
	if !t.loaded {
		return
	}
	next, changed := EvaluateStreak(t.state, t.Today())
	if !changed {
		return
	}
	t.state = next
	t.logger.DebugContext(ctx, "streak evaluated",
		slog.String("identity", t.identity),
		slog.Int("streak", next.StreakCount))
	t.commitLocked(ctx)
}

// ToggleCompletion flips the completion of title and reports whether it is
// now completed.
func (t *Tracker) ToggleCompletion(ctx context.Context, title string) (bool, State, error) {
	if title == "" {
		return false, State{}, ErrEmptyTitle
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return false, State{}, ErrNotLoaded
	}

	next, completed := ToggleCompletion(t.state, title, t.Today())
	t.state = next
	t.logger.DebugContext(ctx, "completion toggled",
		slog.String("identity", t.identity),
		slog.String("title", title),
		slog.Bool("completed", completed))
	t.commitLocked(ctx)
	return completed, t.state.Clone(), nil
}

// MigrateFrom merges the state stored for another identity into this
// tracker's state, persists the result and deletes the source blob so the
// merge happens at most once. A missing source is a no-op.
func (t *Tracker) MigrateFrom(ctx context.Context, from string) (State, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return State{}, false, ErrNotLoaded
	}

	if Key(from) == Key(t.identity) {
		return t.state.Clone(), false, nil
	}

	data, err := t.store.Get(ctx, Key(from))
	if errors.Is(err, storage.ErrNotFound) {
		return t.state.Clone(), false, nil
	}
	if err != nil {
		return t.state.Clone(), false, err
	}
	src, err := Decode(data)
	if err != nil {
		t.logger.WarnContext(ctx, "discarding unreadable progress during migration",
			slog.String("from", from),
			slog.String("error", err.Error()))
		src = NewState()
	}

	t.state = Merge(t.state, src)
	if err := t.persistLocked(ctx); err != nil {
		return t.state.Clone(), false, err
	}
	t.notifyLocked(ctx)

	if err := t.store.Delete(ctx, Key(from)); err != nil {
		t.logger.WarnContext(ctx, "failed to delete migrated progress",
			slog.String("from", from),
			slog.String("error", err.Error()))
	}

	t.logger.InfoContext(ctx, "progress migrated",
		slog.String("from", from),
		slog.String("identity", t.identity),
		slog.Int("completed", len(t.state.CompletedTitles)))
	return t.state.Clone(), true, nil
}

func (t *Tracker) load(ctx context.Context, identity string) (State, error) {
	data, err := t.store.Get(ctx, Key(identity))
	if errors.Is(err, storage.ErrNotFound) {
		return NewState(), nil
	}
	if err != nil {
		t.logger.WarnContext(ctx, "progress store unavailable",
			slog.String("identity", identity),
			slog.String("error", err.Error()))
		return State{}, fmt.Errorf("load progress for %q: %w", identity, err)
	}

	s, err := Decode(data)
	if err != nil {
		t.logger.WarnContext(ctx, "corrupt progress blob, starting empty",
			slog.String("identity", identity),
			slog.String("error", err.Error()))
		return NewState(), nil
	}
	return s, nil
}

// commitLocked persists and notifies. Persistence failures are logged and
// reported to the observer; the in-memory state stays authoritative.
func (t *Tracker) commitLocked(ctx context.Context) {
	if err := t.persistLocked(ctx); err != nil {
		t.logger.WarnContext(ctx, "failed to persist progress",
			slog.String("identity", t.identity),
			slog.String("error", err.Error()))
		if t.observer != nil {
			t.observer.PersistFailed(ctx, t.identity, err)
		}
	}
	t.notifyLocked(ctx)
}

func (t *Tracker) persistLocked(ctx context.Context) error {
	if !t.loaded {
		return ErrNotLoaded
	}
	data, err := Encode(t.state)
	if err != nil {
		return err
	}
	return t.store.Put(ctx, Key(t.identity), data)
}

func (t *Tracker) notifyLocked(ctx context.Context) {
	if t.observer != nil {
		t.observer.StateChanged(ctx, t.identity, t.state.Clone())
	}
}
