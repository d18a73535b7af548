package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apierrors "companywise/internal/errors"
	"companywise/internal/infrastructure"
	"companywise/internal/problems"
	"companywise/internal/progress"
	"companywise/internal/storage"
	ws "companywise/internal/websocket"
)

// ProgressOptions configures a ProgressService. Zero values are usable.
type ProgressOptions struct {
	Location  *time.Location
	Clock     func() time.Time
	Publisher ws.Publisher
	Metrics   *infrastructure.BusinessMetrics
	Logger    *slog.Logger
}

// ToggleResult is the outcome of a completion toggle.
type ToggleResult struct {
	Title     string         `json:"title"`
	Completed bool           `json:"completed"`
	State     progress.State `json:"state"`
}

// MigrationResult is the outcome of merging anonymous progress.
type MigrationResult struct {
	Merged bool           `json:"merged"`
	State  progress.State `json:"state"`
}

// ProgressService keeps one Tracker per identity over a shared store and
// pushes every state change to that identity's realtime subscribers.
type ProgressService struct {
	store     storage.Store
	loc       *time.Location
	clock     func() time.Time
	publisher ws.Publisher
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger

	mu       sync.Mutex
	trackers map[string]*session
	streaks  map[string]int
}

// session serialises all use of one identity's tracker. A session whose
// open failed stays unopened, so the next call retries the read.
type session struct {
	mu      sync.Mutex
	opened  bool
	tracker *progress.Tracker
}

// NewProgressService creates a service persisting to store.
func NewProgressService(store storage.Store, opts ProgressOptions) *ProgressService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &ProgressService{
		store:     store,
		loc:       opts.Location,
		clock:     opts.Clock,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With(slog.String("service", "progress")),
		trackers:  make(map[string]*session),
		streaks:   make(map[string]int),
	}
}

func (s *ProgressService) session(identity string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.trackers[identity]
	if !ok {
		sess = &session{tracker: progress.NewTracker(s.store,
			progress.WithClock(s.clock),
			progress.WithLocation(s.loc),
			progress.WithLogger(s.logger),
			progress.WithObserver(s),
		)}
		s.trackers[identity] = sess
	}
	return sess
}

// openLocked rehydrates sess on first use. The caller holds sess.mu.
func (s *ProgressService) openLocked(ctx context.Context, identity string, sess *session) error {
	if sess.opened {
		return nil
	}
	if _, err := sess.tracker.Open(ctx, identity); err != nil {
		return apierrors.NewStorageError("progress is temporarily unavailable", err)
	}
	sess.opened = true
	return nil
}

// withTracker runs fn against identity's opened tracker with the session
// locked.
func (s *ProgressService) withTracker(ctx context.Context, identity string, fn func(t *progress.Tracker) error) error {
	sess := s.session(identity)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := s.openLocked(ctx, identity, sess); err != nil {
		return err
	}
	return fn(sess.tracker)
}

func (s *ProgressService) snapshot(ctx context.Context, identity string) (progress.State, error) {
	var state progress.State
	err := s.withTracker(ctx, identity, func(t *progress.Tracker) error {
		state = t.Snapshot()
		return nil
	})
	return state, err
}

// Get starts or resumes the session for identity: the streak is evaluated
// for today and the state returned.
func (s *ProgressService) Get(ctx context.Context, identity string) (progress.State, error) {
	var state progress.State
	err := s.withTracker(ctx, identity, func(t *progress.Tracker) error {
		state = t.EvaluateStreak(ctx)
		return nil
	})
	return state, err
}

// Toggle flips the completion of title for identity.
func (s *ProgressService) Toggle(ctx context.Context, identity, title string) (ToggleResult, error) {
	var (
		completed bool
		state     progress.State
	)
	err := s.withTracker(ctx, identity, func(t *progress.Tracker) error {
		var err error
		completed, state, err = t.ToggleCompletion(ctx, title)
		return err
	})
	if errors.Is(err, progress.ErrEmptyTitle) {
		return ToggleResult{}, apierrors.NewAppValidationError("title is required")
	}
	if err != nil {
		return ToggleResult{}, err
	}
	infrastructure.RecordToggle(ctx, s.metrics, completed, identity == "")
	return ToggleResult{Title: title, Completed: completed, State: state}, nil
}

// Completed returns a lookup of completed titles for identity as of now.
func (s *ProgressService) Completed(ctx context.Context, identity string) (func(title string) bool, error) {
	state, err := s.snapshot(ctx, identity)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(state.CompletedTitles))
	for _, t := range state.CompletedTitles {
		set[t] = struct{}{}
	}
	return func(title string) bool {
		_, ok := set[title]
		return ok
	}, nil
}

// Summary tallies records against identity's completed titles.
func (s *ProgressService) Summary(ctx context.Context, identity string, records []problems.Record) (progress.Summary, error) {
	state, err := s.snapshot(ctx, identity)
	if err != nil {
		return progress.Summary{}, err
	}
	return progress.Summarize(records, state), nil
}

// Calendar lays out the practice activity of identity for month
// ("YYYY-MM"; empty means the current month).
func (s *ProgressService) Calendar(ctx context.Context, identity, month string) (progress.Calendar, error) {
	var cal progress.Calendar
	err := s.withTracker(ctx, identity, func(t *progress.Tracker) error {
		year, m, err := progress.ParseMonth(month, t.Now())
		if err != nil {
			return apierrors.NewAppValidationError(fmt.Sprintf("invalid month %q, want YYYY-MM", month))
		}
		cal = progress.MonthCalendar(t.Snapshot(), year, m, t.Today())
		return nil
	})
	return cal, err
}

// Migrate merges the anonymous progress into identity and removes the
// anonymous blob. The anonymous session is held for the whole merge and
// then marked for reload, so no anonymous write can recreate the blob.
func (s *ProgressService) Migrate(ctx context.Context, identity string) (MigrationResult, error) {
	if identity == "" {
		return MigrationResult{}, ErrAnonymousMigration
	}

	// Lock order: anonymous session first, then the signed-in one.
	anon := s.session("")
	anon.mu.Lock()
	defer anon.mu.Unlock()

	var (
		state  progress.State
		merged bool
	)
	err := s.withTracker(ctx, identity, func(t *progress.Tracker) error {
		var err error
		state, merged, err = t.MigrateFrom(ctx, "")
		if err != nil {
			return apierrors.NewStorageError("progress migration failed", err)
		}
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "progress migration failed",
			slog.String("identity", identity),
			slog.String("error", err.Error()))
		return MigrationResult{}, err
	}
	infrastructure.RecordMigration(ctx, s.metrics, merged)

	if merged {
		// The anonymous session now reads an empty blob.
		anon.opened = false
	}
	return MigrationResult{Merged: merged, State: state}, nil
}

// Forget marks identity's session for reload; the next access re-reads the
// store. The session itself is kept so there is never more than one tracker
// per key.
func (s *ProgressService) Forget(identity string) {
	s.mu.Lock()
	sess, ok := s.trackers[identity]
	delete(s.streaks, identity)
	s.mu.Unlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	sess.opened = false
	sess.mu.Unlock()
}

// Sessions returns the number of open tracker sessions.
func (s *ProgressService) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trackers)
}

// StateChanged implements progress.Observer.
func (s *ProgressService) StateChanged(ctx context.Context, identity string, state progress.State) {
	s.mu.Lock()
	prev, seen := s.streaks[identity]
	s.streaks[identity] = state.StreakCount
	s.mu.Unlock()

	if seen && prev != state.StreakCount {
		kind := "reset"
		if state.StreakCount == prev+1 {
			kind = "increment"
		}
		infrastructure.RecordStreakChange(ctx, s.metrics, kind)
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, identity, ws.TypeProgressUpdated, state)
	}
}

// PersistFailed implements progress.Observer.
func (s *ProgressService) PersistFailed(ctx context.Context, identity string, err error) {
	infrastructure.RecordPersistFailure(ctx, s.metrics, err)
	if s.publisher != nil {
		s.publisher.Publish(ctx, identity, ws.TypeError, map[string]string{
			"code":    "PERSIST_FAILED",
			"message": "progress could not be saved",
		})
	}
}
