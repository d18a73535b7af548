package services

import (
	"context"
	"sync"

	"companywise/internal/problems"
	"companywise/internal/progress"
)

// Row is a displayed problem with its completion flag.
type Row struct {
	problems.Record
	Completed bool `json:"completed"`
}

// BrowserSnapshot is what a UI renders: the selection, the visible rows
// ("Showing Count of Total") and the progress overview.
type BrowserSnapshot struct {
	Company string             `json:"company"`
	Window  problems.Window    `json:"window"`
	State   problems.ViewState `json:"state"`
	Rows    []Row              `json:"rows"`
	Count   int                `json:"count"`
	Total   int                `json:"total"`
	Summary progress.Summary   `json:"summary"`
	Streak  int                `json:"streak"`
	// ProgressErr is set when the progress store could not be read; rows
	// then show no completions.
	ProgressErr error `json:"-"`
}

// Browser is one user's interactive session. Selecting a company or window
// starts a fetch; a newer selection cancels the older one and a stale
// result is discarded, so the last selection always wins.
type Browser struct {
	catalog  *CatalogService
	progress *ProgressService
	identity string

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	company string
	window  problems.Window
	state   problems.ViewState
	table   Table
	loaded  bool
}

// NewBrowser starts a session for identity ("" for anonymous). The streak
// is evaluated immediately when the store is readable; otherwise the first
// snapshot reports the progress as unavailable.
func NewBrowser(ctx context.Context, catalog *CatalogService, progress *ProgressService, identity string) *Browser {
	_, _ = progress.Get(ctx, identity)
	return &Browser{
		catalog:  catalog,
		progress: progress,
		identity: identity,
		window:   problems.DefaultWindow,
		state:    problems.DefaultViewState(),
	}
}

// SelectCompany loads company with the window reset to the default and
// the difficulty filter reset to all.
func (b *Browser) SelectCompany(ctx context.Context, company string) (BrowserSnapshot, error) {
	b.mu.Lock()
	state := b.state
	state.Difficulty = problems.All
	b.mu.Unlock()
	return b.load(ctx, company, problems.DefaultWindow, state)
}

// SelectWindow reloads the current company for window, keeping the view.
func (b *Browser) SelectWindow(ctx context.Context, window problems.Window) (BrowserSnapshot, error) {
	b.mu.Lock()
	company, state := b.company, b.state
	b.mu.Unlock()
	if company == "" {
		return BrowserSnapshot{}, ErrNoCompanySelected
	}
	return b.load(ctx, company, window, state)
}

func (b *Browser) load(ctx context.Context, company string, window problems.Window, state problems.ViewState) (BrowserSnapshot, error) {
	ctx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.gen++
	gen := b.gen
	b.cancel = cancel
	b.company, b.window, b.state = company, window, state
	b.mu.Unlock()

	table, err := b.catalog.Load(ctx, company, window)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		cancel()
		return BrowserSnapshot{}, ErrStaleSelection
	}
	b.cancel = nil
	cancel()
	if err != nil {
		b.table, b.loaded = Table{}, false
		return BrowserSnapshot{}, err
	}
	b.table, b.loaded = table, true
	return b.snapshotLocked(ctx), nil
}

// SetDifficulty changes the difficulty filter.
func (b *Browser) SetDifficulty(ctx context.Context, d problems.Difficulty) BrowserSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Difficulty = d
	return b.snapshotLocked(ctx)
}

// SetSearch changes the free-text search.
func (b *Browser) SetSearch(ctx context.Context, search string) BrowserSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Search = search
	return b.snapshotLocked(ctx)
}

// ToggleSort applies a header click on column.
func (b *Browser) ToggleSort(ctx context.Context, column problems.Column) BrowserSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Sort = b.state.Sort.Toggle(column)
	return b.snapshotLocked(ctx)
}

// ToggleCompletion flips title for the session identity.
func (b *Browser) ToggleCompletion(ctx context.Context, title string) (ToggleResult, error) {
	return b.progress.Toggle(ctx, b.identity, title)
}

// Snapshot returns the current view.
func (b *Browser) Snapshot(ctx context.Context) BrowserSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked(ctx)
}

func (b *Browser) snapshotLocked(ctx context.Context) BrowserSnapshot {
	snap := BrowserSnapshot{
		Company: b.company,
		Window:  b.window,
		State:   b.state,
		Rows:    []Row{},
	}
	state, err := b.progress.Get(ctx, b.identity)
	if err != nil {
		snap.ProgressErr = err
		state = progress.NewState()
	}
	snap.Streak = state.StreakCount
	if !b.loaded {
		return snap
	}

	list := b.table.Apply(b.state)
	for _, r := range list.View.Records {
		snap.Rows = append(snap.Rows, Row{Record: r, Completed: state.IsCompleted(r.Title)})
	}
	snap.Count = list.View.Count()
	snap.Total = list.View.Total
	snap.Summary = progress.Summarize(list.View.Records, state)
	return snap
}
