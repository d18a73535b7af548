package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companywise/internal/problems"
	"companywise/internal/storage"
)

func newTestBrowser(t *testing.T, src *stubSource) *Browser {
	t.Helper()
	progressSvc := newProgressService(t, storage.NewMemoryStore(), nil)
	return NewBrowser(context.Background(), newCatalog(t, src), progressSvc, "")
}

func TestBrowser_SelectCompanyResetsWindowAndDifficulty(t *testing.T) {
	b := newTestBrowser(t, newStubSource())
	ctx := context.Background()

	_, err := b.SelectCompany(ctx, "Google")
	require.NoError(t, err)
	snap, err := b.SelectWindow(ctx, problems.AllTime)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Total)

	snap = b.SetDifficulty(ctx, problems.Hard)
	assert.Equal(t, 0, snap.Count)
	b.SetSearch(ctx, "paren")

	snap, err = b.SelectCompany(ctx, "Amazon")
	require.NoError(t, err)
	assert.Equal(t, problems.ThirtyDays, snap.Window)
	assert.Equal(t, problems.All, snap.State.Difficulty)
	assert.Equal(t, "paren", snap.State.Search)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 0, snap.Count)
}

func TestBrowser_ViewControls(t *testing.T) {
	b := newTestBrowser(t, newStubSource())
	ctx := context.Background()

	snap, err := b.SelectCompany(ctx, "Google")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Count)
	assert.Equal(t, 1, snap.Streak)

	snap = b.ToggleSort(ctx, problems.ColumnTitle)
	require.Len(t, snap.Rows, 3)
	assert.Equal(t, "LRU Cache", snap.Rows[0].Title)

	snap = b.ToggleSort(ctx, problems.ColumnTitle)
	assert.Equal(t, "Two Sum", snap.Rows[0].Title)

	res, err := b.ToggleCompletion(ctx, "Two Sum")
	require.NoError(t, err)
	assert.True(t, res.Completed)

	snap = b.Snapshot(ctx)
	assert.True(t, snap.Rows[0].Completed)
	assert.Equal(t, 1, snap.Summary.Solved)

	snap = b.SetDifficulty(ctx, problems.Medium)
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, "LRU Cache", snap.Rows[0].Title)
	assert.Equal(t, 3, snap.Total)
}

func TestBrowser_SelectWindowRequiresCompany(t *testing.T) {
	b := newTestBrowser(t, newStubSource())
	_, err := b.SelectWindow(context.Background(), problems.AllTime)
	assert.ErrorIs(t, err, ErrNoCompanySelected)
}

func TestBrowser_LastSelectionWins(t *testing.T) {
	src := newStubSource()
	src.blocking = "Slow"
	b := newTestBrowser(t, src)
	ctx := context.Background()

	slowErr := make(chan error, 1)
	go func() {
		_, err := b.SelectCompany(ctx, "Slow")
		slowErr <- err
	}()

	select {
	case <-src.started:
	case <-time.After(2 * time.Second):
		t.Fatal("slow fetch never started")
	}

	snap, err := b.SelectCompany(ctx, "Google")
	require.NoError(t, err)
	assert.Equal(t, "Google", snap.Company)

	select {
	case err := <-slowErr:
		assert.ErrorIs(t, err, ErrStaleSelection)
	case <-time.After(2 * time.Second):
		t.Fatal("slow fetch was not cancelled")
	}

	snap = b.Snapshot(ctx)
	assert.Equal(t, "Google", snap.Company)
	assert.Equal(t, 3, snap.Total)
}
