package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
	"github.com/bookcaseapp/bookcase-server/internal/store"
)

var errDiskFull = errors.New("disk full")

// failingStore fails every write once armed and counts the attempts.
type failingStore struct {
	store.DocumentStore
	armed  atomic.Bool
	writes atomic.Int32
}

func (f *failingStore) Create(ctx context.Context, collection, id string, fields store.Fields) (*store.Document, error) {
	if f.armed.Load() {
		f.writes.Add(1)
		return nil, errDiskFull
	}
	return f.DocumentStore.Create(ctx, collection, id, fields)
}

func (f *failingStore) UpdateFields(ctx context.Context, collection, id string, fields store.Fields, opts ...store.UpdateOption) (*store.Document, error) {
	if f.armed.Load() {
		f.writes.Add(1)
		return nil, errDiskFull
	}
	return f.DocumentStore.UpdateFields(ctx, collection, id, fields, opts...)
}

func setupFailing(t *testing.T) (*testEnv, *failingStore) {
	t.Helper()
	inner, err := store.NewInMemory(nil, store.WithIndex(domain.CollectionBookCases, "userId"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = inner.Close() })

	failing := &failingStore{DocumentStore: inner}
	return setupWithStore(t, failing, jan10), failing
}

func assertSaveFailed(t *testing.T, failing *failingStore, err error) {
	t.Helper()
	require.ErrorIs(t, err, domainerrors.ErrStoreFailure)
	assert.Equal(t, "save failed: disk full", err.Error())
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, int32(1), failing.writes.Load(), "store failures are not retried")
}

func TestStoreFailure_AddBookLeavesBooksUntouched(t *testing.T) {
	env, failing := setupFailing(t)
	ctx := context.Background()
	bc, err := env.cases.CreateBookCase(ctx, "user-1", "Sci-Fi")
	require.NoError(t, err)

	failing.armed.Store(true)
	_, err = env.books.AddBook(ctx, "user-1", bc.ID, dune())
	assertSaveFailed(t, failing, err)

	failing.armed.Store(false)
	current, err := env.cases.GetBookCase(ctx, "user-1", bc.ID)
	require.NoError(t, err)
	assert.Empty(t, current.Books)
}

func TestStoreFailure_RecordProgressLeavesSessionsUntouched(t *testing.T) {
	env, failing := setupFailing(t)
	ctx := context.Background()
	bc := env.seedBook(t, domain.Book{Title: "Dune", Author: "Frank Herbert", PageCount: intPtr(200)})
	_, err := env.progress.LogReading(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", 50)
	require.NoError(t, err)

	failing.armed.Store(true)
	_, err = env.progress.RecordProgress(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", 150, 100)
	assertSaveFailed(t, failing, err)

	failing.armed.Store(false)
	book, err := env.books.GetBook(ctx, "user-1", bc.ID, 0)
	require.NoError(t, err)
	require.Len(t, book.ReadingSessions, 1)
	assert.Equal(t, 50, book.ReadingSessions[0].PagesRead)
	assert.Equal(t, 50, book.CurrentPage)
	assert.Equal(t, domain.StatusReading, book.ReadingStatus)
}

func TestStoreFailure_AddNoteLeavesNotesUntouched(t *testing.T) {
	env, failing := setupFailing(t)
	ctx := context.Background()
	bc := env.seedBook(t, dune())

	failing.armed.Store(true)
	_, err := env.notes.AddNote(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", "Fear", "Fear is the mind-killer.")
	assertSaveFailed(t, failing, err)

	failing.armed.Store(false)
	book, err := env.books.GetBook(ctx, "user-1", bc.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, book.Notes)
}

func TestStoreFailure_AddGoalLeavesCalendarUntouched(t *testing.T) {
	env, failing := setupFailing(t)
	ctx := context.Background()
	_, err := env.goals.AddGoal(ctx, "user-1", "2024-01-10", domain.Goal{Title: "Read Dune"})
	require.NoError(t, err)

	failing.armed.Store(true)
	_, err = env.goals.AddGoal(ctx, "user-1", "2024-01-10", domain.Goal{Title: "Read Emma"})
	assertSaveFailed(t, failing, err)

	failing.armed.Store(false)
	day, err := env.goals.GoalsOn(ctx, "user-1", "2024-01-10")
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, "Read Dune", day[0].Title)
}

func TestStoreFailure_FirstGoalCreateNotRetried(t *testing.T) {
	env, failing := setupFailing(t)
	ctx := context.Background()

	failing.armed.Store(true)
	_, err := env.goals.AddGoal(ctx, "user-1", "2024-01-10", domain.Goal{Title: "Read Dune"})
	assertSaveFailed(t, failing, err)

	failing.armed.Store(false)
	cal, err := env.goals.Calendar(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cal)
}
