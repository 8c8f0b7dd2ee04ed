package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
	"github.com/bookcaseapp/bookcase-server/internal/search"
	"github.com/bookcaseapp/bookcase-server/internal/store"
	"github.com/bookcaseapp/bookcase-server/internal/tracker"
)

// jan10 is the reading day most tests record on.
var jan10 = time.Date(2024, 1, 10, 20, 0, 0, 0, time.UTC)

type testEnv struct {
	docs     store.DocumentStore
	index    *search.Index
	cases    *BookCaseService
	books    *BookService
	progress *ProgressService
	notes    *NoteService
	goals    *GoalService
	stats    *StatsService
	search   *SearchService
}

func sequentialIDs() func(prefix string) (string, error) {
	var n atomic.Int64
	return func(prefix string) (string, error) {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1)), nil
	}
}

func setupWithStore(t *testing.T, docs store.DocumentStore, now time.Time) *testEnv {
	t.Helper()

	index, err := search.NewMemOnly(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	logger := slog.New(slog.DiscardHandler)
	clock := tracker.FixedClock(now)
	repo := store.NewBookCaseRepository(docs)

	cases := NewBookCaseService(repo, index, clock, logger)
	cases.newID = sequentialIDs()
	goalSvc := NewGoalService(store.NewProfileRepository(docs), logger)

	return &testEnv{
		docs:     docs,
		index:    index,
		cases:    cases,
		books:    NewBookService(cases, logger),
		progress: NewProgressService(cases, tracker.NewRecorder(clock), logger),
		notes:    NewNoteService(cases, logger),
		goals:    goalSvc,
		stats:    NewStatsService(cases, goalSvc, logger),
		search:   NewSearchService(index, repo, logger),
	}
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	return setupAt(t, jan10)
}

func setupAt(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	docs, err := store.NewInMemory(nil, store.WithIndex(domain.CollectionBookCases, "userId"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })
	return setupWithStore(t, docs, now)
}

func intPtr(v int) *int { return &v }

// seedBook creates a bookcase for user-1 holding one book.
func (e *testEnv) seedBook(t *testing.T, book domain.Book) *domain.BookCase {
	t.Helper()
	ctx := context.Background()
	bc, err := e.cases.CreateBookCase(ctx, "user-1", "Sci-Fi")
	require.NoError(t, err)
	_, err = e.books.AddBook(ctx, "user-1", bc.ID, book)
	require.NoError(t, err)
	return bc
}

// racingStore lets a competing write land right before the next update.
type racingStore struct {
	store.DocumentStore
	races atomic.Int32
	race  func()
}

func (r *racingStore) UpdateFields(ctx context.Context, collection, id string, fields store.Fields, opts ...store.UpdateOption) (*store.Document, error) {
	if r.races.Add(-1) >= 0 {
		r.race()
	}
	return r.DocumentStore.UpdateFields(ctx, collection, id, fields, opts...)
}

func TestBackoff_GrowsWithJitter(t *testing.T) {
	for n := range maxWriteAttempts {
		base := conflictBackoff * time.Duration(n+1)
		for range 20 {
			d := backoff(n)
			require.GreaterOrEqual(t, d, base)
			require.Less(t, d, base+conflictBackoff)
		}
	}
}

func TestRetryOnConflict_PausesBetweenAttempts(t *testing.T) {
	var calls int
	start := time.Now()
	err := retryOnConflict(context.Background(), func() error {
		calls++
		return store.ErrRevisionConflict
	})

	require.ErrorIs(t, err, domainerrors.ErrConflict)
	require.Equal(t, maxWriteAttempts, calls)
	// Two pauses: at least 1x and 2x the base.
	require.GreaterOrEqual(t, time.Since(start), 3*conflictBackoff)
}

func TestRetryOnConflict_StopsWhenCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	err := retryOnConflict(ctx, func() error {
		calls++
		cancel()
		return store.ErrRevisionConflict
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}
