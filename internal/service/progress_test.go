package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
)

func TestLogReading_MergesSameDay(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	bc := env.seedBook(t, domain.Book{Title: "Dune", Author: "Frank Herbert", PageCount: intPtr(200)})

	_, err := env.progress.LogReading(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", 10)
	require.NoError(t, err)
	book, err := env.progress.LogReading(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", 15)
	require.NoError(t, err)

	require.Len(t, book.ReadingSessions, 1)
	assert.Equal(t, 25, book.ReadingSessions[0].PagesRead)
	assert.Equal(t, 25, book.ReadingSessions[0].CurrentPage)
	assert.Equal(t, 25, book.CurrentPage)
	assert.Equal(t, domain.StatusReading, book.ReadingStatus)
}

func TestLogReading_FinishesOnLastPage(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	bc := env.seedBook(t, domain.Book{Title: "Dune", Author: "Frank Herbert", PageCount: intPtr(200)})

	book, err := env.progress.LogReading(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", 200)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, book.ReadingStatus)
}

func TestLogReading_Validation(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	bc := env.seedBook(t, domain.Book{Title: "Dune", Author: "Frank Herbert", PageCount: intPtr(200)})

	_, err := env.progress.LogReading(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", 0)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.progress.LogReading(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", 201)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.progress.LogReading(ctx, "user-1", bc.ID, "dune", "Frank Herbert", 5)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound, "lookup is exact")

	book, err := env.books.GetBook(ctx, "user-1", bc.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, book.ReadingSessions, "rejected updates write nothing")
	assert.Equal(t, 0, book.CurrentPage)
}

func TestSetCurrentPage_NoSession(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	bc := env.seedBook(t, domain.Book{Title: "Dune", Author: "Frank Herbert", PageCount: intPtr(200)})

	book, err := env.progress.SetCurrentPage(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", 120)
	require.NoError(t, err)
	assert.Equal(t, 120, book.CurrentPage)
	assert.Empty(t, book.ReadingSessions)
	assert.Equal(t, domain.StatusReading, book.ReadingStatus)
}

func TestProgress_OverridesExplicitStatus(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	bc := env.seedBook(t, domain.Book{Title: "Dune", Author: "Frank Herbert", PageCount: intPtr(200)})

	_, err := env.books.SetStatus(ctx, "user-1", bc.ID, 0, domain.StatusDNF)
	require.NoError(t, err)

	book, err := env.progress.LogReading(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", 5)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, book.ReadingStatus)
}

func TestRecordProgress_DuneScenario(t *testing.T) {
	env := setupAt(t, time.Date(2024, 1, 10, 21, 0, 0, 0, time.UTC))
	ctx := context.Background()
	bc := env.seedBook(t, domain.Book{Title: "Dune", Author: "Frank Herbert", PageCount: intPtr(412)})

	_, err := env.progress.RecordProgress(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", 100, 50)
	require.NoError(t, err)
	book, err := env.progress.RecordProgress(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", 150, 50)
	require.NoError(t, err)

	require.Len(t, book.ReadingSessions, 1)
	s := book.ReadingSessions[0]
	assert.Equal(t, "2024-01-10", s.Day())
	assert.Equal(t, 100, s.PagesRead)
	assert.Equal(t, 150, s.CurrentPage)
	assert.Equal(t, domain.StatusReading, book.ReadingStatus)
}

func TestHistory(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	old := domain.NewTimestamp(time.Date(2023, 11, 1, 9, 0, 0, 0, time.UTC))
	recent := domain.NewTimestamp(time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC))
	bc := env.seedBook(t, domain.Book{Title: "Dune", Author: "Frank Herbert", PageCount: intPtr(412)})

	// Sessions written by an older client straight into the document.
	_, err := env.cases.mutateBooks(ctx, "user-1", bc.ID, func(books []domain.Book) ([]domain.Book, error) {
		out := append([]domain.Book(nil), books...)
		out[0].ReadingSessions = []domain.ReadingSession{
			{Date: old, PagesRead: 30, CurrentPage: 30},
			{Date: recent, PagesRead: 20, CurrentPage: 50},
		}
		out[0].CurrentPage = 50
		return out, nil
	})
	require.NoError(t, err)

	all, err := env.progress.History(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", domain.WindowAll)
	require.NoError(t, err)
	assert.Equal(t, 50, all.TotalPages)
	require.Len(t, all.Sessions, 2)
	assert.Equal(t, "2024-01-08", all.Sessions[0].Day(), "newest first")

	week, err := env.progress.History(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", domain.WindowWeek)
	require.NoError(t, err)
	assert.Equal(t, 20, week.TotalPages)

	_, err = env.progress.History(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", "year")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
