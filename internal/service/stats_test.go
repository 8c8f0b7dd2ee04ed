package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
)

func TestProfileStats(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	bc := env.seedBook(t, domain.Book{Title: "Dune", Author: "Frank Herbert", PageCount: intPtr(412)})

	_, err := env.books.AddBook(ctx, "user-1", bc.ID, domain.Book{Title: "Emma", Author: "Jane Austen", ReadingStatus: domain.StatusFinished})
	require.NoError(t, err)
	_, err = env.progress.LogReading(ctx, "user-1", bc.ID, "Dune", "Frank Herbert", 30)
	require.NoError(t, err)
	_, err = env.notes.AddNote(ctx, "user-1", bc.ID, "Emma", "Jane Austen", "Opening", "Emma Woodhouse, handsome, clever, and rich")
	require.NoError(t, err)
	_, err = env.cases.CreateBookCase(ctx, "user-1", "Empty")
	require.NoError(t, err)
	_, err = env.goals.AddGoal(ctx, "user-1", "2024-01-11", domain.Goal{Title: "Read", Completed: true})
	require.NoError(t, err)

	stats, err := env.stats.ProfileStats(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalBooks)
	assert.Equal(t, 2, stats.TotalBookCases)
	assert.Equal(t, 1, stats.BooksByStatus[domain.StatusReading])
	assert.Equal(t, 1, stats.BooksByStatus[domain.StatusFinished])
	assert.Equal(t, 0, stats.BooksByStatus[domain.StatusDNF])
	assert.Equal(t, 30, stats.PagesThisWeek)
	assert.Equal(t, 30, stats.PagesThisMonth)
	assert.Equal(t, 1, stats.NotesWritten)
	assert.Equal(t, 1, stats.GoalsScheduled)
	assert.Equal(t, 1, stats.GoalsCompleted)
}

func TestProfileStats_NewUser(t *testing.T) {
	env := setup(t)

	stats, err := env.stats.ProfileStats(context.Background(), "user-9")
	require.NoError(t, err)
	assert.Zero(t, stats.TotalBooks)
	assert.Len(t, stats.BooksByStatus, len(domain.ReadingStatuses))
}
