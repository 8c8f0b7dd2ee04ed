package goals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
)

func pages(n int) *int { return &n }

func TestAddGoal(t *testing.T) {
	cal, err := AddGoal(nil, "2024-01-10", domain.Goal{Title: " Read Dune ", Pages: pages(50)})
	require.NoError(t, err)

	require.Len(t, cal["2024-01-10"].Goals, 1)
	g := cal["2024-01-10"].Goals[0]
	assert.Equal(t, "Read Dune", g.Title)
	assert.Equal(t, 50, *g.Pages)
	assert.False(t, g.Completed)

	next, err := AddGoal(cal, "2024-01-10", domain.Goal{Title: "Finish chapter"})
	require.NoError(t, err)
	assert.Len(t, next["2024-01-10"].Goals, 2)
	assert.Len(t, cal["2024-01-10"].Goals, 1, "input untouched")
}

func TestAddGoal_Validation(t *testing.T) {
	_, err := AddGoal(nil, "10-01-2024", domain.Goal{Title: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	_, err = AddGoal(nil, "2024-01-10", domain.Goal{Title: "  "})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	_, err = AddGoal(nil, "2024-01-10", domain.Goal{Title: "x", Pages: pages(-3)})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestDeleteGoal_RemovesEmptyDate(t *testing.T) {
	cal, err := AddGoal(nil, "2024-01-10", domain.Goal{Title: "Read"})
	require.NoError(t, err)
	cal, err = AddGoal(cal, "2024-01-11", domain.Goal{Title: "Read more"})
	require.NoError(t, err)
	require.Contains(t, MarkedDates(cal), "2024-01-10")

	out, err := DeleteGoal(cal, "2024-01-10", 0)
	require.NoError(t, err)

	assert.NotContains(t, out, "2024-01-10")
	assert.NotContains(t, MarkedDates(out), "2024-01-10")
	assert.Contains(t, MarkedDates(out), "2024-01-11")
	assert.Contains(t, cal, "2024-01-10", "input untouched")
}

func TestDeleteGoal_KeepsRemainingGoals(t *testing.T) {
	cal := domain.ReadingGoals{"2024-01-10": {Goals: []domain.Goal{{Title: "a"}, {Title: "b"}, {Title: "c"}}}}

	out, err := DeleteGoal(cal, "2024-01-10", 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.Goal{{Title: "a"}, {Title: "c"}}, out["2024-01-10"].Goals)
}

func TestGoalEdits_Missing(t *testing.T) {
	cal := domain.ReadingGoals{"2024-01-10": {Goals: []domain.Goal{{Title: "a"}}}}

	_, err := DeleteGoal(cal, "2024-01-12", 0)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	_, err = UpdateGoal(cal, "2024-01-10", 4, domain.Goal{Title: "z"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	_, err = SetCompleted(cal, "2024-01-10", -1, true)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestUpdateAndComplete(t *testing.T) {
	cal := domain.ReadingGoals{"2024-01-10": {Goals: []domain.Goal{{Title: "a"}, {Title: "b"}}}}

	cal, err := UpdateGoal(cal, "2024-01-10", 0, domain.Goal{Title: "Read 30 pages", Pages: pages(30), Notes: "before bed"})
	require.NoError(t, err)
	assert.Equal(t, "Read 30 pages", cal["2024-01-10"].Goals[0].Title)

	cal, err = SetCompleted(cal, "2024-01-10", 0, true)
	require.NoError(t, err)

	mark := MarkedDates(cal)["2024-01-10"]
	assert.True(t, mark.Marked)
	assert.Equal(t, 2, mark.GoalCount)
	assert.Equal(t, 1, mark.CompletedCount)
	assert.False(t, mark.AllCompleted)

	cal, err = SetCompleted(cal, "2024-01-10", 1, true)
	require.NoError(t, err)
	assert.True(t, MarkedDates(cal)["2024-01-10"].AllCompleted)

	scheduled, completed := Counts(cal)
	assert.Equal(t, 2, scheduled)
	assert.Equal(t, 2, completed)
}

func TestPruneAndDates(t *testing.T) {
	cal := domain.ReadingGoals{
		"2024-02-01": {Goals: []domain.Goal{{Title: "a"}}},
		"2024-01-15": {Goals: nil},
		"2024-01-03": {Goals: []domain.Goal{{Title: "b"}}},
	}

	assert.Equal(t, []string{"2024-01-03", "2024-02-01"}, Dates(cal))
	assert.NotContains(t, MarkedDates(cal), "2024-01-15")
	assert.Len(t, Prune(cal), 2)
}
