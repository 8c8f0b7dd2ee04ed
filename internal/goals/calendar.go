// Package goals edits the reading goal calendar stored on the user document.
// Functions never mutate the calendar they are given, and a day whose last
// goal is removed disappears from the calendar.
package goals

import (
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
)

// ValidateDate checks a YYYY-MM-DD day key.
func ValidateDate(date string) error {
	if _, err := time.Parse(domain.DayLayout, date); err != nil {
		return domainerrors.Validationf("invalid date %q (expected YYYY-MM-DD)", date)
	}
	return nil
}

func normalizeGoal(g domain.Goal) (domain.Goal, error) {
	g.Title = strings.TrimSpace(g.Title)
	g.Notes = strings.TrimSpace(g.Notes)
	if g.Title == "" {
		return domain.Goal{}, domainerrors.Validation("goal title is required")
	}
	if g.Pages != nil {
		if *g.Pages < 0 {
			return domain.Goal{}, domainerrors.Validation("goal pages cannot be negative")
		}
		pages := *g.Pages
		g.Pages = &pages
	}
	return g, nil
}

func cloneCalendar(cal domain.ReadingGoals) domain.ReadingGoals {
	out := make(domain.ReadingGoals, len(cal)+1)
	maps.Copy(out, cal)
	return out
}

func lookup(cal domain.ReadingGoals, date string, index int) ([]domain.Goal, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	day, ok := cal[date]
	if !ok || len(day.Goals) == 0 {
		return nil, domainerrors.NotFoundf("no goals on %s", date)
	}
	if index < 0 || index >= len(day.Goals) {
		return nil, domainerrors.NotFoundf("no goal at index %d on %s", index, date)
	}
	return day.Goals, nil
}

// AddGoal appends goal to the goals of date.
func AddGoal(cal domain.ReadingGoals, date string, goal domain.Goal) (domain.ReadingGoals, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	g, err := normalizeGoal(goal)
	if err != nil {
		return nil, err
	}

	out := cloneCalendar(cal)
	existing := cal[date].Goals
	goals := make([]domain.Goal, len(existing), len(existing)+1)
	copy(goals, existing)
	out[date] = domain.GoalDay{Goals: append(goals, g)}
	return out, nil
}

// UpdateGoal replaces the goal at index on date.
func UpdateGoal(cal domain.ReadingGoals, date string, index int, goal domain.Goal) (domain.ReadingGoals, error) {
	existing, err := lookup(cal, date, index)
	if err != nil {
		return nil, err
	}
	g, err := normalizeGoal(goal)
	if err != nil {
		return nil, err
	}

	out := cloneCalendar(cal)
	goals := append([]domain.Goal(nil), existing...)
	goals[index] = g
	out[date] = domain.GoalDay{Goals: goals}
	return out, nil
}

// SetCompleted marks the goal at index on date as completed or not.
func SetCompleted(cal domain.ReadingGoals, date string, index int, completed bool) (domain.ReadingGoals, error) {
	existing, err := lookup(cal, date, index)
	if err != nil {
		return nil, err
	}

	out := cloneCalendar(cal)
	goals := append([]domain.Goal(nil), existing...)
	goals[index].Completed = completed
	out[date] = domain.GoalDay{Goals: goals}
	return out, nil
}

// DeleteGoal removes the goal at index on date. The date is dropped from the
// calendar when it has no goals left.
func DeleteGoal(cal domain.ReadingGoals, date string, index int) (domain.ReadingGoals, error) {
	existing, err := lookup(cal, date, index)
	if err != nil {
		return nil, err
	}

	out := cloneCalendar(cal)
	if len(existing) == 1 {
		delete(out, date)
		return out, nil
	}
	goals := make([]domain.Goal, 0, len(existing)-1)
	goals = append(goals, existing[:index]...)
	goals = append(goals, existing[index+1:]...)
	out[date] = domain.GoalDay{Goals: goals}
	return out, nil
}

// Prune drops days without goals. Calendars written by older clients may have them.
func Prune(cal domain.ReadingGoals) domain.ReadingGoals {
	out := make(domain.ReadingGoals, len(cal))
	for date, day := range cal {
		if len(day.Goals) > 0 {
			out[date] = day
		}
	}
	return out
}

// MarkedDates returns the calendar marks for every day that has goals.
func MarkedDates(cal domain.ReadingGoals) map[string]domain.MarkedDate {
	marks := make(map[string]domain.MarkedDate, len(cal))
	for date, day := range cal {
		if len(day.Goals) == 0 {
			continue
		}
		completed := 0
		for _, g := range day.Goals {
			if g.Completed {
				completed++
			}
		}
		marks[date] = domain.MarkedDate{
			Marked:         true,
			GoalCount:      len(day.Goals),
			CompletedCount: completed,
			AllCompleted:   completed == len(day.Goals),
		}
	}
	return marks
}

// Dates returns the days that have goals in ascending order.
func Dates(cal domain.ReadingGoals) []string {
	dates := make([]string, 0, len(cal))
	for date, day := range cal {
		if len(day.Goals) > 0 {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates
}

// Counts returns the number of scheduled and completed goals.
func Counts(cal domain.ReadingGoals) (scheduled, completed int) {
	for _, day := range cal {
		for _, g := range day.Goals {
			scheduled++
			if g.Completed {
				completed++
			}
		}
	}
	return scheduled, completed
}
