package tracker

import (
	"slices"
	"time"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
)

// week is the length of the rolling week window.
const week = 7 * 24 * time.Hour

// WindowStart returns the earliest instant included in window, relative to
// now. The second result is false for the all window.
//
// The month window starts at midnight on the same day of the previous month.
// When that day does not exist (31 March has no 31 February) it is clamped to
// the last day of the previous month.
func WindowStart(window domain.SessionWindow, now time.Time) (time.Time, bool) {
	switch window {
	case domain.WindowWeek:
		return now.Add(-week), true
	case domain.WindowMonth:
		year, month, day := now.Date()
		prevYear, prevMonth := year, month-1
		if prevMonth < time.January {
			prevYear, prevMonth = year-1, time.December
		}
		if last := daysIn(prevYear, prevMonth); day > last {
			day = last
		}
		return time.Date(prevYear, prevMonth, day, 0, 0, 0, 0, now.Location()), true
	default:
		return time.Time{}, false
	}
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// InWindow reports whether a session falls inside window.
func InWindow(s domain.ReadingSession, window domain.SessionWindow, now time.Time) bool {
	start, bounded := WindowStart(window, now)
	return !bounded || !s.Date.Before(start)
}

// FilterSessions keeps the sessions inside window, merges sessions that
// share a calendar day and orders the result newest first.
//
// Merging sums the pages read; date and current page come from the later
// entry in input order.
func FilterSessions(sessions []domain.ReadingSession, window domain.SessionWindow, now time.Time) []domain.ReadingSession {
	start, bounded := WindowStart(window, now)

	byDay := make(map[string]int)
	grouped := make([]domain.ReadingSession, 0, len(sessions))
	for _, s := range sessions {
		if bounded && s.Date.Before(start) {
			continue
		}
		day := s.Day()
		if i, ok := byDay[day]; ok {
			grouped[i] = domain.ReadingSession{
				Date:        s.Date,
				PagesRead:   grouped[i].PagesRead + s.PagesRead,
				CurrentPage: s.CurrentPage,
			}
			continue
		}
		byDay[day] = len(grouped)
		grouped = append(grouped, s)
	}

	slices.SortStableFunc(grouped, func(a, b domain.ReadingSession) int {
		return b.Date.Compare(a.Date.Time)
	})
	return grouped
}

// TotalPages sums pages read across sessions.
func TotalPages(sessions []domain.ReadingSession) int {
	total := 0
	for _, s := range sessions {
		total += s.PagesRead
	}
	return total
}

// History builds the history view of a book for window.
func History(book domain.Book, window domain.SessionWindow, now time.Time) domain.ReadingHistory {
	sessions := FilterSessions(book.ReadingSessions, window, now)
	return domain.ReadingHistory{
		Window:     window,
		Sessions:   sessions,
		TotalPages: TotalPages(sessions),
	}
}
