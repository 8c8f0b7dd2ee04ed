package domain

import "fmt"

// ReadingSession records pages read on one calendar day.
// CurrentPage is the page pointer at the end of the session.
type ReadingSession struct {
	Date        Timestamp `json:"date"`
	PagesRead   int       `json:"pagesRead"`
	CurrentPage int       `json:"currentPage"`
}

// Day returns the calendar day key of the session.
func (s ReadingSession) Day() string {
	return s.Date.Day()
}

// SessionWindow selects which sessions a history view covers.
type SessionWindow string

// SessionWindow values.
const (
	WindowAll   SessionWindow = "all"
	WindowWeek  SessionWindow = "week"
	WindowMonth SessionWindow = "month"
)

// Valid reports whether w is a recognized window.
func (w SessionWindow) Valid() bool {
	switch w {
	case WindowAll, WindowWeek, WindowMonth:
		return true
	default:
		return false
	}
}

// ParseSessionWindow parses a window name. The empty string means all.
func ParseSessionWindow(s string) (SessionWindow, error) {
	if s == "" {
		return WindowAll, nil
	}
	w := SessionWindow(s)
	if !w.Valid() {
		return "", fmt.Errorf("invalid session window %q (must be all, week, or month)", s)
	}
	return w, nil
}

// ReadingHistory is a grouped, filtered view of a book's sessions.
type ReadingHistory struct {
	Window     SessionWindow    `json:"window"`
	Sessions   []ReadingSession `json:"sessions"`
	TotalPages int              `json:"totalPages"`
}
