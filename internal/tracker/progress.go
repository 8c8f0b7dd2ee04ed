// Package tracker holds the pure reading progress logic: recording pages
// read against the page pointer, and aggregating sessions for history views.
package tracker

import (
	"github.com/bookcaseapp/bookcase-server/internal/domain"
	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
)

// Progress is the outcome of a progress update. The caller persists all
// three fields in a single write.
type Progress struct {
	Sessions    []domain.ReadingSession
	Status      domain.ReadingStatus
	CurrentPage int
}

// Apply returns a copy of book with the progress written onto it.
func (p *Progress) Apply(book domain.Book) domain.Book {
	out := book.Clone()
	out.ReadingSessions = p.Sessions
	out.ReadingStatus = p.Status
	out.CurrentPage = p.CurrentPage
	return out
}

// Recorder computes progress updates against a clock.
type Recorder struct {
	Clock Clock
}

// NewRecorder creates a recorder reading time from clock.
func NewRecorder(clock Clock) *Recorder {
	return &Recorder{Clock: clock}
}

// Record moves the book's page pointer to newCurrentPage.
//
// When pagesReadToday is positive it is credited to today's session: an
// existing session for the same calendar day is replaced by one with the
// summed page count and the new pointer, otherwise a session is appended.
// pagesReadToday of zero only moves the pointer. The status becomes finished
// when the pointer lands on the last page, reading otherwise.
//
// Record never mutates its inputs.
func (r *Recorder) Record(book domain.Book, sessions []domain.ReadingSession, newCurrentPage, pagesReadToday int) (*Progress, error) {
	if pagesReadToday < 0 {
		return nil, domainerrors.Validation("pages read must be a positive number")
	}
	if newCurrentPage < 0 {
		return nil, domainerrors.Validation("current page cannot be negative")
	}
	if book.PageCount != nil && newCurrentPage > *book.PageCount {
		return nil, domainerrors.Validationf("current page cannot exceed total pages (%d)", *book.PageCount)
	}

	out := make([]domain.ReadingSession, len(sessions), len(sessions)+1)
	copy(out, sessions)

	if pagesReadToday > 0 {
		now := domain.NewTimestamp(r.Clock.Now())
		today := now.Day()

		merged := false
		for i, s := range out {
			if s.Day() != today {
				continue
			}
			out[i] = domain.ReadingSession{
				Date:        now,
				PagesRead:   s.PagesRead + pagesReadToday,
				CurrentPage: newCurrentPage,
			}
			merged = true
			break
		}
		if !merged {
			out = append(out, domain.ReadingSession{
				Date:        now,
				PagesRead:   pagesReadToday,
				CurrentPage: newCurrentPage,
			})
		}
	}

	return &Progress{
		Sessions:    out,
		Status:      DeriveStatus(book, newCurrentPage),
		CurrentPage: newCurrentPage,
	}, nil
}

// DeriveStatus returns finished when currentPage equals the book's page
// count and reading otherwise.
func DeriveStatus(book domain.Book, currentPage int) domain.ReadingStatus {
	if book.PageCount != nil && currentPage == *book.PageCount {
		return domain.StatusFinished
	}
	return domain.StatusReading
}
