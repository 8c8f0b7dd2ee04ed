package service

import (
	"context"
	"log/slog"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
	"github.com/bookcaseapp/bookcase-server/internal/library"
	"github.com/bookcaseapp/bookcase-server/internal/tracker"
)

// ProgressService records reading progress on books looked up by title and
// author.
type ProgressService struct {
	cases    *BookCaseService
	recorder *tracker.Recorder
	logger   *slog.Logger
}

// NewProgressService creates a new progress service.
func NewProgressService(cases *BookCaseService, recorder *tracker.Recorder, logger *slog.Logger) *ProgressService {
	return &ProgressService{
		cases:    cases,
		recorder: recorder,
		logger:   logger,
	}
}

// RecordProgress moves the book's page pointer to newCurrentPage, crediting
// pagesReadToday to today's session. Sessions, status and current page are
// written together.
func (s *ProgressService) RecordProgress(ctx context.Context, userID, bookCaseID, title, author string, newCurrentPage, pagesReadToday int) (*domain.Book, error) {
	return s.update(ctx, userID, bookCaseID, title, author, func(domain.Book) (int, int) {
		return newCurrentPage, pagesReadToday
	})
}

// LogReading credits pagesRead pages read today, advancing the page pointer
// by the same amount.
func (s *ProgressService) LogReading(ctx context.Context, userID, bookCaseID, title, author string, pagesRead int) (*domain.Book, error) {
	if pagesRead <= 0 {
		return nil, domainerrors.Validation("pages read must be a positive number")
	}
	return s.update(ctx, userID, bookCaseID, title, author, func(book domain.Book) (int, int) {
		return book.CurrentPage + pagesRead, pagesRead
	})
}

// SetCurrentPage moves the page pointer without recording a session.
func (s *ProgressService) SetCurrentPage(ctx context.Context, userID, bookCaseID, title, author string, page int) (*domain.Book, error) {
	return s.update(ctx, userID, bookCaseID, title, author, func(domain.Book) (int, int) {
		return page, 0
	})
}

// update records progress computed from the stored book by pages. pages
// runs on every attempt against the freshly read book.
func (s *ProgressService) update(ctx context.Context, userID, bookCaseID, title, author string, pages func(domain.Book) (int, int)) (*domain.Book, error) {
	var updated domain.Book
	_, err := s.cases.mutateBooks(ctx, userID, bookCaseID, func(books []domain.Book) ([]domain.Book, error) {
		index, err := library.LookupBook(books, title, author)
		if err != nil {
			return nil, err
		}
		book := books[index]

		newCurrentPage, pagesReadToday := pages(book)
		progress, err := s.recorder.Record(book, book.ReadingSessions, newCurrentPage, pagesReadToday)
		if err != nil {
			return nil, err
		}
		updated = progress.Apply(book)
		return library.ReplaceBook(books, index, updated)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reading progress recorded",
		"bookcase_id", bookCaseID,
		"user_id", userID,
		"title", title,
		"current_page", updated.CurrentPage,
		"status", updated.ReadingStatus,
	)
	return &updated, nil
}

// History returns the book's sessions in window grouped by day, newest first.
func (s *ProgressService) History(ctx context.Context, userID, bookCaseID, title, author string, window domain.SessionWindow) (*domain.ReadingHistory, error) {
	if !window.Valid() {
		return nil, domainerrors.Validationf("invalid session window %q", window)
	}

	bc, err := s.cases.GetBookCase(ctx, userID, bookCaseID)
	if err != nil {
		return nil, err
	}
	index, err := library.LookupBook(bc.Books, title, author)
	if err != nil {
		return nil, err
	}

	history := tracker.History(bc.Books[index], window, s.recorder.Clock.Now())
	return &history, nil
}
