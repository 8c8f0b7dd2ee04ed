package service

import (
	"context"
	"log/slog"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	"github.com/bookcaseapp/bookcase-server/internal/library"
)

// BookService orchestrates edits of the books on a bookcase. Books are
// addressed by their position on the bookcase.
type BookService struct {
	cases  *BookCaseService
	logger *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(cases *BookCaseService, logger *slog.Logger) *BookService {
	return &BookService{
		cases:  cases,
		logger: logger,
	}
}

// ListBooks returns the books on the bookcase, optionally only those with
// status. Each book keeps its position.
func (s *BookService) ListBooks(ctx context.Context, userID, bookCaseID string, status domain.ReadingStatus) ([]library.IndexedBook, error) {
	bc, err := s.cases.GetBookCase(ctx, userID, bookCaseID)
	if err != nil {
		return nil, err
	}
	return library.FilterByStatus(bc.Books, status), nil
}

// GetBook returns the book at index.
func (s *BookService) GetBook(ctx context.Context, userID, bookCaseID string, index int) (*domain.Book, error) {
	bc, err := s.cases.GetBookCase(ctx, userID, bookCaseID)
	if err != nil {
		return nil, err
	}
	book, err := library.BookAt(bc.Books, index)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// AddBook appends a book to the bookcase.
func (s *BookService) AddBook(ctx context.Context, userID, bookCaseID string, candidate domain.Book) (*library.IndexedBook, error) {
	var added library.IndexedBook
	_, err := s.cases.mutateBooks(ctx, userID, bookCaseID, func(books []domain.Book) ([]domain.Book, error) {
		out, err := library.AddBook(books, candidate, s.cases.clock.Now())
		if err != nil {
			return nil, err
		}
		added = library.IndexedBook{Index: len(out) - 1, Book: out[len(out)-1]}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book added",
		"bookcase_id", bookCaseID,
		"user_id", userID,
		"title", added.Book.Title,
		"author", added.Book.Author,
	)
	return &added, nil
}

// UpdateBook replaces the metadata of the book at index.
// Progress, sessions and notes are kept.
func (s *BookService) UpdateBook(ctx context.Context, userID, bookCaseID string, index int, candidate domain.Book) (*domain.Book, error) {
	bc, err := s.cases.mutateBooks(ctx, userID, bookCaseID, func(books []domain.Book) ([]domain.Book, error) {
		return library.UpdateBook(books, index, candidate)
	})
	if err != nil {
		return nil, err
	}

	updated := bc.Books[index]
	s.logger.Info("book updated",
		"bookcase_id", bookCaseID,
		"index", index,
		"title", updated.Title,
	)
	return &updated, nil
}

// DeleteBook removes the book at index with its sessions and notes.
func (s *BookService) DeleteBook(ctx context.Context, userID, bookCaseID string, index int) error {
	_, err := s.cases.mutateBooks(ctx, userID, bookCaseID, func(books []domain.Book) ([]domain.Book, error) {
		return library.DeleteBook(books, index)
	})
	if err != nil {
		return err
	}

	s.logger.Info("book deleted", "bookcase_id", bookCaseID, "index", index)
	return nil
}

// SetStatus sets the reading status of the book at index explicitly.
// It holds until the next progress update re-derives the status.
func (s *BookService) SetStatus(ctx context.Context, userID, bookCaseID string, index int, status domain.ReadingStatus) (*domain.Book, error) {
	bc, err := s.cases.mutateBooks(ctx, userID, bookCaseID, func(books []domain.Book) ([]domain.Book, error) {
		return library.SetStatus(books, index, status)
	})
	if err != nil {
		return nil, err
	}

	book := bc.Books[index]
	s.logger.Debug("book status set",
		"bookcase_id", bookCaseID,
		"index", index,
		"status", status,
	)
	return &book, nil
}
