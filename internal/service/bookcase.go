package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
	"github.com/bookcaseapp/bookcase-server/internal/id"
	"github.com/bookcaseapp/bookcase-server/internal/store"
	"github.com/bookcaseapp/bookcase-server/internal/tracker"
)

// maxBookCaseName is the longest bookcase name accepted, in characters.
const maxBookCaseName = 100

var errBookCaseNotFound = domainerrors.NotFound("bookcase not found")

// SearchIndexer keeps the search index in step with bookcase writes.
type SearchIndexer interface {
	IndexBookCase(bc *domain.BookCase) error
	DeleteBookCase(bookCaseID string) error
}

// NoopIndexer is used when search is disabled.
type NoopIndexer struct{}

// IndexBookCase implements SearchIndexer.
func (NoopIndexer) IndexBookCase(*domain.BookCase) error { return nil }

// DeleteBookCase implements SearchIndexer.
func (NoopIndexer) DeleteBookCase(string) error { return nil }

// BookCaseService owns bookcase documents and the read-modify-write cycle
// every book, progress and note edit goes through.
type BookCaseService struct {
	repo    *store.BookCaseRepository
	indexer SearchIndexer
	clock   tracker.Clock
	newID   id.Generator
	logger  *slog.Logger

	// createMu serializes creation so the per-user name check cannot race.
	createMu sync.Mutex
}

// NewBookCaseService creates a new bookcase service.
func NewBookCaseService(repo *store.BookCaseRepository, indexer SearchIndexer, clock tracker.Clock, logger *slog.Logger) *BookCaseService {
	if indexer == nil {
		indexer = NoopIndexer{}
	}
	return &BookCaseService{
		repo:    repo,
		indexer: indexer,
		clock:   clock,
		newID:   id.Default,
		logger:  logger,
	}
}

// CreateBookCase creates an empty bookcase. Names are unique per user.
func (s *BookCaseService) CreateBookCase(ctx context.Context, userID, name string) (*domain.BookCase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainerrors.Validation("bookcase name cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxBookCaseName {
		return nil, domainerrors.Validationf("bookcase name must not exceed %d characters", maxBookCaseName)
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	_, err := s.repo.FindByName(ctx, userID, name)
	if err == nil {
		return nil, domainerrors.AlreadyExistsf("a bookcase named %q already exists", name)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, translate(err, nil)
	}

	bookCaseID, err := s.newID(id.PrefixBookCase)
	if err != nil {
		return nil, fmt.Errorf("generate bookcase ID: %w", err)
	}

	bc := &domain.BookCase{
		ID:        bookCaseID,
		Name:      name,
		UserID:    userID,
		CreatedAt: domain.NewTimestamp(s.clock.Now()),
		Books:     []domain.Book{},
	}
	if err := s.repo.Create(ctx, bc); err != nil {
		return nil, translate(err, nil)
	}

	s.logger.Info("bookcase created",
		"bookcase_id", bc.ID,
		"user_id", userID,
		"name", name,
	)
	return bc, nil
}

// ListBookCases returns the user's bookcases in creation order.
func (s *BookCaseService) ListBookCases(ctx context.Context, userID string) ([]*domain.BookCase, error) {
	cases, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, translate(err, nil)
	}
	return cases, nil
}

// GetBookCase returns one of the user's bookcases.
func (s *BookCaseService) GetBookCase(ctx context.Context, userID, bookCaseID string) (*domain.BookCase, error) {
	bc, err := s.repo.Get(ctx, bookCaseID)
	if err != nil {
		return nil, translate(err, errBookCaseNotFound)
	}
	if !bc.OwnedBy(userID) {
		return nil, domainerrors.Forbidden("you do not own this bookcase")
	}
	return bc, nil
}

// DeleteBookCase removes a bookcase with every book on it.
func (s *BookCaseService) DeleteBookCase(ctx context.Context, userID, bookCaseID string) error {
	if _, err := s.GetBookCase(ctx, userID, bookCaseID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, bookCaseID); err != nil {
		return translate(err, errBookCaseNotFound)
	}

	if err := s.indexer.DeleteBookCase(bookCaseID); err != nil {
		s.logger.Warn("failed to remove bookcase from search index",
			"bookcase_id", bookCaseID,
			"error", err,
		)
	}

	s.logger.Info("bookcase deleted", "bookcase_id", bookCaseID, "user_id", userID)
	return nil
}

// WatchBookCases yields the user's bookcases now and after every change.
// The sequence ends when ctx is canceled and can be ranged over once.
func (s *BookCaseService) WatchBookCases(ctx context.Context, userID string) iter.Seq2[[]*domain.BookCase, error] {
	return func(yield func([]*domain.BookCase, error) bool) {
		for cases, err := range s.repo.Watch(ctx, userID) {
			if !yield(cases, translate(err, nil)) || err != nil {
				return
			}
		}
	}
}

// mutateBooks applies transform to the books of the user's bookcase and
// writes the result. A lost revision race re-reads the bookcase and applies
// transform again, so transform must be pure.
func (s *BookCaseService) mutateBooks(ctx context.Context, userID, bookCaseID string, transform func([]domain.Book) ([]domain.Book, error)) (*domain.BookCase, error) {
	var saved *domain.BookCase
	err := retryOnConflict(ctx, func() error {
		bc, err := s.GetBookCase(ctx, userID, bookCaseID)
		if err != nil {
			return err
		}
		books, err := transform(bc.Books)
		if err != nil {
			return err
		}
		bc.Books = books
		if err := s.repo.SaveBooks(ctx, bc); err != nil {
			return err
		}
		saved = bc
		return nil
	})
	if err != nil {
		return nil, translate(err, errBookCaseNotFound)
	}

	if err := s.indexer.IndexBookCase(saved); err != nil {
		s.logger.Warn("failed to index bookcase",
			"bookcase_id", saved.ID,
			"error", err,
		)
	}
	return saved, nil
}
