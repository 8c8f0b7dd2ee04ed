package service

import (
	"context"
	"fmt"
	"log/slog"

	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
	"github.com/bookcaseapp/bookcase-server/internal/search"
	"github.com/bookcaseapp/bookcase-server/internal/store"
)

// SearchService answers book searches and keeps the index rebuildable
// from the store.
type SearchService struct {
	index  *search.Index
	repo   *store.BookCaseRepository
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.Index, repo *store.BookCaseRepository, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		repo:   repo,
		logger: logger,
	}
}

// Search runs params scoped to userID.
func (s *SearchService) Search(ctx context.Context, userID string, params search.Params) (*search.Result, error) {
	if params.Limit < 0 || params.Limit > 100 {
		return nil, domainerrors.Validation("limit must be between 1 and 100, or 0 for the default")
	}
	if params.Status != "" && !params.Status.Valid() {
		return nil, domainerrors.Validationf("invalid reading status %q", params.Status)
	}
	params.UserID = userID

	res, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return res, nil
}

// DocumentCount returns the number of indexed books.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}

// ReindexAll rebuilds the index from every bookcase in the store.
func (s *SearchService) ReindexAll(ctx context.Context) error {
	cases, err := s.repo.All(ctx)
	if err != nil {
		return translate(err, nil)
	}
	if err := s.index.Rebuild(); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	if err := s.index.IndexBookCases(cases); err != nil {
		return fmt.Errorf("index bookcases: %w", err)
	}

	count, _ := s.index.DocumentCount()
	s.logger.Info("search index rebuilt", "bookcases", len(cases), "documents", count)
	return nil
}

// ReindexIfEmpty rebuilds the index when it is empty but the store is not.
func (s *SearchService) ReindexIfEmpty(ctx context.Context) error {
	count, err := s.index.DocumentCount()
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	if count > 0 {
		return nil
	}
	cases, err := s.repo.All(ctx)
	if err != nil {
		return translate(err, nil)
	}
	for _, bc := range cases {
		if len(bc.Books) > 0 {
			s.logger.Info("search index is empty but books exist, reindexing")
			return s.ReindexAll(ctx)
		}
	}
	return nil
}
