package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
	"github.com/bookcaseapp/bookcase-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search books",
		Description: "Full text search over the current user's books by title, author and notes",
		Tags:        []string{"Search"},
		Security:    bearerSecurity,
	}, s.handleSearch)
}

// SearchInput contains parameters for searching the user's books.
type SearchInput struct {
	Query      string `query:"q" maxLength:"200" doc:"Search query; empty lists every book"`
	BookCaseID string `query:"bookcase" doc:"Only books on this bookcase"`
	Status     string `query:"status" doc:"Only books with this reading status"`
	Genre      string `query:"genre" maxLength:"100" doc:"Only books in this genre (aliases such as sci-fi are understood)"`
	Sort       string `query:"sort" enum:"relevance,title,author,recent" doc:"Sort order (default relevance)"`
	Limit      int    `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 20)"`
	Offset     int    `query:"offset" minimum:"0" doc:"Pagination offset"`
	Facets     bool   `query:"facets" doc:"Include status and genre facets"`
}

// SearchOutput wraps search results for Huma.
type SearchOutput struct {
	Body *search.Result
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	params := search.DefaultParams()
	params.Query = strings.TrimSpace(input.Query)
	params.BookCaseID = input.BookCaseID
	if input.Status != "" {
		status, err := domain.ParseReadingStatus(input.Status)
		if err != nil {
			return nil, fail(domainerrors.Validation(err.Error()))
		}
		params.Status = status
	}
	params.Genre = input.Genre
	params.Offset = input.Offset
	params.IncludeFacets = input.Facets
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	if input.Sort != "" {
		params.SortBy = input.Sort
	}

	res, err := s.services.Search.Search(ctx, userID, params)
	if err != nil {
		return nil, fail(err)
	}
	if res.Hits == nil {
		res.Hits = []search.Hit{}
	}
	return &SearchOutput{Body: res}, nil
}
