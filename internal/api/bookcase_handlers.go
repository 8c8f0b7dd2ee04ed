package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
)

func (s *Server) registerBookCaseRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBookCases",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookcases",
		Summary:     "List bookcases",
		Description: "Returns the current user's bookcases with book counts",
		Tags:        []string{"Bookcases"},
		Security:    bearerSecurity,
	}, s.handleListBookCases)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBookCase",
		Method:        http.MethodPost,
		Path:          "/api/v1/bookcases",
		Summary:       "Create bookcase",
		Description:   "Creates an empty bookcase. Names are unique per user.",
		Tags:          []string{"Bookcases"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBookCase)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookCase",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookcases/{id}",
		Summary:     "Get bookcase",
		Description: "Returns a bookcase with all of its books",
		Tags:        []string{"Bookcases"},
		Security:    bearerSecurity,
	}, s.handleGetBookCase)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBookCase",
		Method:        http.MethodDelete,
		Path:          "/api/v1/bookcases/{id}",
		Summary:       "Delete bookcase",
		Description:   "Deletes a bookcase together with its books, sessions and notes",
		Tags:          []string{"Bookcases"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBookCase)
}

// === DTOs ===

// ListBookCasesResponse contains the user's bookcases.
type ListBookCasesResponse struct {
	BookCases []domain.BookCaseSummary `json:"bookCases" doc:"Bookcases in creation order"`
}

// ListBookCasesOutput wraps the list response for Huma.
type ListBookCasesOutput struct {
	Body ListBookCasesResponse
}

// CreateBookCaseRequest is the request body for creating a bookcase.
type CreateBookCaseRequest struct {
	Name string `json:"name" validate:"notblank,max=100" doc:"Bookcase name"`
}

// CreateBookCaseInput wraps the create request for Huma.
type CreateBookCaseInput struct {
	Body CreateBookCaseRequest
}

// BookCaseInput addresses a single bookcase.
type BookCaseInput struct {
	ID string `path:"id" doc:"Bookcase ID"`
}

// BookCaseOutput wraps a full bookcase for Huma.
type BookCaseOutput struct {
	Body *domain.BookCase
}

// === Handlers ===

func (s *Server) handleListBookCases(ctx context.Context, _ *struct{}) (*ListBookCasesOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	cases, err := s.services.BookCases.ListBookCases(ctx, userID)
	if err != nil {
		return nil, fail(err)
	}

	summaries := make([]domain.BookCaseSummary, 0, len(cases))
	for _, bc := range cases {
		summaries = append(summaries, bc.Summary())
	}
	return &ListBookCasesOutput{Body: ListBookCasesResponse{BookCases: summaries}}, nil
}

func (s *Server) handleCreateBookCase(ctx context.Context, input *CreateBookCaseInput) (*BookCaseOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate(input.Body); err != nil {
		return nil, err
	}

	bc, err := s.services.BookCases.CreateBookCase(ctx, userID, input.Body.Name)
	if err != nil {
		return nil, fail(err)
	}
	return &BookCaseOutput{Body: bc}, nil
}

func (s *Server) handleGetBookCase(ctx context.Context, input *BookCaseInput) (*BookCaseOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	bc, err := s.services.BookCases.GetBookCase(ctx, userID, input.ID)
	if err != nil {
		return nil, fail(err)
	}
	if bc.Books == nil {
		bc.Books = []domain.Book{}
	}
	return &BookCaseOutput{Body: bc}, nil
}

func (s *Server) handleDeleteBookCase(ctx context.Context, input *BookCaseInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.BookCases.DeleteBookCase(ctx, userID, input.ID); err != nil {
		return nil, fail(err)
	}
	return nil, nil
}
