package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
)

func (s *Server) registerReadingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "logReading",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookcases/{id}/book/reading",
		Summary:     "Log reading",
		Description: "Credits pages read today to the book. Without currentPage the page pointer advances by pagesRead. " +
			"Sessions on the same calendar day are merged.",
		Tags:     []string{"Reading"},
		Security: bearerSecurity,
	}, s.handleLogReading)

	huma.Register(s.api, huma.Operation{
		OperationID: "setCurrentPage",
		Method:      http.MethodPut,
		Path:        "/api/v1/bookcases/{id}/book/current-page",
		Summary:     "Set current page",
		Description: "Moves the page pointer without recording a reading session",
		Tags:        []string{"Reading"},
		Security:    bearerSecurity,
	}, s.handleSetCurrentPage)

	huma.Register(s.api, huma.Operation{
		OperationID: "listReadingSessions",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookcases/{id}/book/sessions",
		Summary:     "Reading history",
		Description: "Returns the book's sessions in a window (all, week or month) grouped by day, newest first",
		Tags:        []string{"Reading"},
		Security:    bearerSecurity,
	}, s.handleReadingSessions)
}

// === DTOs ===

// BookRef identifies a book on a bookcase by its exact title and author.
type BookRef struct {
	ID     string `path:"id" doc:"Bookcase ID"`
	Title  string `query:"title" required:"true" doc:"Exact book title"`
	Author string `query:"author" required:"true" doc:"Exact book author"`
}

// LogReadingRequest is the request body for logging pages read.
type LogReadingRequest struct {
	PagesRead   int  `json:"pagesRead" validate:"gte=0" doc:"Pages read today"`
	CurrentPage *int `json:"currentPage,omitempty" validate:"omitempty,gte=0" doc:"New current page; defaults to current page plus pagesRead"`
}

// LogReadingInput wraps the log request for Huma.
type LogReadingInput struct {
	BookRef
	Body LogReadingRequest
}

// CurrentPageRequest is the request body for setting the current page.
type CurrentPageRequest struct {
	CurrentPage int `json:"currentPage" validate:"gte=0" doc:"New current page"`
}

// CurrentPageInput wraps the current page request for Huma.
type CurrentPageInput struct {
	BookRef
	Body CurrentPageRequest
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body domain.Book
}

// SessionsInput contains parameters for the reading history.
type SessionsInput struct {
	BookRef
	Window string `query:"window" enum:"all,week,month" doc:"History window (default all)"`
}

// SessionsOutput wraps the reading history for Huma.
type SessionsOutput struct {
	Body *domain.ReadingHistory
}

// === Handlers ===

func (s *Server) handleLogReading(ctx context.Context, input *LogReadingInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate(input.Body); err != nil {
		return nil, err
	}

	var book *domain.Book
	if input.Body.CurrentPage != nil {
		book, err = s.services.Progress.RecordProgress(ctx, userID, input.ID, input.Title, input.Author,
			*input.Body.CurrentPage, input.Body.PagesRead)
	} else {
		book, err = s.services.Progress.LogReading(ctx, userID, input.ID, input.Title, input.Author, input.Body.PagesRead)
	}
	if err != nil {
		return nil, fail(err)
	}
	return &BookOutput{Body: *book}, nil
}

func (s *Server) handleSetCurrentPage(ctx context.Context, input *CurrentPageInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate(input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Progress.SetCurrentPage(ctx, userID, input.ID, input.Title, input.Author, input.Body.CurrentPage)
	if err != nil {
		return nil, fail(err)
	}
	return &BookOutput{Body: *book}, nil
}

func (s *Server) handleReadingSessions(ctx context.Context, input *SessionsInput) (*SessionsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	window, err := domain.ParseSessionWindow(input.Window)
	if err != nil {
		return nil, fail(domainerrors.Validation(err.Error()))
	}

	history, err := s.services.Progress.History(ctx, userID, input.ID, input.Title, input.Author, window)
	if err != nil {
		return nil, fail(err)
	}
	if history.Sessions == nil {
		history.Sessions = []domain.ReadingSession{}
	}
	return &SessionsOutput{Body: history}, nil
}
