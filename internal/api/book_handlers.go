package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
	"github.com/bookcaseapp/bookcase-server/internal/library"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookcases/{id}/books",
		Summary:     "List books",
		Description: "Returns the books on a bookcase, optionally filtered by reading status",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/bookcases/{id}/books",
		Summary:       "Add book",
		Description:   "Adds a book. Title and author together must be unique on the bookcase, ignoring case.",
		Tags:          []string{"Books"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleAddBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookcases/{id}/books/{index}",
		Summary:     "Get book",
		Description: "Returns the book at a position on the bookcase",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPut,
		Path:        "/api/v1/bookcases/{id}/books/{index}",
		Summary:     "Update book",
		Description: "Replaces a book's metadata. Reading progress, sessions and notes are kept.",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBook",
		Method:        http.MethodDelete,
		Path:          "/api/v1/bookcases/{id}/books/{index}",
		Summary:       "Delete book",
		Description:   "Removes a book with its sessions and notes",
		Tags:          []string{"Books"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "setBookStatus",
		Method:      http.MethodPut,
		Path:        "/api/v1/bookcases/{id}/books/{index}/status",
		Summary:     "Set reading status",
		Description: "Overrides the reading status until the next progress update",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, s.handleSetBookStatus)
}

// === DTOs ===

// BookEntry is a book together with its position on the bookcase.
type BookEntry struct {
	Index int         `json:"index" doc:"Position on the bookcase"`
	Book  domain.Book `json:"book"`
}

func toBookEntries(books []library.IndexedBook) []BookEntry {
	out := make([]BookEntry, 0, len(books))
	for _, b := range books {
		out = append(out, BookEntry{Index: b.Index, Book: b.Book})
	}
	return out
}

// ListBooksInput contains parameters for listing books.
type ListBooksInput struct {
	ID     string `path:"id" doc:"Bookcase ID"`
	Status string `query:"status" doc:"Only books with this reading status"`
}

// ListBooksResponse contains the books on a bookcase.
type ListBooksResponse struct {
	Books []BookEntry `json:"books"`
}

// ListBooksOutput wraps the list response for Huma.
type ListBooksOutput struct {
	Body ListBooksResponse
}

// BookRequest carries the editable metadata of a book.
type BookRequest struct {
	Title           string `json:"title" validate:"notblank,max=500" doc:"Book title"`
	Author          string `json:"author" validate:"notblank,max=300" doc:"Book author"`
	Publisher       string `json:"publisher,omitempty" validate:"max=300" doc:"Publisher"`
	PublicationYear *int   `json:"publicationYear,omitempty" validate:"omitempty,gte=0,lte=9999" doc:"Year of publication"`
	PageCount       *int   `json:"pageCount,omitempty" validate:"omitempty,gt=0" doc:"Total pages"`
	Genre           string `json:"genre,omitempty" validate:"max=100" doc:"Free text genre"`
	ReadingStatus   string `json:"readingStatus,omitempty" validate:"omitempty,readingstatus" doc:"unread, reading, finished or dnf"`
}

func (r BookRequest) toBook() domain.Book {
	b := domain.Book{
		Title:           r.Title,
		Author:          r.Author,
		Publisher:       r.Publisher,
		PublicationYear: r.PublicationYear,
		PageCount:       r.PageCount,
		Genre:           r.Genre,
		ReadingStatus:   domain.ReadingStatus(r.ReadingStatus),
	}
	b.Normalize()
	return b
}

// AddBookInput wraps the add request for Huma.
type AddBookInput struct {
	ID   string `path:"id" doc:"Bookcase ID"`
	Body BookRequest
}

// BookIndexInput addresses a single book by position.
type BookIndexInput struct {
	ID    string `path:"id" doc:"Bookcase ID"`
	Index int    `path:"index" minimum:"0" doc:"Position on the bookcase"`
}

// UpdateBookInput wraps the update request for Huma.
type UpdateBookInput struct {
	ID    string `path:"id" doc:"Bookcase ID"`
	Index int    `path:"index" minimum:"0" doc:"Position on the bookcase"`
	Body  BookRequest
}

// SetStatusRequest is the request body for setting a reading status.
type SetStatusRequest struct {
	ReadingStatus string `json:"readingStatus" validate:"required,readingstatus" doc:"unread, reading, finished or dnf"`
}

// SetStatusInput wraps the status request for Huma.
type SetStatusInput struct {
	ID    string `path:"id" doc:"Bookcase ID"`
	Index int    `path:"index" minimum:"0" doc:"Position on the bookcase"`
	Body  SetStatusRequest
}

// BookEntryOutput wraps a single positioned book for Huma.
type BookEntryOutput struct {
	Body BookEntry
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	var status domain.ReadingStatus
	if input.Status != "" {
		if status, err = domain.ParseReadingStatus(input.Status); err != nil {
			return nil, fail(domainerrors.Validation(err.Error()))
		}
	}

	books, err := s.services.Books.ListBooks(ctx, userID, input.ID, status)
	if err != nil {
		return nil, fail(err)
	}
	return &ListBooksOutput{Body: ListBooksResponse{Books: toBookEntries(books)}}, nil
}

func (s *Server) handleAddBook(ctx context.Context, input *AddBookInput) (*BookEntryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate(input.Body); err != nil {
		return nil, err
	}

	added, err := s.services.Books.AddBook(ctx, userID, input.ID, input.Body.toBook())
	if err != nil {
		return nil, fail(err)
	}
	return &BookEntryOutput{Body: BookEntry{Index: added.Index, Book: added.Book}}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIndexInput) (*BookEntryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Books.GetBook(ctx, userID, input.ID, input.Index)
	if err != nil {
		return nil, fail(err)
	}
	return &BookEntryOutput{Body: BookEntry{Index: input.Index, Book: *book}}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookEntryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate(input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Books.UpdateBook(ctx, userID, input.ID, input.Index, input.Body.toBook())
	if err != nil {
		return nil, fail(err)
	}
	return &BookEntryOutput{Body: BookEntry{Index: input.Index, Book: *book}}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIndexInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Books.DeleteBook(ctx, userID, input.ID, input.Index); err != nil {
		return nil, fail(err)
	}
	return nil, nil
}

func (s *Server) handleSetBookStatus(ctx context.Context, input *SetStatusInput) (*BookEntryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate(input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Books.SetStatus(ctx, userID, input.ID, input.Index, domain.ReadingStatus(input.Body.ReadingStatus))
	if err != nil {
		return nil, fail(err)
	}
	return &BookEntryOutput{Body: BookEntry{Index: input.Index, Book: *book}}, nil
}
