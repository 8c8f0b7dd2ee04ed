package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
)

func (s *Server) registerNoteRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listNotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookcases/{id}/book/notes",
		Summary:     "List notes",
		Description: "Returns the notes and quotes attached to a book",
		Tags:        []string{"Notes"},
		Security:    bearerSecurity,
	}, s.handleListNotes)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addNote",
		Method:        http.MethodPost,
		Path:          "/api/v1/bookcases/{id}/book/notes",
		Summary:       "Add note",
		Description:   "Attaches a note or quote to a book",
		Tags:          []string{"Notes"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleAddNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateNote",
		Method:      http.MethodPut,
		Path:        "/api/v1/bookcases/{id}/book/notes/{noteId}",
		Summary:     "Update note",
		Description: "Replaces a note's title and text",
		Tags:        []string{"Notes"},
		Security:    bearerSecurity,
	}, s.handleUpdateNote)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteNote",
		Method:        http.MethodDelete,
		Path:          "/api/v1/bookcases/{id}/book/notes/{noteId}",
		Summary:       "Delete note",
		Description:   "Removes a note from a book",
		Tags:          []string{"Notes"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteNote)
}

// === DTOs ===

// NoteRequest is the request body for creating or editing a note.
type NoteRequest struct {
	Title string `json:"title" validate:"notblank,max=200" doc:"Note title"`
	Text  string `json:"text" validate:"notblank,max=10000" doc:"Note or quote text"`
}

// ListNotesOutput wraps a book's notes for Huma.
type ListNotesOutput struct {
	Body struct {
		Notes []domain.Note `json:"notes"`
	}
}

// AddNoteInput wraps the add note request for Huma.
type AddNoteInput struct {
	BookRef
	Body NoteRequest
}

// NoteRefInput addresses a note of a book.
type NoteRefInput struct {
	BookRef
	NoteID string `path:"noteId" doc:"Note ID"`
}

// UpdateNoteInput wraps the update note request for Huma.
type UpdateNoteInput struct {
	BookRef
	NoteID string `path:"noteId" doc:"Note ID"`
	Body   NoteRequest
}

// NoteOutput wraps a single note for Huma.
type NoteOutput struct {
	Body *domain.Note
}

// === Handlers ===

func (s *Server) handleListNotes(ctx context.Context, input *BookRef) (*ListNotesOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	notes, err := s.services.Notes.ListNotes(ctx, userID, input.ID, input.Title, input.Author)
	if err != nil {
		return nil, fail(err)
	}
	if notes == nil {
		notes = []domain.Note{}
	}

	out := &ListNotesOutput{}
	out.Body.Notes = notes
	return out, nil
}

func (s *Server) handleAddNote(ctx context.Context, input *AddNoteInput) (*NoteOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate(input.Body); err != nil {
		return nil, err
	}

	note, err := s.services.Notes.AddNote(ctx, userID, input.ID, input.Title, input.Author, input.Body.Title, input.Body.Text)
	if err != nil {
		return nil, fail(err)
	}
	return &NoteOutput{Body: note}, nil
}

func (s *Server) handleUpdateNote(ctx context.Context, input *UpdateNoteInput) (*NoteOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate(input.Body); err != nil {
		return nil, err
	}

	note, err := s.services.Notes.UpdateNote(ctx, userID, input.ID, input.Title, input.Author, input.NoteID, input.Body.Title, input.Body.Text)
	if err != nil {
		return nil, fail(err)
	}
	return &NoteOutput{Body: note}, nil
}

func (s *Server) handleDeleteNote(ctx context.Context, input *NoteRefInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Notes.DeleteNote(ctx, userID, input.ID, input.Title, input.Author, input.NoteID); err != nil {
		return nil, fail(err)
	}
	return nil, nil
}
