package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	"github.com/bookcaseapp/bookcase-server/internal/id"
	"github.com/bookcaseapp/bookcase-server/internal/library"
)

// NoteService manages the notes and quotes attached to a book.
type NoteService struct {
	cases  *BookCaseService
	logger *slog.Logger
}

// NewNoteService creates a new note service.
func NewNoteService(cases *BookCaseService, logger *slog.Logger) *NoteService {
	return &NoteService{
		cases:  cases,
		logger: logger,
	}
}

// ListNotes returns the book's notes in the order they were written.
func (s *NoteService) ListNotes(ctx context.Context, userID, bookCaseID, title, author string) ([]domain.Note, error) {
	bc, err := s.cases.GetBookCase(ctx, userID, bookCaseID)
	if err != nil {
		return nil, err
	}
	index, err := library.LookupBook(bc.Books, title, author)
	if err != nil {
		return nil, err
	}
	notes := bc.Books[index].Notes
	if notes == nil {
		notes = []domain.Note{}
	}
	return notes, nil
}

// editNotes applies edit to the notes of the book identified by title and author.
func (s *NoteService) editNotes(ctx context.Context, userID, bookCaseID, title, author string, edit func([]domain.Note) ([]domain.Note, error)) error {
	_, err := s.cases.mutateBooks(ctx, userID, bookCaseID, func(books []domain.Book) ([]domain.Book, error) {
		index, err := library.LookupBook(books, title, author)
		if err != nil {
			return nil, err
		}
		book := books[index].Clone()
		notes, err := edit(book.Notes)
		if err != nil {
			return nil, err
		}
		book.Notes = notes
		return library.ReplaceBook(books, index, book)
	})
	return err
}

// AddNote attaches a new note to the book.
func (s *NoteService) AddNote(ctx context.Context, userID, bookCaseID, title, author, noteTitle, text string) (*domain.Note, error) {
	noteID, err := s.cases.newID(id.PrefixNote)
	if err != nil {
		return nil, fmt.Errorf("generate note ID: %w", err)
	}

	var added domain.Note
	err = s.editNotes(ctx, userID, bookCaseID, title, author, func(notes []domain.Note) ([]domain.Note, error) {
		out, note, err := library.AddNote(notes, noteID, noteTitle, text, s.cases.clock.Now())
		added = note
		return out, err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("note added",
		"bookcase_id", bookCaseID,
		"note_id", noteID,
		"title", title,
	)
	return &added, nil
}

// UpdateNote rewrites a note's title and text.
func (s *NoteService) UpdateNote(ctx context.Context, userID, bookCaseID, title, author, noteID, noteTitle, text string) (*domain.Note, error) {
	var updated domain.Note
	err := s.editNotes(ctx, userID, bookCaseID, title, author, func(notes []domain.Note) ([]domain.Note, error) {
		out, note, err := library.UpdateNote(notes, noteID, noteTitle, text, s.cases.clock.Now())
		updated = note
		return out, err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("note updated", "bookcase_id", bookCaseID, "note_id", noteID)
	return &updated, nil
}

// DeleteNote removes a note.
func (s *NoteService) DeleteNote(ctx context.Context, userID, bookCaseID, title, author, noteID string) error {
	err := s.editNotes(ctx, userID, bookCaseID, title, author, func(notes []domain.Note) ([]domain.Note, error) {
		return library.DeleteNote(notes, noteID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("note deleted", "bookcase_id", bookCaseID, "note_id", noteID)
	return nil
}
