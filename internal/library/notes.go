package library

import (
	"strings"
	"time"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
)

func validateNote(title, text string) (string, string, error) {
	title, text = strings.TrimSpace(title), strings.TrimSpace(text)
	if title == "" || text == "" {
		return "", "", domainerrors.Validation("note title and text are required")
	}
	return title, text, nil
}

// AddNote appends a note with the given id.
func AddNote(notes []domain.Note, id, title, text string, now time.Time) ([]domain.Note, domain.Note, error) {
	title, text, err := validateNote(title, text)
	if err != nil {
		return nil, domain.Note{}, err
	}
	if id == "" {
		return nil, domain.Note{}, domainerrors.Validation("note id is required")
	}

	note := domain.Note{
		ID:        id,
		Title:     title,
		Text:      text,
		CreatedAt: domain.NewTimestamp(now),
	}

	out := make([]domain.Note, len(notes), len(notes)+1)
	copy(out, notes)
	return append(out, note), note, nil
}

// UpdateNote rewrites the title and text of the note with id and stamps updatedAt.
func UpdateNote(notes []domain.Note, id, title, text string, now time.Time) ([]domain.Note, domain.Note, error) {
	title, text, err := validateNote(title, text)
	if err != nil {
		return nil, domain.Note{}, err
	}

	i, err := findNote(notes, id)
	if err != nil {
		return nil, domain.Note{}, err
	}

	out := make([]domain.Note, len(notes))
	copy(out, notes)
	out[i].Title = title
	out[i].Text = text
	out[i].UpdatedAt = domain.NewTimestamp(now)
	return out, out[i], nil
}

// DeleteNote removes the note with id.
func DeleteNote(notes []domain.Note, id string) ([]domain.Note, error) {
	i, err := findNote(notes, id)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Note, 0, len(notes)-1)
	out = append(out, notes[:i]...)
	return append(out, notes[i+1:]...), nil
}

func findNote(notes []domain.Note, id string) (int, error) {
	for i, n := range notes {
		if n.ID == id {
			return i, nil
		}
	}
	return -1, domainerrors.NotFoundf("note %s not found", id)
}
