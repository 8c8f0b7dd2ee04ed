// Package library edits the books embedded in a bookcase and the notes
// embedded in a book. Every function is copy-on-write: inputs are never
// mutated and a fresh slice is returned.
package library

import (
	"strings"
	"time"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
)

// ErrDuplicateBook is returned when a title and author pair is already on the bookcase.
var ErrDuplicateBook = domainerrors.AlreadyExists("a book with this title and author already exists")

// FindBook returns the index of the book with exactly this title and author,
// or -1. Matching is case-sensitive.
func FindBook(books []domain.Book, title, author string) int {
	for i, b := range books {
		if b.Title == title && b.Author == author {
			return i
		}
	}
	return -1
}

// LookupBook is FindBook that reports a miss as NotFound.
func LookupBook(books []domain.Book, title, author string) (int, error) {
	if i := FindBook(books, title, author); i >= 0 {
		return i, nil
	}
	return -1, domainerrors.NotFoundf("book %q by %q not found", title, author)
}

// IsDuplicate reports whether another book (ignoring excludeIndex) has the
// same title and author, compared case-insensitively. Pass -1 to compare
// against every book.
func IsDuplicate(books []domain.Book, title, author string, excludeIndex int) bool {
	title, author = strings.ToLower(title), strings.ToLower(author)
	for i, b := range books {
		if i == excludeIndex {
			continue
		}
		if strings.ToLower(b.Title) == title && strings.ToLower(b.Author) == author {
			return true
		}
	}
	return false
}

// ValidateBook normalizes candidate and checks the fields every book needs.
func ValidateBook(candidate domain.Book) (domain.Book, error) {
	b := candidate.Clone()
	b.Normalize()

	if b.Title == "" && b.Author == "" {
		return domain.Book{}, domainerrors.Validation("title and author are required")
	}
	if b.Title == "" {
		return domain.Book{}, domainerrors.Validation("title is required")
	}
	if b.Author == "" {
		return domain.Book{}, domainerrors.Validation("author is required")
	}
	if !b.ReadingStatus.Valid() {
		return domain.Book{}, domainerrors.Validationf("invalid reading status %q", b.ReadingStatus)
	}
	if b.CurrentPage < 0 {
		return domain.Book{}, domainerrors.Validation("current page cannot be negative")
	}
	if b.PageCount != nil && b.CurrentPage > *b.PageCount {
		return domain.Book{}, domainerrors.Validationf("page count cannot be less than the current page (%d)", b.CurrentPage)
	}
	return b, nil
}

// AddBook appends candidate to books. The new book's addedAt is now and its
// status defaults to unread.
func AddBook(books []domain.Book, candidate domain.Book, now time.Time) ([]domain.Book, error) {
	b, err := ValidateBook(candidate)
	if err != nil {
		return nil, err
	}
	if IsDuplicate(books, b.Title, b.Author, -1) {
		return nil, ErrDuplicateBook
	}

	b.AddedAt = domain.NewTimestamp(now)

	out := make([]domain.Book, len(books), len(books)+1)
	copy(out, books)
	return append(out, b), nil
}

// UpdateBook replaces the metadata of the book at index with candidate.
// The book's addedAt, current page, reading sessions and notes are kept.
func UpdateBook(books []domain.Book, index int, candidate domain.Book) ([]domain.Book, error) {
	if err := checkIndex(books, index); err != nil {
		return nil, err
	}

	existing := books[index]
	merged := candidate.Clone()
	merged.AddedAt = existing.AddedAt
	merged.CurrentPage = existing.CurrentPage
	merged.ReadingSessions = existing.ReadingSessions
	merged.Notes = existing.Notes
	if candidate.ReadingStatus == "" {
		merged.ReadingStatus = existing.ReadingStatus
	}

	b, err := ValidateBook(merged)
	if err != nil {
		return nil, err
	}
	if IsDuplicate(books, b.Title, b.Author, index) {
		return nil, ErrDuplicateBook
	}

	out := clone(books)
	out[index] = b
	return out, nil
}

// BookAt returns the book at index, or NotFound.
func BookAt(books []domain.Book, index int) (domain.Book, error) {
	if err := checkIndex(books, index); err != nil {
		return domain.Book{}, err
	}
	return books[index], nil
}

// ReplaceBook swaps the book at index for b without validation. Progress and
// note updates use it after computing the new book state.
func ReplaceBook(books []domain.Book, index int, b domain.Book) ([]domain.Book, error) {
	if err := checkIndex(books, index); err != nil {
		return nil, err
	}
	out := clone(books)
	out[index] = b
	return out, nil
}

// DeleteBook removes the book at index along with its sessions and notes.
func DeleteBook(books []domain.Book, index int) ([]domain.Book, error) {
	if err := checkIndex(books, index); err != nil {
		return nil, err
	}
	out := make([]domain.Book, 0, len(books)-1)
	out = append(out, books[:index]...)
	return append(out, books[index+1:]...), nil
}

// SetStatus overrides the reading status of the book at index.
// The override holds until the next progress update re-derives the status.
func SetStatus(books []domain.Book, index int, status domain.ReadingStatus) ([]domain.Book, error) {
	if !status.Valid() {
		return nil, domainerrors.Validationf("invalid reading status %q", status)
	}
	if err := checkIndex(books, index); err != nil {
		return nil, err
	}
	out := clone(books)
	b := out[index].Clone()
	b.ReadingStatus = status
	out[index] = b
	return out, nil
}

// FilterByStatus returns the books with the given status, keeping their
// positions so clients can address them by index.
func FilterByStatus(books []domain.Book, status domain.ReadingStatus) []IndexedBook {
	out := make([]IndexedBook, 0, len(books))
	for i, b := range books {
		if status == "" || b.ReadingStatus == status {
			out = append(out, IndexedBook{Index: i, Book: b})
		}
	}
	return out
}

// IndexedBook pairs a book with its position on the bookcase.
type IndexedBook struct {
	Index int
	Book  domain.Book
}

func checkIndex(books []domain.Book, index int) error {
	if index < 0 || index >= len(books) {
		return domainerrors.NotFoundf("no book at index %d", index)
	}
	return nil
}

func clone(books []domain.Book) []domain.Book {
	out := make([]domain.Book, len(books))
	copy(out, books)
	return out
}
