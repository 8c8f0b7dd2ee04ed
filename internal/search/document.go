// Package search provides full-text search over a user's books using Bleve.
// Every book on every bookcase is one index document; notes are folded into
// their book so quotes can be found by their text.
package search

import (
	"strconv"
	"strings"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	"github.com/bookcaseapp/bookcase-server/internal/genre"
)

// BookDocument is the indexed form of one book.
type BookDocument struct {
	// ID is "<bookcase id>/<position>".
	ID           string
	UserID       string
	BookCaseID   string
	BookCaseName string
	Index        int

	Title     string
	Author    string
	Publisher string
	Genre     string
	GenreSlug string
	Status    domain.ReadingStatus
	Notes     string

	PublicationYear int
	PageCount       int
	AddedAt         int64 // Unix millis
}

// DocumentID returns the index id of the book at position index.
func DocumentID(bookCaseID string, index int) string {
	return bookCaseID + "/" + strconv.Itoa(index)
}

// ToMap converts the document to a map keyed by the mapping's field names.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":             d.ID,
		"user_id":        d.UserID,
		"bookcase_id":    d.BookCaseID,
		"bookcase_name":  d.BookCaseName,
		"index":          float64(d.Index),
		"title":          d.Title,
		"author":         d.Author,
		"reading_status": string(d.Status),
		"added_at":       float64(d.AddedAt),
	}

	// Optional fields - only add if non-empty
	if d.Publisher != "" {
		m["publisher"] = d.Publisher
	}
	if d.Genre != "" {
		m["genre"] = d.Genre
	}
	if d.GenreSlug != "" {
		m["genre_slug"] = d.GenreSlug
	}
	if d.Notes != "" {
		m["notes"] = d.Notes
	}
	if d.PublicationYear > 0 {
		m["publication_year"] = float64(d.PublicationYear)
	}
	if d.PageCount > 0 {
		m["page_count"] = float64(d.PageCount)
	}
	return m
}

// BookToDocument converts the book at position index of bc.
func BookToDocument(bc *domain.BookCase, index int, book domain.Book) *BookDocument {
	doc := &BookDocument{
		ID:           DocumentID(bc.ID, index),
		UserID:       bc.UserID,
		BookCaseID:   bc.ID,
		BookCaseName: bc.Name,
		Index:        index,
		Title:        book.Title,
		Author:       book.Author,
		Publisher:    book.Publisher,
		Genre:        book.Genre,
		GenreSlug:    genre.Canonical(book.Genre),
		Status:       book.ReadingStatus,
		AddedAt:      book.AddedAt.UnixMilli(),
	}
	if book.PublicationYear != nil {
		doc.PublicationYear = *book.PublicationYear
	}
	if book.PageCount != nil {
		doc.PageCount = *book.PageCount
	}

	if len(book.Notes) > 0 {
		var b strings.Builder
		for _, n := range book.Notes {
			b.WriteString(n.Title)
			b.WriteByte('\n')
			b.WriteString(n.Text)
			b.WriteByte('\n')
		}
		doc.Notes = b.String()
	}
	return doc
}

// BookCaseToDocuments converts every book of bc.
func BookCaseToDocuments(bc *domain.BookCase) []*BookDocument {
	docs := make([]*BookDocument, 0, len(bc.Books))
	for i, b := range bc.Books {
		docs = append(docs, BookToDocument(bc, i, b))
	}
	return docs
}
