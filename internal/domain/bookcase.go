// Package domain holds the persisted shapes of bookcases, books, reading
// sessions, notes and reading goals. Field names are part of the stored
// document contract shared with mobile clients.
package domain

// Collection names in the document store.
const (
	CollectionBookCases = "bookCases"
	CollectionUsers     = "users"
)

// BookCase is a named, user-owned collection of books.
// The books array is embedded in the bookcase document.
type BookCase struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"userId"`
	CreatedAt Timestamp `json:"createdAt"`
	Books     []Book    `json:"books"`

	// Revision is the store revision the bookcase was read at.
	Revision int64 `json:"-"`
}

// BookCount returns the number of books on the bookcase.
func (bc *BookCase) BookCount() int {
	return len(bc.Books)
}

// OwnedBy reports whether the bookcase belongs to userID.
func (bc *BookCase) OwnedBy(userID string) bool {
	return bc.UserID == userID
}

// BookCaseSummary is the list view of a bookcase.
type BookCaseSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt Timestamp `json:"createdAt"`
	BookCount int       `json:"bookCount"`
}

// Summary returns the list view of the bookcase.
func (bc *BookCase) Summary() BookCaseSummary {
	return BookCaseSummary{
		ID:        bc.ID,
		Name:      bc.Name,
		CreatedAt: bc.CreatedAt,
		BookCount: bc.BookCount(),
	}
}
