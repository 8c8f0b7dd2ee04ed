package store

import (
	"context"
	"fmt"
	"iter"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
)

// BookCaseRepository maps bookcase documents to domain.BookCase.
type BookCaseRepository struct {
	docs DocumentStore
}

// NewBookCaseRepository creates a repository over docs.
func NewBookCaseRepository(docs DocumentStore) *BookCaseRepository {
	return &BookCaseRepository{docs: docs}
}

func decodeBookCase(doc *Document) (*domain.BookCase, error) {
	var bc domain.BookCase
	if err := doc.Decode(&bc); err != nil {
		return nil, err
	}
	bc.ID = doc.ID
	bc.Revision = doc.Revision
	if bc.Books == nil {
		bc.Books = []domain.Book{}
	}
	return &bc, nil
}

func decodeBookCases(docs []*Document) ([]*domain.BookCase, error) {
	out := make([]*domain.BookCase, 0, len(docs))
	for _, doc := range docs {
		bc, err := decodeBookCase(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, bc)
	}
	return out, nil
}

// Create stores a new bookcase and records its id and revision on bc.
func (r *BookCaseRepository) Create(ctx context.Context, bc *domain.BookCase) error {
	books := bc.Books
	if books == nil {
		books = []domain.Book{}
	}
	fields, err := FieldsOf(struct {
		Name      string           `json:"name"`
		UserID    string           `json:"userId"`
		CreatedAt domain.Timestamp `json:"createdAt"`
		Books     []domain.Book    `json:"books"`
	}{bc.Name, bc.UserID, bc.CreatedAt, books})
	if err != nil {
		return err
	}

	doc, err := r.docs.Create(ctx, domain.CollectionBookCases, bc.ID, fields)
	if err != nil {
		return fmt.Errorf("create bookcase: %w", err)
	}
	bc.ID = doc.ID
	bc.Revision = doc.Revision
	bc.Books = books
	return nil
}

// Get returns the bookcase with id.
func (r *BookCaseRepository) Get(ctx context.Context, id string) (*domain.BookCase, error) {
	doc, err := r.docs.Get(ctx, domain.CollectionBookCases, id)
	if err != nil {
		return nil, err
	}
	return decodeBookCase(doc)
}

// ListByUser returns the user's bookcases in creation order.
func (r *BookCaseRepository) ListByUser(ctx context.Context, userID string) ([]*domain.BookCase, error) {
	docs, err := r.docs.Query(ctx, domain.CollectionBookCases, Eq("userId", userID))
	if err != nil {
		return nil, err
	}
	return decodeBookCases(docs)
}

// All returns every bookcase of every user.
func (r *BookCaseRepository) All(ctx context.Context) ([]*domain.BookCase, error) {
	docs, err := r.docs.Query(ctx, domain.CollectionBookCases)
	if err != nil {
		return nil, err
	}
	return decodeBookCases(docs)
}

// FindByName returns the user's bookcase called name, or ErrNotFound.
func (r *BookCaseRepository) FindByName(ctx context.Context, userID, name string) (*domain.BookCase, error) {
	docs, err := r.docs.Query(ctx, domain.CollectionBookCases, Eq("userId", userID), Eq("name", name))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound.WithCause(fmt.Errorf("bookcase %q", name))
	}
	return decodeBookCase(docs[0])
}

// SaveBooks writes bc.Books, failing with ErrRevisionConflict if the
// bookcase changed since bc was read. On success bc.Revision is advanced.
func (r *BookCaseRepository) SaveBooks(ctx context.Context, bc *domain.BookCase) error {
	books, err := Field(bc.Books)
	if err != nil {
		return err
	}
	doc, err := r.docs.UpdateFields(ctx, domain.CollectionBookCases, bc.ID, Fields{"books": books}, IfRevision(bc.Revision))
	if err != nil {
		return err
	}
	bc.Revision = doc.Revision
	return nil
}

// Restore writes a whole bookcase, creating or overwriting it.
func (r *BookCaseRepository) Restore(ctx context.Context, bc *domain.BookCase) error {
	existing, err := r.docs.Get(ctx, domain.CollectionBookCases, bc.ID)
	if err != nil {
		if isNotFound(err) {
			return r.Create(ctx, bc)
		}
		return err
	}

	fields, err := FieldsOf(struct {
		Name      string           `json:"name"`
		UserID    string           `json:"userId"`
		CreatedAt domain.Timestamp `json:"createdAt"`
		Books     []domain.Book    `json:"books"`
	}{bc.Name, bc.UserID, bc.CreatedAt, bc.Books})
	if err != nil {
		return err
	}
	doc, err := r.docs.UpdateFields(ctx, domain.CollectionBookCases, bc.ID, fields, IfRevision(existing.Revision))
	if err != nil {
		return err
	}
	bc.Revision = doc.Revision
	return nil
}

// Delete removes the bookcase.
func (r *BookCaseRepository) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, domain.CollectionBookCases, id)
}

// Watch yields the user's bookcases now and after every change.
func (r *BookCaseRepository) Watch(ctx context.Context, userID string) iter.Seq2[[]*domain.BookCase, error] {
	return func(yield func([]*domain.BookCase, error) bool) {
		for docs, err := range r.docs.Subscribe(ctx, domain.CollectionBookCases, Eq("userId", userID)) {
			if err != nil {
				yield(nil, err)
				return
			}
			cases, err := decodeBookCases(docs)
			if !yield(cases, err) || err != nil {
				return
			}
		}
	}
}
