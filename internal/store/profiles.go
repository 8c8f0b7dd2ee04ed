package store

import (
	"context"
	"errors"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ProfileRepository maps user documents to domain.UserProfile.
// User documents are keyed by the user id.
type ProfileRepository struct {
	docs DocumentStore
}

// NewProfileRepository creates a repository over docs.
func NewProfileRepository(docs DocumentStore) *ProfileRepository {
	return &ProfileRepository{docs: docs}
}

// Get returns the user's profile. A user without a document gets an empty
// profile at revision 0.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	doc, err := r.docs.Get(ctx, domain.CollectionUsers, userID)
	if isNotFound(err) {
		return &domain.UserProfile{ReadingGoals: domain.ReadingGoals{}}, nil
	}
	if err != nil {
		return nil, err
	}

	var p domain.UserProfile
	if err := doc.Decode(&p); err != nil {
		return nil, err
	}
	if p.ReadingGoals == nil {
		p.ReadingGoals = domain.ReadingGoals{}
	}
	p.Revision = doc.Revision
	return &p, nil
}

// SaveGoals writes the reading goals, creating the user document on first
// use. It fails with ErrRevisionConflict if the document changed since p
// was read.
func (r *ProfileRepository) SaveGoals(ctx context.Context, userID string, p *domain.UserProfile) error {
	goals, err := Field(p.ReadingGoals)
	if err != nil {
		return err
	}
	fields := Fields{"readingGoals": goals}

	var doc *Document
	if p.Revision == 0 {
		doc, err = r.docs.Create(ctx, domain.CollectionUsers, userID, fields)
		if errors.Is(err, ErrAlreadyExists) {
			return ErrRevisionConflict.WithCause(err)
		}
	} else {
		doc, err = r.docs.UpdateFields(ctx, domain.CollectionUsers, userID, fields, IfRevision(p.Revision))
	}
	if err != nil {
		return err
	}
	p.Revision = doc.Revision
	return nil
}
