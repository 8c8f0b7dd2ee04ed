// Package store implements the document store the bookcase server keeps its
// data in: schemaless JSON documents grouped in collections, with merge
// updates guarded by revisions, equality queries and live subscriptions.
//
// The badger backed Store lives here; internal/store/sqlite provides the same
// contract on SQLite. Typed repositories (BookCaseRepository,
// ProfileRepository) sit on top of either.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"time"
)

// Fields are a document's top-level fields as raw JSON values.
type Fields map[string]json.RawMessage

// FieldsOf converts v into Fields by marshalling it to a JSON object.
func FieldsOf(v any) (Fields, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	var fields Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("fields must be a JSON object: %w", err)
	}
	return fields, nil
}

// Field marshals a single value for use in Fields.
func Field(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal field: %w", err)
	}
	return data, nil
}

// Document is one stored document.
type Document struct {
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Revision   int64     `json:"revision"`
	Seq        int64     `json:"seq"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Fields     Fields    `json:"fields"`
}

// Decode unmarshals the document's fields into v.
func (d *Document) Decode(v any) error {
	data, err := json.Marshal(d.Fields)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// Merge returns the fields of d with updates applied on top.
func (d *Document) Merge(updates Fields) Fields {
	out := make(Fields, len(d.Fields)+len(updates))
	maps.Copy(out, d.Fields)
	maps.Copy(out, updates)
	return out
}

// Predicate is an equality test on a top-level field.
type Predicate struct {
	Field string
	Value any
}

// Eq builds an equality predicate.
func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Value: value}
}

// Matches reports whether every predicate holds for fields.
func Matches(fields Fields, preds []Predicate) (bool, error) {
	for _, p := range preds {
		want, err := p.canonical()
		if err != nil {
			return false, err
		}
		raw, ok := fields[p.Field]
		if !ok {
			if !bytes.Equal(want, []byte("null")) {
				return false, nil
			}
			continue
		}
		got, err := canonical(raw)
		if err != nil {
			return false, err
		}
		if !bytes.Equal(got, want) {
			return false, nil
		}
	}
	return true, nil
}

func (p Predicate) canonical() ([]byte, error) {
	raw, err := json.Marshal(p.Value)
	if err != nil {
		return nil, ErrInvalidInput.WithCause(fmt.Errorf("predicate %s: %w", p.Field, err))
	}
	return canonical(raw)
}

// canonical re-encodes raw JSON so equal values compare byte for byte:
// object keys sorted, whitespace dropped, numbers kept as written.
func canonical(raw json.RawMessage) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return json.Marshal(v)
}

// UpdateOption configures UpdateFields.
type UpdateOption func(*updateOptions)

type updateOptions struct {
	ifRevision int64
	checkRev   bool
}

// IfRevision makes the update fail with ErrRevisionConflict unless the
// stored document is still at rev.
func IfRevision(rev int64) UpdateOption {
	return func(o *updateOptions) {
		o.ifRevision = rev
		o.checkRev = true
	}
}

// CheckRevision enforces the IfRevision precondition in opts against doc.
// Backends call it inside the write transaction.
func CheckRevision(doc *Document, opts []UpdateOption) error {
	var o updateOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.checkRev && doc.Revision != o.ifRevision {
		return ErrRevisionConflict.WithCause(fmt.Errorf("%s/%s at revision %d, expected %d", doc.Collection, doc.ID, doc.Revision, o.ifRevision))
	}
	return nil
}

// DocumentStore is the contract shared by the badger and sqlite backends.
type DocumentStore interface {
	// Create stores a new document. An empty id is replaced by a generated one.
	// Returns ErrAlreadyExists if the id is taken.
	Create(ctx context.Context, collection, id string, fields Fields) (*Document, error)

	// Get returns a document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// UpdateFields replaces the given top-level fields, leaving the others,
	// and bumps the revision. Returns ErrNotFound for a missing document.
	UpdateFields(ctx context.Context, collection, id string, fields Fields, opts ...UpdateOption) (*Document, error)

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Query returns the documents matching every predicate in insertion order.
	Query(ctx context.Context, collection string, preds ...Predicate) ([]*Document, error)

	// Subscribe yields the current result of Query, then a fresh full result
	// after every write that changes it, until ctx is canceled.
	// The sequence can be ranged over once.
	Subscribe(ctx context.Context, collection string, preds ...Predicate) iter.Seq2[[]*Document, error]

	Close() error
}
