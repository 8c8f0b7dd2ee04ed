package store

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/bookcaseapp/bookcase-server/internal/id"
)

const (
	docPrefix = "doc:"
	idxPrefix = "idx:"
	seqKey    = "seq:documents"
)

// Store is the badger backed DocumentStore.
type Store struct {
	db       *badger.DB
	seq      *badger.Sequence
	logger   *slog.Logger
	notifier *Notifier
	now      func() time.Time

	// indexes maps collection to the fields with an equality index.
	indexes map[string][]string
}

var _ DocumentStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithIndex maintains an equality index on fields of collection so queries
// on them avoid scanning the collection.
func WithIndex(collection string, fields ...string) Option {
	return func(s *Store) {
		s.indexes[collection] = append(s.indexes[collection], fields...)
	}
}

// WithClock overrides the clock used for createdAt and updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New opens (or creates) a badger database at path.
func New(path string, logger *slog.Logger, opts ...Option) (*Store, error) {
	bopts := badger.DefaultOptions(path)
	bopts.Logger = nil            // Disable Badger's internal logging
	bopts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	bopts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	return open(bopts, logger, opts)
}

// NewInMemory opens a badger database that lives only in memory.
func NewInMemory(logger *slog.Logger, opts ...Option) (*Store, error) {
	bopts := badger.DefaultOptions("").WithInMemory(true)
	bopts.Logger = nil
	return open(bopts, logger, opts)
}

func open(bopts badger.Options, logger *slog.Logger, opts []Option) (*Store, error) {
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	seq, err := db.GetSequence([]byte(seqKey), 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open document sequence: %w", err)
	}

	s := &Store{
		db:       db,
		seq:      seq,
		logger:   logger,
		notifier: NewNotifier(),
		now:      time.Now,
		indexes:  make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", bopts.Dir, "in_memory", bopts.InMemory)
	}
	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	if err := s.seq.Release(); err != nil && s.logger != nil {
		s.logger.Warn("failed to release document sequence", "error", err)
	}
	return s.db.Close()
}

// Notifier exposes the change notifier, mainly for tests.
func (s *Store) Notifier() *Notifier {
	return s.notifier
}

func docKey(collection, id string) []byte {
	return []byte(docPrefix + collection + ":" + id)
}

func collectionPrefix(collection string) []byte {
	return []byte(docPrefix + collection + ":")
}

func indexValuePrefix(collection, field string, value []byte) []byte {
	return []byte(idxPrefix + collection + ":" + field + ":" + string(value) + ":")
}

// indexKeys returns the index entries doc should have.
func (s *Store) indexKeys(doc *Document) ([][]byte, error) {
	fields := s.indexes[doc.Collection]
	keys := make([][]byte, 0, len(fields))
	for _, field := range fields {
		raw, ok := doc.Fields[field]
		if !ok {
			continue
		}
		value, err := canonical(raw)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", field, err)
		}
		keys = append(keys, append(indexValuePrefix(doc.Collection, field, value), doc.ID...))
	}
	return keys, nil
}

func readDoc(txn *badger.Txn, collection, id string) (*Document, error) {
	item, err := txn.Get(docKey(collection, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound.WithCause(fmt.Errorf("%s/%s", collection, id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var doc Document
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return &doc, nil
}

func (s *Store) writeDoc(txn *badger.Txn, old, doc *Document) error {
	if old != nil {
		oldKeys, err := s.indexKeys(old)
		if err != nil {
			return err
		}
		for _, k := range oldKeys {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("failed to delete old index key: %w", err)
			}
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := txn.Set(docKey(doc.Collection, doc.ID), data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	newKeys, err := s.indexKeys(doc)
	if err != nil {
		return err
	}
	for _, k := range newKeys {
		if err := txn.Set(k, []byte(doc.ID)); err != nil {
			return fmt.Errorf("failed to set index key: %w", err)
		}
	}
	return nil
}

// Create stores a new document.
func (s *Store) Create(ctx context.Context, collection, docID string, fields Fields) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if collection == "" {
		return nil, ErrInvalidInput.WithMessage("collection is required")
	}
	if docID == "" {
		generated, err := id.Generate("doc")
		if err != nil {
			return nil, failure("create", err)
		}
		docID = generated
	}

	next, err := s.seq.Next()
	if err != nil {
		return nil, failure("create", err)
	}

	now := s.now().UTC()
	doc := &Document{
		Collection: collection,
		ID:         docID,
		Revision:   1,
		Seq:        int64(next) + 1,
		CreatedAt:  now,
		UpdatedAt:  now,
		Fields:     fields,
	}
	if doc.Fields == nil {
		doc.Fields = Fields{}
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(docKey(collection, docID))
		if err == nil {
			return ErrAlreadyExists.WithCause(fmt.Errorf("%s/%s", collection, docID))
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}
		return s.writeDoc(txn, nil, doc)
	})
	if err != nil {
		return nil, failure("create", err)
	}

	s.notifier.Notify(collection)
	return doc, nil
}

// Get returns the document or ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, docID string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc *Document
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = readDoc(txn, collection, docID)
		return err
	})
	if err != nil {
		return nil, failure("get", err)
	}
	return doc, nil
}

// UpdateFields merges fields into the document and bumps its revision.
func (s *Store) UpdateFields(ctx context.Context, collection, docID string, fields Fields, opts ...UpdateOption) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var updated *Document
	err := s.db.Update(func(txn *badger.Txn) error {
		old, err := readDoc(txn, collection, docID)
		if err != nil {
			return err
		}
		if err := CheckRevision(old, opts); err != nil {
			return err
		}

		next := *old
		next.Fields = old.Merge(fields)
		next.Revision = old.Revision + 1
		next.UpdatedAt = s.now().UTC()

		if err := s.writeDoc(txn, old, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		// Another transaction touched the same keys; report it like a
		// revision mismatch so callers re-read and retry.
		return nil, ErrRevisionConflict.WithCause(err)
	}
	if err != nil {
		return nil, failure("update", err)
	}

	s.notifier.Notify(collection)
	return updated, nil
}

// Delete removes the document and its index entries.
// This operation is idempotent.
func (s *Store) Delete(ctx context.Context, collection, docID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	removed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		doc, err := readDoc(txn, collection, docID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		keys, err := s.indexKeys(doc)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
		if err := txn.Delete(docKey(collection, docID)); err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}
		removed = true
		return nil
	})
	if err != nil {
		return failure("delete", err)
	}

	if removed {
		s.notifier.Notify(collection)
	}
	return nil
}

// Query returns the matching documents ordered by insertion.
func (s *Store) Query(ctx context.Context, collection string, preds ...Predicate) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var docs []*Document
	err := s.db.View(func(txn *badger.Txn) error {
		if ids, ok, err := s.lookupIndex(txn, collection, preds); err != nil {
			return err
		} else if ok {
			for _, docID := range ids {
				doc, err := readDoc(txn, collection, docID)
				if errors.Is(err, ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				docs = append(docs, doc)
			}
		} else {
			for doc, err := range s.scan(ctx, txn, collection) {
				if err != nil {
					return err
				}
				docs = append(docs, doc)
			}
		}
		return nil
	})
	if err != nil {
		return nil, failure("query", err)
	}

	matched := docs[:0]
	for _, doc := range docs {
		ok, err := Matches(doc.Fields, preds)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, doc)
		}
	}

	slices.SortFunc(matched, func(a, b *Document) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	return matched, nil
}

// lookupIndex resolves the first indexed predicate to candidate ids.
func (s *Store) lookupIndex(txn *badger.Txn, collection string, preds []Predicate) ([]string, bool, error) {
	indexed := s.indexes[collection]
	for _, p := range preds {
		if !slices.Contains(indexed, p.Field) {
			continue
		}
		value, err := p.canonical()
		if err != nil {
			return nil, false, err
		}

		prefix := indexValuePrefix(collection, p.Field, value)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		var ids []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		it.Close()
		return ids, true, nil
	}
	return nil, false, nil
}

// scan iterates over every document in collection.
func (s *Store) scan(ctx context.Context, txn *badger.Txn, collection string) iter.Seq2[*Document, error] {
	return func(yield func(*Document, error) bool) {
		prefix := collectionPrefix(collection)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}

			var doc Document
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			})
			if err != nil {
				yield(nil, fmt.Errorf("failed to unmarshal document: %w", err))
				return
			}
			if !yield(&doc, nil) {
				return
			}
		}
	}
}

// Subscribe yields live query results.
func (s *Store) Subscribe(ctx context.Context, collection string, preds ...Predicate) iter.Seq2[[]*Document, error] {
	return Subscribe(ctx, s.notifier, collection, func(ctx context.Context) ([]*Document, error) {
		return s.Query(ctx, collection, preds...)
	})
}
