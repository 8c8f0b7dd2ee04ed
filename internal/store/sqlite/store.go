// Package sqlite implements store.DocumentStore on SQLite. Each document is a
// row holding its fields as a JSON object; equality predicates on string
// fields are pushed down to json_extract.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/bookcaseapp/bookcase-server/internal/id"
	"github.com/bookcaseapp/bookcase-server/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed document persistence.
type Store struct {
	db       *sql.DB
	logger   *slog.Logger
	notifier *store.Notifier
	now      func() time.Time
}

var _ store.DocumentStore = (*Store)(nil)

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs the schema migration.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger != nil {
		logger.Info("SQLite database opened successfully", "path", path)
	}

	return &Store{
		db:       db,
		logger:   logger,
		notifier: store.NewNotifier(),
		now:      time.Now,
	}, nil
}

// dsn builds the connection string. Pragmas go in the DSN so every pooled
// connection gets them, and write transactions take the lock up front.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

const documentColumns = `collection, id, revision, seq, created_at, updated_at, fields`

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*store.Document, error) {
	var (
		doc       store.Document
		createdAt string
		updatedAt string
		fields    string
	)
	if err := scanner.Scan(&doc.Collection, &doc.ID, &doc.Revision, &doc.Seq, &createdAt, &updatedAt, &fields); err != nil {
		return nil, err
	}

	var err error
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fields), &doc.Fields); err != nil {
		return nil, fmt.Errorf("decode fields of %s: %w", doc.ID, err)
	}
	return &doc, nil
}

func encodeFields(fields store.Fields) (string, error) {
	if fields == nil {
		fields = store.Fields{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", store.ErrInvalidInput.WithCause(err)
	}
	return string(data), nil
}

// failure maps database errors onto store errors.
func failure(op string, err error) error {
	var storeErr *store.Error
	if errors.As(err, &storeErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound.WithCause(err)
	}
	return store.ErrFailure.WithCause(fmt.Errorf("%s: %w", op, err))
}

// Create inserts a new document.
func (s *Store) Create(ctx context.Context, collection, docID string, fields store.Fields) (*store.Document, error) {
	if collection == "" {
		return nil, store.ErrInvalidInput.WithMessage("collection is required")
	}
	if docID == "" {
		generated, err := id.Generate("doc")
		if err != nil {
			return nil, failure("create", err)
		}
		docID = generated
	}

	body, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}
	now := formatTime(s.now())

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (collection, id, revision, created_at, updated_at, fields)
		VALUES (?, ?, 1, ?, ?, ?)
		RETURNING `+documentColumns,
		collection, docID, now, now, body,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, store.ErrAlreadyExists.WithCause(fmt.Errorf("%s/%s", collection, docID))
		}
		return nil, failure("create", err)
	}

	s.notifier.Notify(collection)
	return doc, nil
}

// Get returns the document or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, docID string) (*store.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE collection = ? AND id = ?`,
		collection, docID)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, failure("get", err)
	}
	return doc, nil
}

// UpdateFields merges fields into the document inside one write transaction.
func (s *Store) UpdateFields(ctx context.Context, collection, docID string, fields store.Fields, opts ...store.UpdateOption) (*store.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, failure("update", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE collection = ? AND id = ?`,
		collection, docID)
	old, err := scanDocument(row)
	if err != nil {
		return nil, failure("update", err)
	}
	if err := store.CheckRevision(old, opts); err != nil {
		return nil, err
	}

	body, err := encodeFields(old.Merge(fields))
	if err != nil {
		return nil, err
	}

	row = tx.QueryRowContext(ctx, `
		UPDATE documents SET fields = ?, revision = revision + 1, updated_at = ?
		WHERE collection = ? AND id = ?
		RETURNING `+documentColumns,
		body, formatTime(s.now()), collection, docID,
	)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, failure("update", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, failure("update", err)
	}

	s.notifier.Notify(collection)
	return doc, nil
}

// Delete removes the document. Missing documents are ignored.
func (s *Store) Delete(ctx context.Context, collection, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, docID)
	if err != nil {
		return failure("delete", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.notifier.Notify(collection)
	}
	return nil
}

// Query returns matching documents in insertion order.
func (s *Store) Query(ctx context.Context, collection string, preds ...store.Predicate) ([]*store.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE collection = ?`
	args := []any{collection}
	for _, p := range preds {
		// Strings compare the same in SQL and JSON; everything else is
		// checked by store.Matches below.
		if v, ok := p.Value.(string); ok {
			query += ` AND json_extract(fields, ?) = ?`
			args = append(args, jsonPath(p.Field), v)
		}
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, failure("query", err)
	}
	defer rows.Close()

	var docs []*store.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, failure("query", err)
		}
		ok, err := store.Matches(doc.Fields, preds)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, failure("query", err)
	}
	return docs, nil
}

// jsonPath quotes a top-level field name for json_extract.
func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

// Subscribe yields live query results.
func (s *Store) Subscribe(ctx context.Context, collection string, preds ...store.Predicate) iter.Seq2[[]*store.Document, error] {
	return store.Subscribe(ctx, s.notifier, collection, func(ctx context.Context) ([]*store.Document, error) {
		return s.Query(ctx, collection, preds...)
	})
}
