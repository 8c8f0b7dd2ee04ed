// Package storetest is a conformance suite run against every
// store.DocumentStore backend.
package storetest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookcaseapp/bookcase-server/internal/store"
)

// Factory opens an empty store for one test.
type Factory func(t *testing.T) store.DocumentStore

func fields(t *testing.T, v any) store.Fields {
	t.Helper()
	f, err := store.FieldsOf(v)
	require.NoError(t, err)
	return f
}

// Run executes the suite.
func Run(t *testing.T, open Factory) {
	t.Run("CreateGet", func(t *testing.T) { testCreateGet(t, open(t)) })
	t.Run("CreateDuplicate", func(t *testing.T) { testCreateDuplicate(t, open(t)) })
	t.Run("GeneratedID", func(t *testing.T) { testGeneratedID(t, open(t)) })
	t.Run("UpdateMerges", func(t *testing.T) { testUpdateMerges(t, open(t)) })
	t.Run("IfRevision", func(t *testing.T) { testIfRevision(t, open(t)) })
	t.Run("ConcurrentCAS", func(t *testing.T) { testConcurrentCAS(t, open(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, open(t)) })
	t.Run("Query", func(t *testing.T) { testQuery(t, open(t)) })
	t.Run("QueryAfterUpdate", func(t *testing.T) { testQueryAfterUpdate(t, open(t)) })
	t.Run("Subscribe", func(t *testing.T) { testSubscribe(t, open(t)) })
	t.Run("SubscribeOnce", func(t *testing.T) { testSubscribeOnce(t, open(t)) })
}

func testCreateGet(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()

	doc, err := s.Create(ctx, "bookCases", "bc-1", fields(t, map[string]any{"name": "Sci-Fi", "userId": "u1", "books": []any{}}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Revision)
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := s.Get(ctx, "bookCases", "bc-1")
	require.NoError(t, err)
	assert.Equal(t, "bc-1", got.ID)
	assert.Equal(t, "bookCases", got.Collection)
	assert.JSONEq(t, `"Sci-Fi"`, string(got.Fields["name"]))
	assert.JSONEq(t, `[]`, string(got.Fields["books"]))

	_, err = s.Get(ctx, "bookCases", "bc-404")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Collections are separate namespaces.
	_, err = s.Get(ctx, "users", "bc-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testCreateDuplicate(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()
	_, err := s.Create(ctx, "users", "u1", store.Fields{})
	require.NoError(t, err)
	_, err = s.Create(ctx, "users", "u1", store.Fields{})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func testGeneratedID(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()
	a, err := s.Create(ctx, "notes", "", store.Fields{})
	require.NoError(t, err)
	b, err := s.Create(ctx, "notes", "", store.Fields{})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func testUpdateMerges(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()
	_, err := s.Create(ctx, "bookCases", "bc-1", fields(t, map[string]any{"name": "Sci-Fi", "books": []any{}}))
	require.NoError(t, err)

	doc, err := s.UpdateFields(ctx, "bookCases", "bc-1", fields(t, map[string]any{"books": []map[string]string{{"title": "Dune"}}}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc.Revision)
	assert.JSONEq(t, `"Sci-Fi"`, string(doc.Fields["name"]), "untouched fields survive")
	assert.JSONEq(t, `[{"title":"Dune"}]`, string(doc.Fields["books"]))

	got, err := s.Get(ctx, "bookCases", "bc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Revision)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	_, err = s.UpdateFields(ctx, "bookCases", "bc-404", store.Fields{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testIfRevision(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()
	_, err := s.Create(ctx, "users", "u1", fields(t, map[string]any{"readingGoals": map[string]any{}}))
	require.NoError(t, err)

	_, err = s.UpdateFields(ctx, "users", "u1", fields(t, map[string]any{"readingGoals": map[string]any{"a": 1}}), store.IfRevision(1))
	require.NoError(t, err)

	// A writer still holding revision 1 loses.
	_, err = s.UpdateFields(ctx, "users", "u1", fields(t, map[string]any{"readingGoals": map[string]any{"b": 2}}), store.IfRevision(1))
	assert.ErrorIs(t, err, store.ErrRevisionConflict)

	got, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got.Fields["readingGoals"]), "failed write leaves the document untouched")
}

func testConcurrentCAS(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()
	_, err := s.Create(ctx, "counters", "c", fields(t, map[string]int{"n": 0}))
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				doc, err := s.Get(ctx, "counters", "c")
				if !assert.NoError(t, err) {
					return
				}
				var v struct{ N int }
				raw := doc.Fields["n"]
				if !assert.NoError(t, json.Unmarshal(raw, &v.N)) {
					return
				}
				next, _ := json.Marshal(v.N + 1)
				_, err = s.UpdateFields(ctx, "counters", "c", store.Fields{"n": next}, store.IfRevision(doc.Revision))
				if err == nil {
					return
				}
				if !assert.ErrorIs(t, err, store.ErrRevisionConflict) {
					return
				}
			}
		}()
	}
	wg.Wait()

	doc, err := s.Get(ctx, "counters", "c")
	require.NoError(t, err)
	assert.JSONEq(t, "8", string(doc.Fields["n"]), "no increment is lost")
	assert.Equal(t, int64(writers+1), doc.Revision)
}

func testDelete(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()
	_, err := s.Create(ctx, "bookCases", "bc-1", fields(t, map[string]any{"userId": "u1"}))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "bookCases", "bc-1"))
	_, err = s.Get(ctx, "bookCases", "bc-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	docs, err := s.Query(ctx, "bookCases", store.Eq("userId", "u1"))
	require.NoError(t, err)
	assert.Empty(t, docs)

	assert.NoError(t, s.Delete(ctx, "bookCases", "bc-1"), "delete is idempotent")
}

func testQuery(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()
	seed := []struct {
		id     string
		name   string
		userID string
	}{
		{"bc-c", "Fantasy", "u1"},
		{"bc-a", "Sci-Fi", "u2"},
		{"bc-b", "Classics", "u1"},
	}
	for _, s2 := range seed {
		_, err := s.Create(ctx, "bookCases", s2.id, fields(t, map[string]any{"name": s2.name, "userId": s2.userID, "shelf": 3, "pinned": s2.id == "bc-b"}))
		require.NoError(t, err)
	}

	docs, err := s.Query(ctx, "bookCases", store.Eq("userId", "u1"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "bc-c", docs[0].ID, "insertion order, not id order")
	assert.Equal(t, "bc-b", docs[1].ID)

	docs, err = s.Query(ctx, "bookCases", store.Eq("userId", "u1"), store.Eq("name", "Classics"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "bc-b", docs[0].ID)

	docs, err = s.Query(ctx, "bookCases", store.Eq("name", "classics"))
	require.NoError(t, err)
	assert.Empty(t, docs, "equality is exact")

	docs, err = s.Query(ctx, "bookCases", store.Eq("shelf", 3), store.Eq("pinned", true))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "bc-b", docs[0].ID)

	docs, err = s.Query(ctx, "bookCases", store.Eq("missing", nil))
	require.NoError(t, err)
	assert.Len(t, docs, 3, "absent field equals null")

	docs, err = s.Query(ctx, "bookCases")
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func testQueryAfterUpdate(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()
	_, err := s.Create(ctx, "bookCases", "bc-1", fields(t, map[string]any{"userId": "u1"}))
	require.NoError(t, err)

	_, err = s.UpdateFields(ctx, "bookCases", "bc-1", fields(t, map[string]any{"userId": "u2"}))
	require.NoError(t, err)

	docs, err := s.Query(ctx, "bookCases", store.Eq("userId", "u1"))
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = s.Query(ctx, "bookCases", store.Eq("userId", "u2"))
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func next(t *testing.T, ch <-chan []*store.Document) []*store.Document {
	t.Helper()
	select {
	case docs := <-ch:
		return docs
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func testSubscribe(t *testing.T, s store.DocumentStore) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := s.Create(ctx, "bookCases", "bc-1", fields(t, map[string]any{"userId": "u1", "name": "A"}))
	require.NoError(t, err)

	snapshots := make(chan []*store.Document, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for docs, err := range s.Subscribe(ctx, "bookCases", store.Eq("userId", "u1")) {
			if err != nil {
				return
			}
			snapshots <- docs
		}
	}()

	first := next(t, snapshots)
	require.Len(t, first, 1)

	_, err = s.Create(ctx, "bookCases", "bc-2", fields(t, map[string]any{"userId": "u1", "name": "B"}))
	require.NoError(t, err)
	second := next(t, snapshots)
	require.Len(t, second, 2)
	assert.Equal(t, "bc-2", second[1].ID)

	// Another user's write does not produce a new snapshot for u1...
	_, err = s.Create(ctx, "bookCases", "bc-3", fields(t, map[string]any{"userId": "u2", "name": "C"}))
	require.NoError(t, err)
	// ...but the next relevant write does, carrying the full result set.
	require.NoError(t, s.Delete(ctx, "bookCases", "bc-1"))
	third := next(t, snapshots)
	require.Len(t, third, 1)
	assert.Equal(t, "bc-2", third[0].ID)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not end after cancel")
	}
}

func testSubscribeOnce(t *testing.T, s store.DocumentStore) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seq := s.Subscribe(ctx, "bookCases")
	for _, err := range seq {
		require.NoError(t, err)
		break
	}
	for _, err := range seq {
		assert.ErrorIs(t, err, store.ErrSubscriptionConsumed)
		break
	}
}
