package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookcaseapp/bookcase-server/internal/store"
	"github.com/bookcaseapp/bookcase-server/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.DocumentStore {
		return newTestStore(t)
	})
}

func TestSQLite_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path, nil)
	require.NoError(t, err)
	_, err = s.Create(ctx, "bookCases", "bc-1", store.Fields{"userId": []byte(`"u1"`)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	docs, err := s.Query(ctx, "bookCases", store.Eq("userId", "u1"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "bc-1", docs[0].ID)
}

func TestDSN(t *testing.T) {
	got := dsn("/tmp/x.db")
	assert.Contains(t, got, "_txlock=immediate")
	assert.Contains(t, got, "busy_timeout")
	assert.Contains(t, got, "journal_mode")
}

func TestJSONPath(t *testing.T) {
	assert.Equal(t, `$."userId"`, jsonPath("userId"))
}
